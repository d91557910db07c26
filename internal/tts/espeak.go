package tts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/config"
)

// EspeakSynthesizer drives a local espeak/espeak-ng binary that writes WAV files
type EspeakSynthesizer struct {
	binary string
	voice  string
	dir    string
}

// NewEspeakSynthesizer creates a synthesizer for the configured local engine
func NewEspeakSynthesizer(cfg *config.Config) *EspeakSynthesizer {
	return &EspeakSynthesizer{
		binary: cfg.EspeakBinary,
		voice:  cfg.EspeakVoice,
		dir:    cfg.ArtifactDir(),
	}
}

// Available reports whether the engine binary can be found
func (e *EspeakSynthesizer) Available() error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("speech engine %q not found: %w", e.binary, err)
	}
	return nil
}

// Synthesize runs the engine with -w so it writes into a fresh artifact path
func (e *EspeakSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Artifact, error) {
	artifact, f, err := audio.CreateArtifact(e.dir, "speech-*.wav")
	if err != nil {
		return nil, &SynthesisError{Engine: "espeak", Err: err}
	}
	f.Close()

	args := []string{"-w", artifact.Path()}
	if e.voice != "" {
		args = append(args, "-v", e.voice)
	}
	// "--" keeps text starting with a dash from being read as a flag
	args = append(args, "--", text)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		artifact.Release()
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &SynthesisError{Engine: "espeak", Err: err}
	}

	info, err := os.Stat(artifact.Path())
	if err != nil || info.Size() == 0 {
		artifact.Release()
		return nil, &SynthesisError{Engine: "espeak", Err: fmt.Errorf("engine wrote no audio")}
	}
	return artifact, nil
}
