package tts

import (
	"context"
	"fmt"

	"github.com/lexiqai/voice-assistant/internal/audio"
)

// Synthesizer converts text into a playable WAV artifact on local storage.
// The caller releases the artifact once playback no longer needs it.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.Artifact, error)
}

// SynthesisError is fatal to the current cycle; there is no fallback engine
type SynthesisError struct {
	Engine string
	Err    error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%s speech synthesis failed: %v", e.Engine, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
