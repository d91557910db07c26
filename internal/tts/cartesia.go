package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/config"
)

// CartesiaSynthesizer implements Synthesizer using Cartesia's bytes endpoint
type CartesiaSynthesizer struct {
	apiKey     string
	apiURL     string
	version    string
	voiceID    string
	modelID    string
	sampleRate int
	dir        string
	httpClient *http.Client
}

// CartesiaRequest represents the request payload for the Cartesia TTS API
type CartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        CartesiaVoice        `json:"voice"`
	OutputFormat CartesiaOutputFormat `json:"output_format"`
}

// CartesiaVoice selects a voice by id
type CartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

// CartesiaOutputFormat asks for raw little-endian PCM so we control the container
type CartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

// NewCartesiaSynthesizer creates a new Cartesia TTS client
func NewCartesiaSynthesizer(cfg *config.Config) *CartesiaSynthesizer {
	return &CartesiaSynthesizer{
		apiKey:     cfg.CartesiaAPIKey,
		apiURL:     strings.TrimRight(cfg.CartesiaBaseURL, "/") + "/tts/bytes",
		version:    cfg.CartesiaVersion,
		voiceID:    cfg.CartesiaVoiceID,
		modelID:    cfg.CartesiaModelID,
		sampleRate: cfg.CartesiaSampleRate,
		dir:        cfg.ArtifactDir(),
		httpClient: &http.Client{},
	}
}

// Synthesize requests PCM for text and frames it into a WAV artifact
func (c *CartesiaSynthesizer) Synthesize(ctx context.Context, text string) (*audio.Artifact, error) {
	pcm, err := c.fetchPCM(ctx, text)
	if err != nil {
		return nil, &SynthesisError{Engine: "cartesia", Err: err}
	}

	samples, err := audio.PCM16ToInts(pcm)
	if err != nil {
		return nil, &SynthesisError{Engine: "cartesia", Err: err}
	}

	artifact, f, err := audio.CreateArtifact(c.dir, "speech-*.wav")
	if err != nil {
		return nil, &SynthesisError{Engine: "cartesia", Err: err}
	}
	werr := audio.WriteWAV(f, samples, c.sampleRate)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		artifact.Release()
		if werr == nil {
			werr = cerr
		}
		return nil, &SynthesisError{Engine: "cartesia", Err: werr}
	}
	return artifact, nil
}

func (c *CartesiaSynthesizer) fetchPCM(ctx context.Context, text string) ([]byte, error) {
	reqBody := CartesiaRequest{
		ModelID:    c.modelID,
		Transcript: text,
		Voice:      CartesiaVoice{Mode: "id", ID: c.voiceID},
		OutputFormat: CartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_s16le",
			SampleRate: c.sampleRate,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Cartesia-Version", c.version)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cartesia API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("cartesia returned empty audio data")
	}
	return pcm, nil
}
