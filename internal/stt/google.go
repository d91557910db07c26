package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/config"
)

// GoogleTranscriber uses Google Cloud Speech synchronous recognition.
// It relies on Application Default Credentials unless a credentials file is configured.
type GoogleTranscriber struct {
	client   *speech.Client
	language string
}

// NewGoogleTranscriber creates a new Google Cloud Speech client
func NewGoogleTranscriber(ctx context.Context, cfg *config.Config) (*GoogleTranscriber, error) {
	var opts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return &GoogleTranscriber{client: client, language: cfg.STTLanguage}, nil
}

// Transcribe sends the whole clip in one Recognize request
func (g *GoogleTranscriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	resp, err := g.client.Recognize(ctx, g.request(clip))
	if err != nil {
		return "", &ServiceError{Provider: "Google", Err: err}
	}
	return googleTranscript(resp)
}

func (g *GoogleTranscriber) request(clip *audio.Clip) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   int32(clip.SampleRate),
			AudioChannelCount: int32(clip.Channels),
			LanguageCode:      g.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: clip.WAV},
		},
	}
}

// googleTranscript joins the best alternative of every result
func googleTranscript(resp *speechpb.RecognizeResponse) (string, error) {
	var parts []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrUnintelligible
	}
	return strings.Join(parts, " "), nil
}

// Close cleans up the speech client connection
func (g *GoogleTranscriber) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}
