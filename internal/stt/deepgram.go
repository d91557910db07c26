package stt

import (
	"bytes"
	"context"
	"strings"

	restapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	dgapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/config"
)

// DeepgramTranscriber uses Deepgram's prerecorded REST API
type DeepgramTranscriber struct {
	client  *restapi.Client
	options *interfaces.PreRecordedTranscriptionOptions
}

// NewDeepgramTranscriber creates a new Deepgram REST client
func NewDeepgramTranscriber(cfg *config.Config) *DeepgramTranscriber {
	c := listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})

	return &DeepgramTranscriber{
		client: restapi.New(c),
		options: &interfaces.PreRecordedTranscriptionOptions{
			Model:       cfg.DeepgramModel,
			Language:    cfg.STTLanguage,
			Punctuate:   true,
			SmartFormat: true,
		},
	}
}

// Transcribe uploads the WAV container; Deepgram reads its header itself
func (d *DeepgramTranscriber) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	res, err := d.client.FromStream(ctx, bytes.NewReader(clip.WAV), d.options)
	if err != nil {
		return "", &ServiceError{Provider: "Deepgram", Err: err}
	}
	return deepgramTranscript(res)
}

// deepgramTranscript joins the best alternative of every channel
func deepgramTranscript(res *dgapi.PreRecordedResponse) (string, error) {
	if res == nil || res.Results == nil {
		return "", ErrUnintelligible
	}

	var parts []string
	for _, ch := range res.Results.Channels {
		if len(ch.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(ch.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", ErrUnintelligible
	}
	return strings.Join(parts, " "), nil
}
