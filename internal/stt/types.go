package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexiqai/voice-assistant/internal/audio"
)

// ErrUnintelligible means the clip held no recognizable speech in the configured language
var ErrUnintelligible = errors.New("could not understand the audio")

// ErrServiceUnavailable means the transcription backend could not be reached or failed
var ErrServiceUnavailable = errors.New("transcription service unavailable")

// ServiceError carries the backend detail behind ErrServiceUnavailable
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("could not request results from %s speech recognition service; %v", e.Provider, e.Err)
}

// Is makes errors.Is(err, ErrServiceUnavailable) hold for every ServiceError
func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Transcriber turns one captured clip into text
type Transcriber interface {
	// Transcribe returns the recognized text, ErrUnintelligible, or a *ServiceError
	Transcribe(ctx context.Context, clip *audio.Clip) (string, error)
}
