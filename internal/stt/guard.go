package stt

import (
	"context"
	"errors"

	"github.com/lexiqai/voice-assistant/internal/audio"
	"github.com/lexiqai/voice-assistant/internal/resilience"
)

// Guarded wraps a backend with a silence pre-check and a circuit breaker
type Guarded struct {
	next             Transcriber
	breaker          *resilience.CircuitBreaker
	silenceThreshold float64
}

// NewGuarded wraps next. A silenceThreshold of 0 disables the pre-check; breaker may be nil.
func NewGuarded(next Transcriber, breaker *resilience.CircuitBreaker, silenceThreshold float64) *Guarded {
	return &Guarded{next: next, breaker: breaker, silenceThreshold: silenceThreshold}
}

// Transcribe rejects silent clips without calling the backend
func (g *Guarded) Transcribe(ctx context.Context, clip *audio.Clip) (string, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return "", ErrUnintelligible
	}
	if g.silenceThreshold > 0 && audio.DetectSilence(clip.Samples, g.silenceThreshold) {
		return "", ErrUnintelligible
	}

	if g.breaker == nil {
		return g.next.Transcribe(ctx, clip)
	}

	var text string
	var unintelligible bool
	err := g.breaker.Call(func() error {
		var err error
		text, err = g.next.Transcribe(ctx, clip)
		if errors.Is(err, ErrUnintelligible) {
			// The backend answered; that is not a service failure
			unintelligible = true
			return nil
		}
		return err
	})

	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "", &ServiceError{Provider: g.breaker.Name(), Err: err}
	case err != nil:
		return "", err
	case unintelligible:
		return "", ErrUnintelligible
	}
	return text, nil
}
