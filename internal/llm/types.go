package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Message is one chat turn sent to the completion backend
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the external conversational-completion capability
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Failure kinds of a completion call
const (
	KindAuth      = "auth"
	KindRateLimit = "rate_limit"
	KindNetwork   = "network"
	KindBackend   = "backend"
	KindEmpty     = "empty"
)

// ErrEmptyCompletion is returned when the backend answers with no text
var ErrEmptyCompletion = errors.New("completion returned no content")

// CompletionError is fatal to the current cycle; it is never retried
type CompletionError struct {
	Kind string
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed (%s): %v", e.Kind, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// classify maps a client error to a CompletionError kind
func classify(err error) *CompletionError {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	var netErr net.Error
	switch {
	case errors.Is(err, ErrEmptyCompletion):
		return &CompletionError{Kind: KindEmpty, Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &CompletionError{Kind: KindAuth, Err: err}
	case status == http.StatusTooManyRequests:
		return &CompletionError{Kind: KindRateLimit, Err: err}
	case status == 0 && (errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded)):
		return &CompletionError{Kind: KindNetwork, Err: err}
	}
	return &CompletionError{Kind: KindBackend, Err: err}
}
