package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-assistant/internal/cache"
	"github.com/lexiqai/voice-assistant/internal/config"
	"github.com/lexiqai/voice-assistant/internal/observability"
	"github.com/lexiqai/voice-assistant/internal/transcript"
)

// Responder answers user text through the cache and, on a miss, the completer
type Responder struct {
	completer    Completer
	cache        *cache.Cache
	mode         string
	systemPrompt string
	timeout      time.Duration
	logger       zerolog.Logger
}

// ResponderOption customizes a Responder
type ResponderOption func(*Responder)

// WithHistory forwards prior transcript turns with every request
func WithHistory() ResponderOption {
	return func(r *Responder) { r.mode = config.ContextHistory }
}

// WithSystemPrompt prepends a system message to every request
func WithSystemPrompt(prompt string) ResponderOption {
	return func(r *Responder) { r.systemPrompt = prompt }
}

// WithTimeout bounds each completion call; zero means no extra bound
func WithTimeout(d time.Duration) ResponderOption {
	return func(r *Responder) { r.timeout = d }
}

// WithLogger sets the logger used for cache decisions
func WithLogger(logger zerolog.Logger) ResponderOption {
	return func(r *Responder) { r.logger = logger }
}

// NewResponder creates a stateless responder backed by c.
// The cache is owned by the caller and may be shared between sessions.
func NewResponder(completer Completer, c *cache.Cache, opts ...ResponderOption) *Responder {
	r := &Responder{
		completer: completer,
		cache:     c,
		mode:      config.ContextStateless,
		logger:    observability.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mode reports "stateless" or "history"
func (r *Responder) Mode() string {
	return r.mode
}

// Respond returns the response for text and whether it came from the cache.
// history is ignored in stateless mode.
func (r *Responder) Respond(ctx context.Context, text string, history []transcript.Turn) (string, bool, error) {
	messages := r.buildMessages(text, history)
	key := r.fingerprint(text, messages)

	if response, ok := r.cache.Lookup(key); ok {
		observability.RecordCacheLookup(true)
		r.logger.Debug().Str("fingerprint", key).Msg("Response cache hit")
		return response, true, nil
	}
	observability.RecordCacheLookup(false)

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	response, err := r.completer.Complete(callCtx, messages)
	if err != nil {
		return "", false, classify(err)
	}

	r.cache.Store(key, response)
	r.logger.Debug().Str("fingerprint", key).Msg("Response cached")
	return response, false, nil
}

func (r *Responder) buildMessages(text string, history []transcript.Turn) []Message {
	var messages []Message
	if r.systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: r.systemPrompt})
	}
	if r.mode == config.ContextHistory {
		for _, turn := range history {
			messages = append(messages, Message{Role: string(turn.Role), Content: turn.Content})
		}
	}
	return append(messages, Message{Role: string(transcript.RoleUser), Content: text})
}

// fingerprint keys stateless requests by the text alone and history requests
// by the entire message list, so an answer is never reused under another context.
func (r *Responder) fingerprint(text string, messages []Message) string {
	if r.mode != config.ContextHistory {
		return cache.Fingerprint(text)
	}
	raw, _ := json.Marshal(messages)
	return cache.Fingerprint(string(raw))
}
