package llm

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/lexiqai/voice-assistant/internal/config"
)

// OpenAICompleter calls an OpenAI-compatible chat completions endpoint (Groq by default)
type OpenAICompleter struct {
	Client *openai.Client
	Model  string
}

// NewOpenAICompleter builds a client against cfg.CompletionBaseURL
func NewOpenAICompleter(cfg *config.Config) *OpenAICompleter {
	clientCfg := openai.DefaultConfig(cfg.GroqAPIKey)
	if cfg.CompletionBaseURL != "" {
		clientCfg.BaseURL = cfg.CompletionBaseURL
	}
	return &OpenAICompleter{
		Client: openai.NewClientWithConfig(clientCfg),
		Model:  cfg.CompletionModel,
	}
}

// Complete issues one non-streaming chat completion request
func (c *OpenAICompleter) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", classify(ErrEmptyCompletion)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", classify(ErrEmptyCompletion)
	}
	return content, nil
}
