package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// TokenHandler receives response fragments in order as the model emits them.
type TokenHandler func(token string)

// StreamingProvider is implemented by backends that can deliver the response
// incrementally. Callers type-assert; a provider without it still serves the
// same content through Chat.
type StreamingProvider interface {
	LLMProvider

	// StreamChat sends a chat history and invokes onToken for each fragment,
	// returning the assembled full response.
	StreamChat(ctx context.Context, history []Message, onToken TokenHandler, options ...Option) (string, error)
}
