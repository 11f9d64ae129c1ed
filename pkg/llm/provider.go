package llm

import "context"

// Provider defines a chat completion backend.
type Provider interface {
	// Name returns the canonical provider name.
	Name() string

	// Chat performs a single chat completion.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
