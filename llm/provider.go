package llm

import "context"

// Provider is the interface that LLM backends must implement.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string
	// IsAvailable reports whether the backend is reachable.
	IsAvailable(ctx context.Context) bool
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
