package provider

import (
	"context"
	"fmt"
)

// Provider is the uniform request/response contract over any LLM vendor.
//
// Implementations translate the canonical transcript and tool definitions
// into their vendor's native shape, issue the request, and map the result
// back onto CompletionResponse. Any transport, auth, rate-limit, or decode
// failure is reported as an *Error identifying the provider.
type Provider interface {
	Name() string
	Model() string
	Chat(ctx context.Context, transcript []Message, tools []ToolDefinition, systemInstruction string) (CompletionResponse, error)
}

// Error wraps a vendor failure with the adapter's name so callers and logs
// can tell which provider failed without inspecting the error chain.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrapErr(providerName string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Provider: providerName, Err: err}
}
