package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider defines the interface for model adapters.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one rendered prompt and returns the raw response text
	Complete(ctx context.Context, req Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Request is one model call.
type Request struct {
	// Prompt is the fully rendered prompt text
	Prompt string

	// InstanceID tags the call with the prompt instance's logical key
	// (used by the scripted provider and for logging)
	InstanceID string

	// Model overrides the configured model name when non-empty
	Model string

	// Temperature for sampling; 0 means use the configured value
	Temperature float32

	// MaxTokens limits the response length; 0 means use the configured value
	MaxTokens int
}

// Response is the raw model output.
type Response struct {
	Text       string
	Model      string
	TokensUsed int
}

// AdapterError classifies a model-call failure so the runner's retry logic
// can tell transient failures (timeouts, rate limits, 5xx) from permanent
// ones (auth, bad request).
type AdapterError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *AdapterError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s adapter error (%s): %v", e.Provider, kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Transient reports whether err is a transient adapter failure worth
// retrying. Context timeouts count as transient; cancellation does not.
func Transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Transient
	}
	return false
}

func transientErr(provider string, err error) error {
	return &AdapterError{Provider: provider, Transient: true, Err: err}
}

func permanentErr(provider string, err error) error {
	return &AdapterError{Provider: provider, Transient: false, Err: err}
}
