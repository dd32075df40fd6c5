package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ProviderError reports a failed call to an external model provider.
// Transient errors (rate limits, 5xx, network failures) are retryable with
// bounded backoff; everything else (bad request, auth) fails immediately.
type ProviderError struct {
	Provider  string // "openai", "ollama", "anthropic"
	Status    int    // HTTP status, 0 for transport-level failures
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// statusError builds a ProviderError from a non-200 HTTP response.
// 429 and all 5xx responses are transient.
func statusError(provider string, status int, body []byte) *ProviderError {
	return &ProviderError{
		Provider:  provider,
		Status:    status,
		Transient: status == 429 || status >= 500,
		Err:       fmt.Errorf("%s", body),
	}
}

// transportError builds a ProviderError from a failed HTTP round trip.
// Transport failures are always worth retrying.
func transportError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Transient: true, Err: err}
}

// IsTransient reports whether err is worth retrying: a transient
// ProviderError, a network error, or a provider-side deadline overrun.
// Caller-initiated cancellation is never transient.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
