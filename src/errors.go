package taleweave

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	ErrKindTimeout     ErrorKind = "timeout"
	ErrKindHTTP        ErrorKind = "http_error"
	ErrKindEmptyResult ErrorKind = "empty_result"
	ErrKindAllFailed   ErrorKind = "all_providers_failed"
)

// excerptLimit bounds the diagnostic body excerpt carried on errors so a
// misbehaving provider cannot blow up logs or error banners.
const excerptLimit = 240

// ProviderError is the normalized failure type for every provider call.
// Kind AllFailed aggregates both attempts so operators can see which
// provider degraded, not just the last one.
type ProviderError struct {
	Kind      ErrorKind
	Provider  string
	Status    int
	Excerpt   string
	Primary   error
	Secondary error
	err       error
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case ErrKindTimeout:
		return fmt.Sprintf("%s: request timed out", e.Provider)
	case ErrKindHTTP:
		if e.Excerpt != "" {
			return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Status, e.Excerpt)
		}
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Status)
	case ErrKindEmptyResult:
		return fmt.Sprintf("%s: empty result from provider", e.Provider)
	case ErrKindAllFailed:
		return fmt.Sprintf("all providers failed: primary: %v; secondary: %v", e.Primary, e.Secondary)
	}
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Provider, e.err)
	}
	return fmt.Sprintf("%s: provider error", e.Provider)
}

func (e *ProviderError) Unwrap() error { return e.err }

// NewTimeoutError reports a call that exceeded its deadline.
func NewTimeoutError(provider string, err error) *ProviderError {
	return &ProviderError{Kind: ErrKindTimeout, Provider: provider, err: err}
}

// NewHTTPError reports a non-success HTTP status. The body is truncated, not
// dropped: the excerpt is the only diagnostic an operator gets.
func NewHTTPError(provider string, status int, body string) *ProviderError {
	return &ProviderError{Kind: ErrKindHTTP, Provider: provider, Status: status, Excerpt: Excerpt(body)}
}

// NewEmptyResultError reports a success response missing the expected payload.
func NewEmptyResultError(provider string) *ProviderError {
	return &ProviderError{Kind: ErrKindEmptyResult, Provider: provider}
}

// NewAllFailedError aggregates the primary and secondary failures of one
// logical operation.
func NewAllFailedError(primary, secondary error) *ProviderError {
	return &ProviderError{Kind: ErrKindAllFailed, Primary: primary, Secondary: secondary}
}

// ClassifyProviderError wraps an arbitrary SDK error into a ProviderError,
// detecting context timeouts. Errors that are already classified pass
// through unchanged.
func ClassifyProviderError(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(provider, err)
	}
	return &ProviderError{Provider: provider, Excerpt: Excerpt(err.Error()), err: err}
}

// Excerpt truncates s to the bounded diagnostic length.
func Excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit] + "..."
}
