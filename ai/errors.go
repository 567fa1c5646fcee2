package ai

import (
	"fmt"
	"time"
)

// ErrorKind classifies a provider failure for retry decisions.
type ErrorKind int

const (
	// KindOther covers transport and server failures with no more
	// specific classification.
	KindOther ErrorKind = iota

	// KindAuth marks authentication and authorization failures.
	// Retrying cannot help.
	KindAuth

	// KindRateLimit marks rate-limit rejections. RetryAfter may carry
	// the server's hint.
	KindRateLimit

	// KindTimeout marks deadline and cancellation failures.
	KindTimeout
)

// String returns the kind's label for logs.
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// ProviderError wraps a failure from an AI provider with enough
// classification for callers to decide whether and when to retry.
type ProviderError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Op names the operation that failed, e.g. "embed", "extract".
	Op string

	// RetryAfter is the server's suggested wait before retrying.
	// Zero when the server gave no hint. Only set for KindRateLimit.
	RetryAfter time.Duration

	// Err is the underlying error.
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying this failure could succeed.
func (e *ProviderError) Retryable() bool {
	return e.Kind != KindAuth
}
