package openai

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/docent/ai"
)

var retryAfterRe = regexp.MustCompile(`(?i)(?:retry[- ]after[:\s]*|try again in\s*)(\d+)`)

// classify wraps a provider failure in *ai.ProviderError with the error
// kind a retry policy needs. The OpenAI-compatible client surfaces HTTP
// failures as formatted strings, so classification is by message.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	kind := ai.KindOther
	var retryAfter time.Duration

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		kind = ai.KindTimeout
	case strings.Contains(msg, "401"), strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"), strings.Contains(msg, "invalid api key"),
		strings.Contains(msg, "incorrect api key"):
		kind = ai.KindAuth
	case strings.Contains(msg, "429"), strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "too many requests"):
		kind = ai.KindRateLimit
		if m := retryAfterRe.FindStringSubmatch(msg); m != nil {
			if secs, perr := strconv.Atoi(m[1]); perr == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
	}

	return &ai.ProviderError{Kind: kind, Op: op, RetryAfter: retryAfter, Err: err}
}
