package stt

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a provider failure and decides whether another attempt
// is worth making.
type Kind int

const (
	// KindLocalInference covers model load and in-process inference
	// failures. Retrying with the same input cannot succeed.
	KindLocalInference Kind = iota

	// KindNetwork covers connection failures, timeouts, and 5xx
	// responses. Retryable.
	KindNetwork

	// KindAuth covers rejected credentials. Surfaced immediately.
	KindAuth

	// KindRateLimited means the backend asked us to slow down.
	// Retryable after the indicated delay.
	KindRateLimited

	// KindMalformed means the exchange with the backend was invalid:
	// an unparsable body or an unexpected status. Not retryable.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindLocalInference:
		return "local_inference"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindMalformed:
		return "malformed_response"
	}
	return "unknown"
}

// Error is a classified provider failure.
type Error struct {
	Provider   string
	Kind       Kind
	RetryAfter time.Duration // rate limit hint, 0 when absent
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindRateLimited
}

// classifyStatus maps a non-200 response onto the failure taxonomy.
func classifyStatus(provider string, status int, header http.Header, body []byte) *Error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	if detail == "" {
		detail = http.StatusText(status)
	}
	err := fmt.Errorf("status %d: %s", status, detail)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Provider: provider, Kind: KindAuth, Err: err}
	case status == http.StatusTooManyRequests:
		return &Error{Provider: provider, Kind: KindRateLimited, RetryAfter: parseRetryAfter(header), Err: err}
	case status >= 500:
		return &Error{Provider: provider, Kind: KindNetwork, Err: err}
	}
	return &Error{Provider: provider, Kind: KindMalformed, Err: err}
}

// classifyTransport maps a failed round trip. Timeouts count as network
// failures and share their retry policy.
func classifyTransport(provider string, err error) *Error {
	return &Error{Provider: provider, Kind: KindNetwork, Err: err}
}

// parseRetryAfter reads the Retry-After header, either delta-seconds or
// an HTTP date. Returns 0 when absent or unparsable.
func parseRetryAfter(header http.Header) time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
