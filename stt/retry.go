package stt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"murmur/log"
)

// RetryPolicy bounds the retry loop around a cloud provider.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxRetryAfter time.Duration // cap on server-requested waits
}

// DefaultRetryPolicy matches the bounded backoff used for cloud calls:
// up to three attempts, doubling delay, server hints capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxRetryAfter: 10 * time.Second,
	}
}

type retryProvider struct {
	inner  Provider
	policy RetryPolicy
}

// WithRetry wraps a provider with the given policy. Only failures that
// classify as retryable are attempted again; everything else, including
// unclassified errors, surfaces immediately.
func WithRetry(inner Provider, policy RetryPolicy) Provider {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &retryProvider{inner: inner, policy: policy}
}

func (r *retryProvider) Name() string { return r.inner.Name() }

// Warm forwards to the wrapped provider when it supports warming.
func (r *retryProvider) Warm() {
	if w, ok := r.inner.(Warmer); ok {
		w.Warm()
	}
}

func (r *retryProvider) Transcribe(ctx context.Context, req Request) (Result, error) {
	delay := r.policy.InitialDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		result, err := r.inner.Transcribe(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		var perr *Error
		if !errors.As(err, &perr) || !perr.Retryable() {
			return Result{}, err
		}
		if attempt >= r.policy.MaxAttempts {
			break
		}

		wait := delay
		if perr.Kind == KindRateLimited && perr.RetryAfter > 0 {
			wait = perr.RetryAfter
			if wait > r.policy.MaxRetryAfter {
				wait = r.policy.MaxRetryAfter
			}
		}
		log.Retry(r.inner.Name(), attempt, wait, err)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return Result{}, fmt.Errorf("transcription aborted: %w", ctx.Err())
		}
		delay *= 2
	}
	return Result{}, fmt.Errorf("%d attempts failed: %w", r.policy.MaxAttempts, lastErr)
}
