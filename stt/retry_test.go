package stt

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scripted fails with one queued error per call until the queue drains,
// then succeeds.
type scripted struct {
	errs  []error
	text  string
	calls int
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Transcribe(_ context.Context, _ Request) (Result, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return Result{}, err
	}
	return Result{Text: s.text}, nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxRetryAfter: 2 * time.Millisecond}
}

func netErr() *Error {
	return &Error{Provider: "scripted", Kind: KindNetwork, Err: errors.New("dial tcp: connection refused")}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	p := &scripted{errs: []error{netErr(), netErr()}, text: "ok"}

	result, err := WithRetry(p, fastPolicy()).Transcribe(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("Text = %q, want ok", result.Text)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	p := &scripted{errs: []error{netErr(), netErr(), netErr(), netErr()}}

	_, err := WithRetry(p, fastPolicy()).Transcribe(context.Background(), Request{})
	if err == nil {
		t.Fatal("want error after exhausting attempts")
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatal("classification lost in exhaustion wrap")
	}
	if perr.Kind != KindNetwork {
		t.Errorf("Kind = %v, want KindNetwork", perr.Kind)
	}
}

func TestRetryStopsOnAuth(t *testing.T) {
	p := &scripted{errs: []error{
		&Error{Provider: "scripted", Kind: KindAuth, Err: errors.New("status 401")},
	}}

	_, err := WithRetry(p, fastPolicy()).Transcribe(context.Background(), Request{})
	if err == nil {
		t.Fatal("want error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (auth must not be retried)", p.calls)
	}
}

func TestRetryStopsOnUnclassified(t *testing.T) {
	p := &scripted{errs: []error{errors.New("mystery failure")}}

	_, err := WithRetry(p, fastPolicy()).Transcribe(context.Background(), Request{})
	if err == nil {
		t.Fatal("want error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1 (unclassified errors are not retried)", p.calls)
	}
}

func TestRetryCapsRateLimitHint(t *testing.T) {
	p := &scripted{errs: []error{
		&Error{Provider: "scripted", Kind: KindRateLimited, RetryAfter: time.Hour, Err: errors.New("slow down")},
	}, text: "ok"}

	start := time.Now()
	result, err := WithRetry(p, fastPolicy()).Transcribe(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("Text = %q, want ok", result.Text)
	}
	if p.calls != 2 {
		t.Errorf("calls = %d, want 2", p.calls)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("waited %v; the server hint must be capped", elapsed)
	}
}

func TestRetryAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scripted{errs: []error{netErr(), netErr()}}
	r := WithRetry(p, RetryPolicy{MaxAttempts: 3, InitialDelay: time.Hour, MaxRetryAfter: time.Hour})

	done := make(chan error, 1)
	go func() {
		_, err := r.Transcribe(ctx, Request{})
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if p.calls != 1 {
			t.Errorf("calls = %d, want 1", p.calls)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("retry loop did not abort on cancel")
	}
}

type warmable struct {
	scripted
	warmed bool
}

func (w *warmable) Warm() { w.warmed = true }

func TestRetryForwardsWarm(t *testing.T) {
	p := &warmable{}
	r := WithRetry(p, fastPolicy())

	w, ok := r.(Warmer)
	if !ok {
		t.Fatal("retry wrapper should expose Warm")
	}
	w.Warm()
	if !p.warmed {
		t.Error("Warm was not forwarded")
	}
}
