package stt

import (
	"context"
	"sync"
	"time"
)

// FakeProvider is a scriptable in-memory backend, used by tests and by
// the -test-provider flag.
type FakeProvider struct {
	Text  string
	Err   error
	Delay time.Duration
	Gate  chan struct{} // when non-nil, Transcribe blocks on it

	mu    sync.Mutex
	calls int
	last  Request
}

func NewFake(text string, err error) *FakeProvider {
	return &FakeProvider{Text: text, Err: err}
}

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) Transcribe(ctx context.Context, req Request) (Result, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	f.mu.Unlock()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return Result{}, &Error{Provider: f.Name(), Kind: KindNetwork, Err: ctx.Err()}
		}
	}
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return Result{}, &Error{Provider: f.Name(), Kind: KindNetwork, Err: ctx.Err()}
		}
	}
	if f.Err != nil {
		return Result{}, f.Err
	}
	return Result{Text: f.Text}, nil
}

// Calls reports how many times Transcribe ran.
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Last returns the most recent request.
func (f *FakeProvider) Last() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
