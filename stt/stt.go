// Package stt unifies the transcription backends behind one Provider
// contract: local whisper.cpp inference and the Groq, OpenAI, and
// Deepgram HTTP APIs.
package stt

import (
	"context"
	"fmt"
	"time"

	"murmur/config"
	"murmur/model"
)

// Request is one finalized capture handed to a provider. It is built
// after the recording stops and consumed exactly once.
type Request struct {
	PCM        []byte // mono s16le
	SampleRate int
	Language   string // "auto" detects
	Provider   string
}

// Duration returns the audio length of the request.
func (r Request) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.PCM)) * time.Second / time.Duration(r.SampleRate*2)
}

// Result carries the recognized text. Empty text is a valid outcome
// (silence in, nothing out).
type Result struct {
	Text       string
	Confidence float64 // 0 when the backend does not report one
}

// Provider is a transcription backend, selected once from configuration.
// murmur never runs two calls concurrently, but a provider is reused
// across many sessions.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// Warmer is implemented by backends that benefit from pre-establishing
// their connection while the user is still speaking.
type Warmer interface {
	Warm()
}

// New builds the configured provider. Cloud backends are wrapped with
// the default retry policy; local inference is never retried.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderWhisper:
		path, err := model.Resolve(cfg)
		if err != nil {
			return nil, err
		}
		return NewWhisper(path, cfg.Whisper.Threads), nil
	case config.ProviderGroq:
		p, err := NewGroq(cfg.GroqKey(), cfg.Groq.Model)
		if err != nil {
			return nil, err
		}
		return WithRetry(p, DefaultRetryPolicy()), nil
	case config.ProviderOpenAI:
		p, err := NewOpenAI(cfg.OpenAIKey(), cfg.OpenAI.Model)
		if err != nil {
			return nil, err
		}
		return WithRetry(p, DefaultRetryPolicy()), nil
	case config.ProviderDeepgram:
		p, err := NewDeepgram(cfg.DeepgramKey(), cfg.Deepgram.Model, cfg.Deepgram.Features)
		if err != nil {
			return nil, err
		}
		return WithRetry(p, DefaultRetryPolicy()), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
