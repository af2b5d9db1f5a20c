package stt

import (
	"context"
	"errors"
)

const groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

// Groq posts FLAC-compressed audio to Groq's OpenAI-compatible endpoint.
type Groq struct {
	client *TracedClient
	apiKey string
	model  string
}

func NewGroq(apiKey, model string) (*Groq, error) {
	if apiKey == "" {
		return nil, errors.New("groq: api key not set (groq.api_key or GROQ_API_KEY)")
	}
	return &Groq{client: NewTracedClient(groqURL), apiKey: apiKey, model: model}, nil
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Warm() { g.client.Warm() }

func (g *Groq) Transcribe(ctx context.Context, req Request) (Result, error) {
	return multipartTranscribe(ctx, g.client, g.Name(), g.apiKey, g.model, req)
}
