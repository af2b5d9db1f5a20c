package stt

import (
	"context"
	"errors"
)

const openaiURL = "https://api.openai.com/v1/audio/transcriptions"

// OpenAI posts FLAC-compressed audio to the OpenAI transcription endpoint.
// Protocol-wise identical to Groq; only host, key, and model differ.
type OpenAI struct {
	client *TracedClient
	apiKey string
	model  string
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key not set (openai.api_key or OPENAI_API_KEY)")
	}
	return &OpenAI{client: NewTracedClient(openaiURL), apiKey: apiKey, model: model}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Warm() { o.client.Warm() }

func (o *OpenAI) Transcribe(ctx context.Context, req Request) (Result, error) {
	return multipartTranscribe(ctx, o.client, o.Name(), o.apiKey, o.model, req)
}
