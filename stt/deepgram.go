package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"murmur/encoder"
	"murmur/log"
)

const deepgramURL = "https://api.deepgram.com/v1/listen"

// Deepgram posts raw WAV to the pre-recorded /listen endpoint. Unlike the
// OpenAI-style APIs it takes the audio as the request body and the options
// as query parameters, and it reports a confidence score.
type Deepgram struct {
	client   *TracedClient
	apiKey   string
	model    string
	features []string
}

func NewDeepgram(apiKey, model string, features []string) (*Deepgram, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: api key not set (deepgram.api_key or DEEPGRAM_API_KEY)")
	}
	return &Deepgram{client: NewTracedClient(deepgramURL), apiKey: apiKey, model: model, features: features}, nil
}

func (d *Deepgram) Name() string { return "deepgram" }

func (d *Deepgram) Warm() { d.client.Warm() }

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) Transcribe(ctx context.Context, req Request) (Result, error) {
	encodeStart := time.Now()
	wav := encoder.EncodeWAV(encoder.FromPCM16(req.PCM), req.SampleRate)
	encodeTime := time.Since(encodeStart)

	u, err := url.Parse(d.client.URL())
	if err != nil {
		return Result{}, fmt.Errorf("deepgram: %w", err)
	}
	q := u.Query()
	q.Set("model", d.model)
	for _, f := range d.features {
		q.Set(f, "true")
	}
	if req.Language == "" || req.Language == "auto" {
		q.Set("detect_language", "true")
	} else {
		q.Set("language", req.Language)
	}
	u.RawQuery = q.Encode()

	tctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(tctx, http.MethodPost, u.String(), bytes.NewReader(wav))
	if err != nil {
		return Result{}, fmt.Errorf("deepgram: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+d.apiKey)
	httpReq.Header.Set("Content-Type", "audio/wav")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return Result{}, classifyTransport(d.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyStatus(d.Name(), resp.StatusCode, resp.Header, resp.Body)
	}

	var parsed deepgramResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return Result{}, &Error{Provider: d.Name(), Kind: KindMalformed, Err: fmt.Errorf("response parse error: %w", err)}
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return Result{}, &Error{Provider: d.Name(), Kind: KindMalformed, Err: errors.New("no alternatives in response")}
	}
	alt := parsed.Results.Channels[0].Alternatives[0]

	logMetrics(d.Name(), "wav", req, encodeTime, len(wav), resp)
	log.Confidence(alt.Confidence)
	return Result{Text: strings.TrimSpace(alt.Transcript), Confidence: alt.Confidence}, nil
}
