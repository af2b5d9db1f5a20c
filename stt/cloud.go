package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"murmur/encoder"
	"murmur/log"
)

// requestTimeout bounds a single upload attempt. The retry layer decides
// whether a timed-out attempt gets another one.
const requestTimeout = 60 * time.Second

// encodeFLAC compresses request PCM for upload. About 2x smaller than
// WAV, which matters on slow uplinks.
func encodeFLAC(req Request) ([]byte, error) {
	enc, err := encoder.NewFlac(req.SampleRate)
	if err != nil {
		return nil, err
	}
	samples := encoder.FromPCM16(req.PCM)
	for i := 0; i < len(samples); i += encoder.BlockSize {
		end := i + encoder.BlockSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

// buildMultipart assembles the OpenAI-style transcription form. The
// language field is omitted for "auto" so the backend detects it.
func buildMultipart(model, language, format string, audio []byte) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio."+format)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", err
	}

	writer.WriteField("model", model)
	writer.WriteField("response_format", "json")
	if language != "" && language != "auto" {
		writer.WriteField("language", language)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &body, writer.FormDataContentType(), nil
}

// multipartTranscribe is the shared upload path for the OpenAI-compatible
// endpoints (Groq, OpenAI).
func multipartTranscribe(ctx context.Context, client *TracedClient, provider, apiKey, model string, req Request) (Result, error) {
	encodeStart := time.Now()
	flacData, err := encodeFLAC(req)
	if err != nil {
		return Result{}, fmt.Errorf("%s: encoding audio: %w", provider, err)
	}
	encodeTime := time.Since(encodeStart)

	body, contentType, err := buildMultipart(model, req.Language, "flac", flacData)
	if err != nil {
		return Result{}, fmt.Errorf("%s: building request: %w", provider, err)
	}

	tctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(tctx, http.MethodPost, client.URL(), body)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", provider, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{}, classifyTransport(provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, classifyStatus(provider, resp.StatusCode, resp.Header, resp.Body)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return Result{}, &Error{Provider: provider, Kind: KindMalformed, Err: fmt.Errorf("response parse error: %w", err)}
	}

	logMetrics(provider, "flac", req, encodeTime, len(flacData), resp)
	return Result{Text: strings.TrimSpace(parsed.Text)}, nil
}

func logMetrics(provider, format string, req Request, encodeTime time.Duration, compressedSize int, resp *TracedResponse) {
	m := log.Metrics{
		AudioLengthS:     req.Duration().Seconds(),
		RawSizeKB:        float64(len(req.PCM)) / 1024,
		CompressedSizeKB: float64(compressedSize) / 1024,
		EncodeTimeMs:     float64(encodeTime.Milliseconds()),
	}
	connReused := false
	if resp.Metrics != nil {
		m.DNSTimeMs = float64(resp.Metrics.DNS.Milliseconds())
		m.TLSTimeMs = float64(resp.Metrics.TLS.Milliseconds())
		m.TTFBMs = float64(resp.Metrics.TTFB.Milliseconds())
		m.TotalTimeMs = float64(resp.Metrics.Total.Milliseconds())
		connReused = resp.Metrics.ConnReused
	}
	log.TranscriptionMetrics(m, provider, format, connReused)
}
