package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"murmur/log"
)

// Whisper runs whisper.cpp inference in-process. The ggml model is loaded
// on first use and then shared across sessions; a missing model file fails
// only that session, and load is attempted again on the next one. Contexts
// are per-call because they are not thread-safe.
type Whisper struct {
	modelPath string
	threads   int

	mu    sync.Mutex
	model whisperlib.Model
}

func NewWhisper(modelPath string, threads int) *Whisper {
	return &Whisper{modelPath: modelPath, threads: threads}
}

func (w *Whisper) Name() string { return "whisper" }

// Close releases the model if it was loaded.
func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		err := w.model.Close()
		w.model = nil
		return err
	}
	return nil
}

func (w *Whisper) load() (whisperlib.Model, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model != nil {
		return w.model, nil
	}
	if _, err := os.Stat(w.modelPath); err != nil {
		return nil, fmt.Errorf("model file %q: %w (fetch it with: murmur download-model)", w.modelPath, err)
	}
	model, err := whisperlib.New(w.modelPath)
	if err != nil {
		return nil, fmt.Errorf("loading model %q: %w", w.modelPath, err)
	}
	w.model = model
	return model, nil
}

func (w *Whisper) Transcribe(ctx context.Context, req Request) (Result, error) {
	model, err := w.load()
	if err != nil {
		return Result{}, &Error{Provider: w.Name(), Kind: KindLocalInference, Err: err}
	}
	// Inference itself cannot be interrupted, so honor a pending cancel
	// before committing to it.
	if err := ctx.Err(); err != nil {
		return Result{}, &Error{Provider: w.Name(), Kind: KindLocalInference, Err: err}
	}

	start := time.Now()
	samples := pcmToFloat32(req.PCM)

	wctx, err := model.NewContext()
	if err != nil {
		return Result{}, &Error{Provider: w.Name(), Kind: KindLocalInference, Err: fmt.Errorf("create context: %w", err)}
	}
	if req.Language != "" {
		// "auto" selects detection. Fails on English-only models; keep
		// the model default then.
		if err := wctx.SetLanguage(req.Language); err != nil {
			log.Warnf("whisper: set language %q: %v", req.Language, err)
		}
	}
	wctx.SetTranslate(false)
	if w.threads > 0 {
		wctx.SetThreads(uint(w.threads))
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, &Error{Provider: w.Name(), Kind: KindLocalInference, Err: fmt.Errorf("process audio: %w", err)}
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, &Error{Provider: w.Name(), Kind: KindLocalInference, Err: fmt.Errorf("read segment: %w", err)}
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	log.TranscriptionMetrics(log.Metrics{
		AudioLengthS: req.Duration().Seconds(),
		RawSizeKB:    float64(len(req.PCM)) / 1024,
		TotalTimeMs:  float64(time.Since(start).Milliseconds()),
	}, w.Name(), "pcm", false)

	return Result{Text: strings.Join(parts, " ")}, nil
}

// pcmToFloat32 converts mono s16le bytes to the normalized float samples
// whisper.cpp expects. An odd trailing byte is dropped.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		samples[i] = float32(s) / 32768.0
	}
	return samples
}
