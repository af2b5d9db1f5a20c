package audio

import (
	"fmt"
	"sync"
	"time"
)

// StopCause says why the Recorder stopped itself.
type StopCause int

const (
	StopMaxDuration StopCause = iota
	StopSilence
)

func (c StopCause) String() string {
	switch c {
	case StopMaxDuration:
		return "max_duration"
	case StopSilence:
		return "silence"
	}
	return "unknown"
}

// SilenceParams enables auto-stop after sustained sub-threshold audio.
type SilenceParams struct {
	Enabled   bool
	Threshold float64
	Timeout   time.Duration
}

type RecorderConfig struct {
	SampleRate  int
	MaxDuration time.Duration
	Silence     SilenceParams
}

// Recorder owns the capture device for the duration of one recording
// session. Callback frames accumulate in an append-only buffer until
// Stop freezes it or Abort discards it. When the buffer reaches
// MaxDuration (or the silence timeout expires) the Recorder signals
// AutoStop exactly once; the buffer is trimmed at the limit so an
// auto-stopped recording is byte-identical to an explicit stop at that
// instant. All limits are measured in audio time, not wall time.
type Recorder struct {
	capture  CaptureDevice
	cfg      RecorderConfig
	maxBytes int

	mu        sync.Mutex
	buf       []byte
	finalized bool
	fired     bool
	voiceAt   time.Duration

	autoStop chan StopCause
}

// NewRecorder opens and starts the capture device. Failure here is fatal
// for the session only; the daemon can try again on the next start.
func NewRecorder(ctx Context, device *DeviceInfo, cfg RecorderConfig) (*Recorder, error) {
	capture, err := ctx.NewCapture(device, CaptureConfig{
		SampleRate: uint32(cfg.SampleRate),
		Channels:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("opening capture device: %w", err)
	}

	r := &Recorder{
		capture:  capture,
		cfg:      cfg,
		maxBytes: int(int64(cfg.SampleRate) * 2 * int64(cfg.MaxDuration) / int64(time.Second)),
		autoStop: make(chan StopCause, 1),
	}
	capture.SetCallback(r.onData)

	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, fmt.Errorf("starting capture: %w", err)
	}
	return r, nil
}

// AutoStop delivers at most one cause. The owner must still call Stop or
// Abort to finalize the session.
func (r *Recorder) AutoStop() <-chan StopCause { return r.autoStop }

func (r *Recorder) onData(data []byte, _ uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized || r.fired {
		return
	}

	room := r.maxBytes - len(r.buf)
	if len(data) >= room {
		r.buf = append(r.buf, data[:room]...)
		r.fire(StopMaxDuration)
		return
	}
	r.buf = append(r.buf, data...)

	if r.cfg.Silence.Enabled {
		if RMS(data) >= r.cfg.Silence.Threshold {
			r.voiceAt = r.elapsedLocked()
		} else if r.elapsedLocked()-r.voiceAt >= r.cfg.Silence.Timeout {
			r.fire(StopSilence)
		}
	}
}

func (r *Recorder) fire(cause StopCause) {
	r.fired = true
	select {
	case r.autoStop <- cause:
	default:
	}
}

func (r *Recorder) elapsedLocked() time.Duration {
	return time.Duration(len(r.buf)) * time.Second / time.Duration(r.cfg.SampleRate*2)
}

// Elapsed returns the audio time accumulated so far.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsedLocked()
}

// Stop freezes the buffer, releases the device, and returns the captured
// PCM. Safe to call more than once.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	if r.finalized {
		buf := r.buf
		r.mu.Unlock()
		return buf
	}
	r.finalized = true
	buf := r.buf
	r.mu.Unlock()

	// Device teardown happens outside the lock: a capture backend may be
	// mid-callback into onData, which takes the same mutex.
	r.capture.ClearCallback()
	r.capture.Stop()
	r.capture.Close()
	return buf
}

// Abort releases the device and discards everything captured so far.
func (r *Recorder) Abort() {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return
	}
	r.finalized = true
	r.buf = nil
	r.mu.Unlock()

	r.capture.ClearCallback()
	r.capture.Stop()
	r.capture.Close()
}
