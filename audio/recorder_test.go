package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// manualContext hands out captures whose frames the test feeds directly,
// so buffers are byte-exact and nothing depends on goroutine timing.
type manualContext struct {
	openErr  error
	startErr error
	last     *manualCapture
}

func (m *manualContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "manual", Name: "manual capture"}}, nil
}

func (m *manualContext) Close() {}

func (m *manualContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.last = &manualCapture{startErr: m.startErr}
	return m.last, nil
}

type manualCapture struct {
	cb       DataCallback
	startErr error
	started  bool
	stopped  bool
	closed   bool
}

func (c *manualCapture) Start() error {
	if c.startErr != nil {
		return c.startErr
	}
	c.started = true
	return nil
}

func (c *manualCapture) Stop()                      { c.stopped = true }
func (c *manualCapture) Close()                     { c.closed = true }
func (c *manualCapture) SetCallback(cb DataCallback) { c.cb = cb }
func (c *manualCapture) ClearCallback()             { c.cb = nil }

func (c *manualCapture) feed(data []byte) {
	if c.cb != nil {
		c.cb(data, uint32(len(data)/2))
	}
}

// loudPCM returns n bytes of a full-ish square wave, well above any
// silence threshold.
func loudPCM(n int) []byte {
	data := make([]byte, n)
	for i := 0; i < n/2; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(8000)))
	}
	return data
}

func quietPCM(n int) []byte {
	return make([]byte, n)
}

func newTestRecorder(t *testing.T, ctx *manualContext, cfg RecorderConfig) *Recorder {
	t.Helper()
	r, err := NewRecorder(ctx, nil, cfg)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	return r
}

func TestRecorderAccumulatesExactly(t *testing.T) {
	ctx := &manualContext{}
	r := newTestRecorder(t, ctx, RecorderConfig{SampleRate: 16000, MaxDuration: 10 * time.Second})

	chunks := [][]byte{loudPCM(2048), loudPCM(100), loudPCM(4096)}
	var want []byte
	for _, c := range chunks {
		ctx.last.feed(c)
		want = append(want, c...)
	}

	got := r.Stop()
	if !bytes.Equal(got, want) {
		t.Fatalf("captured %d bytes, want %d (content mismatch)", len(got), len(want))
	}
	if !ctx.last.stopped || !ctx.last.closed {
		t.Error("capture device not released")
	}
}

func TestRecorderMaxDuration(t *testing.T) {
	ctx := &manualContext{}
	// 1s at 16kHz mono s16le = 32000 bytes.
	r := newTestRecorder(t, ctx, RecorderConfig{SampleRate: 16000, MaxDuration: time.Second})

	ctx.last.feed(loudPCM(20000))
	select {
	case <-r.AutoStop():
		t.Fatal("auto-stop fired before the limit")
	default:
	}

	ctx.last.feed(loudPCM(20000))
	select {
	case cause := <-r.AutoStop():
		if cause != StopMaxDuration {
			t.Errorf("cause = %v, want max_duration", cause)
		}
	default:
		t.Fatal("auto-stop did not fire at the limit")
	}

	// Frames after the limit are dropped; the buffer is trimmed at it.
	ctx.last.feed(loudPCM(20000))
	got := r.Stop()
	if len(got) != 32000 {
		t.Errorf("captured %d bytes, want exactly 32000", len(got))
	}
}

func TestRecorderSilenceAutoStop(t *testing.T) {
	ctx := &manualContext{}
	r := newTestRecorder(t, ctx, RecorderConfig{
		SampleRate:  16000,
		MaxDuration: 100 * time.Second,
		Silence: SilenceParams{
			Enabled:   true,
			Threshold: 0.01,
			Timeout:   time.Second,
		},
	})

	half := 16000 // 0.5s of audio

	ctx.last.feed(loudPCM(half))
	ctx.last.feed(quietPCM(half))
	select {
	case <-r.AutoStop():
		t.Fatal("fired before the silence timeout")
	default:
	}

	ctx.last.feed(quietPCM(half))
	select {
	case cause := <-r.AutoStop():
		if cause != StopSilence {
			t.Errorf("cause = %v, want silence", cause)
		}
	default:
		t.Fatal("silence auto-stop did not fire")
	}
}

func TestRecorderSilenceDisabled(t *testing.T) {
	ctx := &manualContext{}
	r := newTestRecorder(t, ctx, RecorderConfig{SampleRate: 16000, MaxDuration: 100 * time.Second})

	for i := 0; i < 20; i++ {
		ctx.last.feed(quietPCM(16000))
	}
	select {
	case cause := <-r.AutoStop():
		t.Fatalf("unexpected auto-stop: %v", cause)
	default:
	}
	r.Abort()
}

func TestRecorderAbortDiscards(t *testing.T) {
	ctx := &manualContext{}
	r := newTestRecorder(t, ctx, RecorderConfig{SampleRate: 16000, MaxDuration: 10 * time.Second})

	ctx.last.feed(loudPCM(4096))
	r.Abort()

	if got := r.Stop(); len(got) != 0 {
		t.Errorf("aborted recorder returned %d bytes, want 0", len(got))
	}
	if !ctx.last.stopped || !ctx.last.closed {
		t.Error("capture device not released on abort")
	}
}

func TestRecorderStopIdempotent(t *testing.T) {
	ctx := &manualContext{}
	r := newTestRecorder(t, ctx, RecorderConfig{SampleRate: 16000, MaxDuration: 10 * time.Second})

	ctx.last.feed(loudPCM(1024))
	first := r.Stop()
	second := r.Stop()
	if !bytes.Equal(first, second) {
		t.Error("second Stop returned different buffer")
	}
}

func TestRecorderOpenFailure(t *testing.T) {
	ctx := &manualContext{openErr: errors.New("no such device")}
	if _, err := NewRecorder(ctx, nil, RecorderConfig{SampleRate: 16000, MaxDuration: time.Second}); err == nil {
		t.Fatal("expected error when device cannot be opened")
	}
}

func TestRecorderStartFailure(t *testing.T) {
	ctx := &manualContext{startErr: errors.New("device busy")}
	if _, err := NewRecorder(ctx, nil, RecorderConfig{SampleRate: 16000, MaxDuration: time.Second}); err == nil {
		t.Fatal("expected error when device cannot start")
	}
	if !ctx.last.closed {
		t.Error("capture device leaked after failed start")
	}
}

func TestRecorderElapsed(t *testing.T) {
	ctx := &manualContext{}
	r := newTestRecorder(t, ctx, RecorderConfig{SampleRate: 16000, MaxDuration: 10 * time.Second})

	ctx.last.feed(loudPCM(32000))
	if got := r.Elapsed(); got != time.Second {
		t.Errorf("Elapsed = %v, want 1s", got)
	}
	r.Abort()
}
