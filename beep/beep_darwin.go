//go:build darwin

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// player keeps one malgo playback device open and streams the current
// cue from its data callback. The callback reads the cue through
// atomics, so triggering a new cue never blocks the audio thread.
type player struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu      sync.Mutex // serializes Start/Stop against device recreation
	current atomic.Pointer[[]byte]
	pos     atomic.Uint32
}

var (
	sound     cues
	pb        *player
	soundOnce sync.Once
)

func initSound() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}

	// Shorter ticks than on Linux: CoreAudio adds its own output latency.
	sound = generateCues(0.03, 0.05)

	p := &player{ctx: ctx}
	if err := p.openDevice(); err != nil {
		ctx.Uninit()
		return
	}
	pb = p
}

func (p *player) openDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	dev, err := malgo.InitDevice(p.ctx.Context, config, malgo.DeviceCallbacks{
		Data: p.fill,
	})
	if err != nil {
		return err
	}
	p.device = dev
	return nil
}

// fill runs on the audio thread. It copies the next slice of the current
// cue into the output buffer and zero-fills the rest.
func (p *player) fill(out, _ []byte, frameCount uint32) {
	cue := p.current.Load()
	want := frameCount * 2
	if cue == nil {
		zero(out[:want])
		return
	}

	pos := p.pos.Load()
	remaining := uint32(len(*cue)) - pos
	if remaining == 0 {
		p.current.Store(nil)
		zero(out[:want])
		return
	}

	n := want
	if n > remaining {
		n = remaining
	}
	copy(out[:n], (*cue)[pos:pos+n])
	p.pos.Store(pos + n)
	zero(out[n:want])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (p *player) play(samples []int16) {
	if len(samples) == 0 {
		return
	}
	cue := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(cue[i*2:], uint16(s))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// A restart flushes whatever cue was still draining.
	p.device.Stop()
	p.pos.Store(0)
	p.current.Store(&cue)

	if err := p.device.Start(); err != nil {
		// CoreAudio invalidates devices across sleep/wake; reopen once.
		p.device.Uninit()
		if err := p.openDevice(); err != nil {
			p.current.Store(nil)
			return
		}
		if err := p.device.Start(); err != nil {
			p.current.Store(nil)
		}
	}
}

func Init() {
	soundOnce.Do(initSound)
}

func PlayStart() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	if pb != nil {
		pb.play(sound.start)
	}
}

func PlayEnd() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	if pb != nil {
		pb.play(sound.end)
	}
}

func PlayError() {
	if disabled {
		return
	}
	soundOnce.Do(initSound)
	if pb != nil {
		pb.play(sound.fail)
	}
}
