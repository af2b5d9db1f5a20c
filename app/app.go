// Package app is the daemon's core: a single event-loop goroutine owns
// the recording session and the Idle/Recording/Transcribing cycle.
// Control commands, capture auto-stops, and transcription results all
// funnel through that loop, so no state is ever touched from two
// goroutines.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"murmur/audio"
	"murmur/beep"
	"murmur/config"
	"murmur/control"
	"murmur/log"
	"murmur/stt"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Outputter delivers a finished transcript.
type Outputter interface {
	Deliver(text string) error
}

// minCapture is the shortest capture worth sending to a provider.
// Anything under it is click noise from a fast toggle-toggle.
const minCapture = 100 * time.Millisecond

type Options struct {
	Config   *config.Config
	Audio    audio.Context
	Provider stt.Provider
	Output   Outputter
}

type App struct {
	cfg      *config.Config
	audioCtx audio.Context
	provider stt.Provider
	out      Outputter
	device   *audio.DeviceInfo

	cmds    chan request
	results chan outcome
	done    chan struct{}

	// Owned by the Run loop.
	state     State
	rec       *audio.Recorder
	sessionID string
	lastErr   string
}

type request struct {
	cmd   control.Command
	reply chan string
}

// outcome is a finished transcription re-entering the loop.
type outcome struct {
	sessionID string
	audioS    float64
	text      string
	err       error
}

func New(opts Options) (*App, error) {
	device, err := audio.FindDevice(opts.Audio, opts.Config.Device)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:      opts.Config,
		audioCtx: opts.Audio,
		provider: opts.Provider,
		out:      opts.Output,
		device:   device,
		cmds:     make(chan request),
		results:  make(chan outcome, 1),
		done:     make(chan struct{}),
		state:    StateIdle,
	}, nil
}

// Do submits one command and waits for its reply. Safe from any
// goroutine; the loop serializes execution. Implements control.Handler.
func (a *App) Do(cmd control.Command) string {
	req := request{cmd: cmd, reply: make(chan string, 1)}
	select {
	case a.cmds <- req:
		return <-req.reply
	case <-a.done:
		return "error: shutting down"
	}
}

// Run owns all session state until ctx ends. On shutdown an active
// recording is aborted; an in-flight transcription is awaited and its
// result delivered.
func (a *App) Run(ctx context.Context) error {
	defer close(a.done)

	for {
		var autoStop <-chan audio.StopCause
		if a.rec != nil {
			autoStop = a.rec.AutoStop()
		}

		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case req := <-a.cmds:
			req.reply <- a.handleCommand(req.cmd)
		case cause := <-autoStop:
			a.stopRecording(cause.String())
		case out := <-a.results:
			a.finishTranscription(out)
		}
	}
}

func (a *App) handleCommand(cmd control.Command) string {
	switch cmd {
	case control.Status:
		return a.statusText()
	case control.Toggle:
		switch a.state {
		case StateRecording:
			return a.stopRecording("toggle")
		case StateTranscribing:
			return control.RespBusy
		default:
			return a.startRecording()
		}
	case control.Start:
		if a.state == StateRecording || a.state == StateTranscribing {
			return control.RespBusy
		}
		return a.startRecording()
	case control.Stop:
		switch a.state {
		case StateRecording:
			return a.stopRecording("stop")
		case StateTranscribing:
			return control.RespBusy
		default:
			return a.statusText()
		}
	case control.Cancel:
		switch a.state {
		case StateRecording:
			return a.cancelRecording()
		case StateTranscribing:
			// The in-flight call is never interrupted; its result
			// arrives and is delivered normally.
			return control.RespBusy
		default:
			return a.statusText()
		}
	}
	return fmt.Sprintf("error: unhandled command %v", cmd)
}

func (a *App) startRecording() string {
	// A new session clears the previous failure from status.
	a.lastErr = ""

	rec, err := audio.NewRecorder(a.audioCtx, a.device, audio.RecorderConfig{
		SampleRate:  a.cfg.SampleRate,
		MaxDuration: time.Duration(a.cfg.MaxDurationS) * time.Second,
		Silence: audio.SilenceParams{
			Enabled:   a.cfg.Silence.Enabled,
			Threshold: a.cfg.Silence.Threshold,
			Timeout:   time.Duration(a.cfg.Silence.TimeoutS) * time.Second,
		},
	})
	if err != nil {
		// Session-fatal only: the daemon stays up and the next start
		// opens the device from scratch.
		a.reportError(fmt.Errorf("recording: %w", err))
		return fmt.Sprintf("error: %v", err)
	}

	a.rec = rec
	a.sessionID = uuid.NewString()
	a.setState(StateRecording, "start")
	log.SessionStart(a.sessionID, a.provider.Name(), a.deviceName())

	// Cloud providers get their TLS handshake out of the way while the
	// user is still speaking.
	if w, ok := a.provider.(stt.Warmer); ok {
		go w.Warm()
	}
	beep.PlayStart()
	return control.RespOK
}

func (a *App) stopRecording(cause string) string {
	pcm := a.rec.Stop()
	a.rec = nil
	audioLen := time.Duration(len(pcm)) * time.Second / time.Duration(a.cfg.SampleRate*2)
	beep.PlayEnd()

	if audioLen < minCapture {
		log.Infof("session %s: audio too short (%dms), skipping transcription", a.sessionID, audioLen.Milliseconds())
		log.SessionEnd(a.sessionID, "empty", audioLen.Seconds())
		a.sessionID = ""
		a.setState(StateIdle, "audio_too_short")
		return "error: audio too short"
	}

	req := stt.Request{
		PCM:        pcm,
		SampleRate: a.cfg.SampleRate,
		Language:   a.cfg.Language,
		Provider:   a.provider.Name(),
	}
	a.setState(StateTranscribing, cause)
	go a.transcribe(a.sessionID, req)
	return control.RespOK
}

func (a *App) cancelRecording() string {
	audioS := a.rec.Elapsed().Seconds()
	a.rec.Abort()
	a.rec = nil
	log.SessionEnd(a.sessionID, "cancelled", audioS)
	a.sessionID = ""
	a.setState(StateIdle, "cancel")
	return control.RespOK
}

// transcribe runs off-loop so a slow provider never blocks status or
// cancel handling. The context is deliberately not the daemon's: a
// result in flight is delivered even through shutdown.
func (a *App) transcribe(id string, req stt.Request) {
	result, err := a.provider.Transcribe(context.Background(), req)
	a.results <- outcome{
		sessionID: id,
		audioS:    req.Duration().Seconds(),
		text:      result.Text,
		err:       err,
	}
}

func (a *App) finishTranscription(out outcome) {
	// Only one transcription can be in flight, and nothing clears
	// Transcribing except its own result.
	if a.state != StateTranscribing {
		log.Warnf("dropping transcription result for session %s in state %s", out.sessionID, a.state)
		return
	}

	if out.err != nil {
		log.SessionEnd(out.sessionID, "error", out.audioS)
		a.sessionID = ""
		a.reportError(out.err)
		return
	}

	if out.text == "" {
		log.Info("transcription empty, nothing to deliver")
		log.SessionEnd(out.sessionID, "empty", out.audioS)
		a.sessionID = ""
		a.setState(StateIdle, "empty_result")
		return
	}

	// Journal first: the transcript must survive even a broken clipboard.
	log.TranscriptionText(out.text)
	if err := a.out.Deliver(out.text); err != nil {
		log.Errorf("delivery failed: %v", err)
		a.lastErr = err.Error()
		beep.PlayError()
	}
	log.SessionEnd(out.sessionID, "delivered", out.audioS)
	a.sessionID = ""
	a.setState(StateIdle, "delivered")
}

// reportError logs the failure, plays the error cue, and passes through
// Error back to Idle. The machine is immediately ready for the next
// session; status keeps showing the error until one starts.
func (a *App) reportError(err error) {
	a.lastErr = err.Error()
	log.Errorf("%v", err)
	beep.PlayError()
	a.setState(StateError, "failure")
	a.setState(StateIdle, "auto_reset")
}

func (a *App) statusText() string {
	switch a.state {
	case StateRecording:
		return fmt.Sprintf("recording %.1fs", a.rec.Elapsed().Seconds())
	case StateTranscribing:
		return "transcribing"
	default:
		if a.lastErr != "" {
			return fmt.Sprintf("idle (last error: %s)", a.lastErr)
		}
		return "idle"
	}
}

func (a *App) setState(s State, cause string) {
	if a.state == s {
		return
	}
	log.StateChange(a.state.String(), s.String(), cause)
	a.state = s
}

func (a *App) deviceName() string {
	if a.device == nil {
		return "default"
	}
	return a.device.Name
}

func (a *App) shutdown() {
	if a.rec != nil {
		audioS := a.rec.Elapsed().Seconds()
		a.rec.Abort()
		a.rec = nil
		log.SessionEnd(a.sessionID, "cancelled", audioS)
		a.sessionID = ""
		a.setState(StateIdle, "shutdown")
	}
	if a.state == StateTranscribing {
		log.Info("waiting for in-flight transcription")
		a.finishTranscription(<-a.results)
	}
}
