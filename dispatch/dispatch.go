// Package dispatch delivers finished transcriptions: always to the
// clipboard, optionally pasted into the focused window.
package dispatch

import (
	"fmt"
	"time"

	"murmur/clipboard"
	"murmur/log"
	"murmur/paste"
)

// Clipboard is the subset of clipboard operations delivery needs.
type Clipboard interface {
	Read() (string, error)
	Copy(text string) error
}

// Paster sends the paste chord to the focused window.
type Paster interface {
	Send() error
}

type Config struct {
	AutoPaste        bool
	RestoreClipboard bool
	// RestoreDelay is how long the pasted text stays on the clipboard
	// before the previous contents come back. The paste chord must land
	// in the target window first.
	RestoreDelay time.Duration
}

const defaultRestoreDelay = 600 * time.Millisecond

type Dispatcher struct {
	cfg   Config
	clip  Clipboard
	paste Paster
}

func New(cfg Config) *Dispatcher {
	return NewWithBackends(cfg, systemClipboard{}, systemPaster{})
}

// NewWithBackends exists for tests.
func NewWithBackends(cfg Config, clip Clipboard, p Paster) *Dispatcher {
	if cfg.RestoreDelay <= 0 {
		cfg.RestoreDelay = defaultRestoreDelay
	}
	return &Dispatcher{cfg: cfg, clip: clip, paste: p}
}

// Deliver puts text on the clipboard and, when auto-paste is on, pastes
// it and later restores what the clipboard held before. A delivery
// failure is returned for reporting but must never kill the daemon; the
// transcription is already final at this point.
func (d *Dispatcher) Deliver(text string) error {
	var prev string
	restore := false
	if d.cfg.AutoPaste && d.cfg.RestoreClipboard {
		if p, err := d.clip.Read(); err == nil && p != "" {
			prev = p
			restore = true
		}
	}

	if err := d.clip.Copy(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if !d.cfg.AutoPaste {
		return nil
	}

	if err := d.paste.Send(); err != nil {
		// The text is on the clipboard, so a manual paste still works.
		// Skip the restore: it would wipe the only copy.
		return fmt.Errorf("paste: %w", err)
	}

	if restore {
		go func() {
			time.Sleep(d.cfg.RestoreDelay)
			if err := d.clip.Copy(prev); err != nil {
				log.Warnf("clipboard restore failed: %v", err)
			}
		}()
	}
	return nil
}

type systemClipboard struct{}

func (systemClipboard) Read() (string, error) { return clipboard.Read() }
func (systemClipboard) Copy(text string) error { return clipboard.Copy(text) }

type systemPaster struct{}

func (systemPaster) Send() error { return paste.Send() }
