//go:build linux

package paste

import (
	"sync"

	"github.com/micmonay/keybd_event"
)

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
	})
	return kbErr
}

// Send taps Ctrl+V. keybd_event drives a virtual uinput keyboard, so a
// permission error here usually means /dev/uinput is not writable.
func Send() error {
	if err := Init(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	return kb.Launching()
}

// Check reports whether the virtual keyboard can be created without
// sending anything.
func Check() error {
	return Init()
}
