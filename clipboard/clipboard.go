// Package clipboard wraps the system clipboard. Paste simulation lives
// in package paste; this package only moves text in and out.
package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

// Check verifies the platform clipboard is usable. atotto shells out to
// xclip/xsel on X11, so a missing helper binary shows up here rather
// than mid-session.
func Check() error {
	if cb.Unsupported {
		return errors.New("no clipboard backend (install xclip or xsel)")
	}
	return nil
}
