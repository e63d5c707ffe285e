// Package clip writes text to the system clipboard and reports the outcome
// as a value instead of failing the caller.
package clip

import (
	"github.com/atotto/clipboard"
	"github.com/rotisserie/eris"
)

// ErrDisabled is reported when clipboard writes are turned off.
var ErrDisabled = eris.New("clipboard disabled")

// Clipboard accepts plain text.
type Clipboard interface {
	WriteAll(text string) error
}

// Result is the outcome of one clipboard write.
type Result struct {
	Copied bool
	Err    error
}

// System is the OS clipboard (pbcopy, xclip/xsel/wl-copy, or the Windows API).
type System struct{}

func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return eris.New("no clipboard utility available")
	}
	return clipboard.WriteAll(text)
}

// Disabled rejects every write with ErrDisabled.
type Disabled struct{}

func (Disabled) WriteAll(string) error { return ErrDisabled }

// New returns the system clipboard, or Disabled when enabled is false.
func New(enabled bool) Clipboard {
	if !enabled {
		return Disabled{}
	}
	return System{}
}

// Copy writes text to cb. It never panics on a nil clipboard.
func Copy(cb Clipboard, text string) Result {
	if cb == nil {
		return Result{Err: ErrDisabled}
	}
	if err := cb.WriteAll(text); err != nil {
		return Result{Err: eris.Wrap(err, "clipboard write")}
	}
	return Result{Copied: true}
}
