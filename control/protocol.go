// Package control is the daemon's command channel: a Unix domain socket
// speaking a one-line text protocol, one command per connection. Any
// process that can write to the socket can drive the daemon, which is
// the point: hotkey daemons, window manager bindings, and plain nc all
// look the same from here.
package control

import "strings"

// Command is one of the five words the daemon understands.
type Command int

const (
	Toggle Command = iota
	Start
	Stop
	Cancel
	Status
)

func (c Command) String() string {
	switch c {
	case Toggle:
		return "toggle"
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Cancel:
		return "cancel"
	case Status:
		return "status"
	}
	return "unknown"
}

// ParseCommand maps a trimmed, case-insensitive word to a Command.
func ParseCommand(word string) (Command, bool) {
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "toggle":
		return Toggle, true
	case "start":
		return Start, true
	case "stop":
		return Stop, true
	case "cancel":
		return Cancel, true
	case "status":
		return Status, true
	}
	return 0, false
}

// Well-known response lines. State queries answer with the state name
// instead, and failures with "error: <reason>".
const (
	RespOK   = "ok"
	RespBusy = "busy"
)
