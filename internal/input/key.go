// Package input provides system-wide keyboard event capture on Linux via
// evdev. Reading /dev/input requires membership in the "input" group (or
// root); the listener reports that case as a distinct, non-fatal error so the
// daemon can keep running with the hotkey feature disabled.
package input

import "time"

// Linux input-event constants (linux/input-event-codes.h).
const (
	evKey   = 1
	evSyn   = 0
	keyDown = 1
	keyUp   = 0
	keyHold = 2

	codeLeftShift  = 42 // KEY_LEFTSHIFT
	codeRightShift = 54 // KEY_RIGHTSHIFT
)

// Key classifies the key of an event. Only the Shift keys are identified;
// everything else is Other, which is all the double-press detector needs.
type Key int

const (
	// KeyOther is any key that is not a Shift key.
	KeyOther Key = iota
	// KeyShiftLeft is the left Shift key.
	KeyShiftLeft
	// KeyShiftRight is the right Shift key.
	KeyShiftRight
)

// String returns a short key name.
func (k Key) String() string {
	switch k {
	case KeyShiftLeft:
		return "shift_l"
	case KeyShiftRight:
		return "shift_r"
	default:
		return "other"
	}
}

// Action is the direction of a key event.
type Action int

const (
	// Press is a key-down event.
	Press Action = iota
	// Release is a key-up event.
	Release
)

// String returns the action name.
func (a Action) String() string {
	if a == Release {
		return "release"
	}
	return "press"
}

// KeyEvent is a single decoded keyboard event. Time is a monotonic instant
// taken when the event was read.
type KeyEvent struct {
	Key    Key
	Code   uint16
	Action Action
	Time   time.Time
}

// classify maps an evdev key code to a Key.
func classify(code uint16) Key {
	switch code {
	case codeLeftShift:
		return KeyShiftLeft
	case codeRightShift:
		return KeyShiftRight
	default:
		return KeyOther
	}
}
