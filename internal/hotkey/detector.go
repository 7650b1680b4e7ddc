// Package hotkey turns raw keyboard events into the double-Shift trigger and
// drives the prompt picker and paste injector from it.
package hotkey

import (
	"fmt"
	"sync"
	"time"

	"shiftprompt/internal/input"
)

// Policy selects which double-press sequences count as a trigger.
type Policy int

const (
	// SameSide requires two rapid presses of the identical Shift key.
	// Alternating Left-then-Right taps happen during normal typing of
	// mixed-case text and must not trigger.
	SameSide Policy = iota

	// AnySide accepts two rapid presses of either Shift key.
	AnySide
)

// ParsePolicy converts a config string into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "same-side":
		return SameSide, nil
	case "any-side":
		return AnySide, nil
	default:
		return SameSide, fmt.Errorf("unknown press policy %q", s)
	}
}

// side is the armed Shift key.
type side int

const (
	sideNone side = iota
	sideLeft
	sideRight
)

func sideOf(k input.Key) side {
	switch k {
	case input.KeyShiftLeft:
		return sideLeft
	case input.KeyShiftRight:
		return sideRight
	default:
		return sideNone
	}
}

// Detector is the double-press state machine. It consumes every key event in
// arrival order and reports when a qualifying double-Shift press completes.
//
// States: idle, or armed on one side awaiting the confirming press. A press
// of any non-Shift key cancels the armed state: a Shift press followed by
// another key while Shift is held is the user typing a capital letter, not
// invoking the hotkey. Malformed sequences (a release with no prior press)
// are ignored and never corrupt subsequent state.
//
// Feed runs on the listener goroutine; the mutex exists only for the
// configuration setters, which are called from the reload path.
type Detector struct {
	mu        sync.Mutex
	threshold time.Duration
	policy    Policy

	armedSide side
	armedAt   time.Time
	heldOther int
}

// NewDetector creates a detector with the given double-press window.
func NewDetector(threshold time.Duration, policy Policy) *Detector {
	return &Detector{threshold: threshold, policy: policy}
}

// SetThreshold updates the double-press window (config hot-reload).
func (d *Detector) SetThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.threshold = threshold
}

// SetPolicy updates the press policy (config hot-reload).
func (d *Detector) SetPolicy(policy Policy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.policy = policy
	d.armedSide = sideNone
}

// Feed consumes one event and reports whether it completed a double-press.
// At most one trigger is emitted per qualifying sequence.
func (d *Detector) Feed(ev input.KeyEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ev.Key == input.KeyOther {
		switch ev.Action {
		case input.Press:
			d.heldOther++
			d.armedSide = sideNone
		case input.Release:
			if d.heldOther > 0 {
				d.heldOther--
			}
		}
		return false
	}

	// Shift key.
	if ev.Action == input.Release {
		return false
	}

	// A Shift press while another key is held is a modifier chord
	// (Ctrl+Shift+..., mid-word capitals), never an arm.
	if d.heldOther > 0 {
		d.armedSide = sideNone
		return false
	}

	s := sideOf(ev.Key)
	now := ev.Time

	if d.armedSide != sideNone && now.Sub(d.armedAt) <= d.threshold {
		if d.policy == AnySide || d.armedSide == s {
			d.armedSide = sideNone
			return true
		}
		// Same-side policy, other side pressed: a normal keystroke.
		d.armedSide = sideNone
		return false
	}

	// Fresh arm, also covering an expired window.
	d.armedSide = s
	d.armedAt = now
	return false
}

// Reset returns the machine to idle. Used when capture restarts.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.armedSide = sideNone
	d.heldOther = 0
}
