// Package session probes the graphical session environment.
//
// The probe runs once at startup: the display protocol cannot change without
// a new login session, which implies a process restart. The resulting
// Capabilities value is immutable and shared by reference.
package session

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Type identifies the display protocol of the current login session.
type Type int

const (
	// Unknown means no recognizable graphical session was detected.
	Unknown Type = iota
	// X11 is a classic X session, including XWayland.
	X11
	// Wayland is a native Wayland session without an X bridge.
	Wayland
)

// String returns a human-readable session type name.
func (t Type) String() string {
	switch t {
	case X11:
		return "x11"
	case Wayland:
		return "wayland"
	default:
		return "unknown"
	}
}

// Capabilities describes the session type and the external tools available
// for clipboard access and paste synthesis. Tool fields hold resolved binary
// paths, or "" when the tool is not installed.
type Capabilities struct {
	Type Type

	// CopyTool writes stdin to the clipboard (xclip / wl-copy).
	CopyTool string

	// ReadTool prints the clipboard to stdout (xclip -o / wl-paste).
	ReadTool string

	// PasteTool synthesizes a paste keystroke (xdotool / wtype).
	PasteTool string
}

// CanInject reports whether both clipboard write and paste synthesis are
// possible in this session.
func (c Capabilities) CanInject() bool {
	return c.Type != Unknown && c.CopyTool != "" && c.PasteTool != ""
}

// CanReadClipboard reports whether the prior clipboard can be captured for
// restoration.
func (c Capabilities) CanReadClipboard() bool {
	return c.ReadTool != ""
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// getenv is swapped in tests.
var getenv = os.Getenv

// Probe inspects the environment and resolves the session-appropriate tools.
// It never fails: an unrecognized environment yields Unknown capabilities and
// injection attempts report the missing capability instead.
func Probe() Capabilities {
	caps := Capabilities{Type: detectType()}

	switch caps.Type {
	case X11:
		caps.CopyTool = resolve("xclip")
		caps.ReadTool = caps.CopyTool
		caps.PasteTool = resolve("xdotool")
	case Wayland:
		caps.CopyTool = resolve("wl-copy")
		caps.ReadTool = resolve("wl-paste")
		caps.PasteTool = resolve("wtype")
	}

	return caps
}

// detectType determines the display protocol from environment indicators.
func detectType() Type {
	// WAYLAND_DISPLAY plus DISPLAY means XWayland is available; X11 tools
	// keep working there, so treat it as X11.
	if getenv("WAYLAND_DISPLAY") != "" {
		if getenv("DISPLAY") != "" {
			return X11
		}
		return Wayland
	}

	if getenv("DISPLAY") != "" {
		return X11
	}

	switch strings.ToLower(strings.TrimSpace(getenv("XDG_SESSION_TYPE"))) {
	case "wayland":
		return Wayland
	case "x11":
		return X11
	}

	return Unknown
}

func resolve(name string) string {
	path, err := lookPath(name)
	if err != nil {
		return ""
	}
	return path
}

// Available reports whether paste injection can work in this session, with a
// human-readable diagnostic including install hints.
func (c Capabilities) Available() (bool, string) {
	switch c.Type {
	case X11:
		var missing []string
		if c.CopyTool == "" {
			missing = append(missing, "xclip")
		}
		if c.PasteTool == "" {
			missing = append(missing, "xdotool")
		}
		if len(missing) > 0 {
			return false, fmt.Sprintf("X11 session detected but %s not found. Install with: sudo apt install %s",
				strings.Join(missing, " and "), strings.Join(missing, " "))
		}
		return true, "X11 paste injection available (xclip + xdotool)"

	case Wayland:
		var missing []string
		if c.CopyTool == "" {
			missing = append(missing, "wl-clipboard")
		}
		if c.PasteTool == "" {
			missing = append(missing, "wtype")
		}
		if len(missing) > 0 {
			return false, fmt.Sprintf("Wayland session detected but %s not found. Install with: sudo apt install %s",
				strings.Join(missing, " and "), strings.Join(missing, " "))
		}
		return true, "Wayland paste injection available (wl-clipboard + wtype)"

	default:
		return false, "no graphical session detected (DISPLAY and WAYLAND_DISPLAY unset)"
	}
}
