package session

import (
	"errors"
	"testing"
)

// withEnv swaps the environment and tool resolution seams for one test.
func withEnv(t *testing.T, env map[string]string, tools map[string]string) {
	t.Helper()

	origGetenv := getenv
	origLookPath := lookPath
	t.Cleanup(func() {
		getenv = origGetenv
		lookPath = origLookPath
	})

	getenv = func(key string) string {
		return env[key]
	}
	lookPath = func(name string) (string, error) {
		if path, ok := tools[name]; ok {
			return path, nil
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestDetectTypeWayland(t *testing.T) {
	withEnv(t, map[string]string{"WAYLAND_DISPLAY": "wayland-0"}, nil)

	if got := detectType(); got != Wayland {
		t.Errorf("expected Wayland, got %v", got)
	}
}

func TestDetectTypeXWaylandCountsAsX11(t *testing.T) {
	withEnv(t, map[string]string{
		"WAYLAND_DISPLAY": "wayland-0",
		"DISPLAY":         ":0",
	}, nil)

	if got := detectType(); got != X11 {
		t.Errorf("expected X11 for XWayland, got %v", got)
	}
}

func TestDetectTypeX11(t *testing.T) {
	withEnv(t, map[string]string{"DISPLAY": ":0"}, nil)

	if got := detectType(); got != X11 {
		t.Errorf("expected X11, got %v", got)
	}
}

func TestDetectTypeSessionTypeFallback(t *testing.T) {
	withEnv(t, map[string]string{"XDG_SESSION_TYPE": " Wayland \n"}, nil)

	if got := detectType(); got != Wayland {
		t.Errorf("expected Wayland from XDG_SESSION_TYPE, got %v", got)
	}
}

func TestDetectTypeUnknown(t *testing.T) {
	withEnv(t, map[string]string{}, nil)

	if got := detectType(); got != Unknown {
		t.Errorf("expected Unknown, got %v", got)
	}
}

func TestProbeX11AllToolsPresent(t *testing.T) {
	withEnv(t, map[string]string{"DISPLAY": ":0"}, map[string]string{
		"xclip":   "/usr/bin/xclip",
		"xdotool": "/usr/bin/xdotool",
	})

	caps := Probe()
	if caps.Type != X11 {
		t.Fatalf("expected X11, got %v", caps.Type)
	}
	if caps.CopyTool != "/usr/bin/xclip" {
		t.Errorf("unexpected copy tool: %q", caps.CopyTool)
	}
	if caps.PasteTool != "/usr/bin/xdotool" {
		t.Errorf("unexpected paste tool: %q", caps.PasteTool)
	}
	if !caps.CanInject() {
		t.Error("expected CanInject with both tools present")
	}
	if !caps.CanReadClipboard() {
		t.Error("expected CanReadClipboard on X11 with xclip present")
	}

	ok, msg := caps.Available()
	if !ok {
		t.Errorf("expected available, got diagnostic %q", msg)
	}
}

func TestProbeWaylandMissingPasteTool(t *testing.T) {
	withEnv(t, map[string]string{"WAYLAND_DISPLAY": "wayland-1"}, map[string]string{
		"wl-copy":  "/usr/bin/wl-copy",
		"wl-paste": "/usr/bin/wl-paste",
	})

	caps := Probe()
	if caps.Type != Wayland {
		t.Fatalf("expected Wayland, got %v", caps.Type)
	}
	if caps.PasteTool != "" {
		t.Errorf("expected absent paste tool, got %q", caps.PasteTool)
	}
	if caps.CanInject() {
		t.Error("CanInject must be false without a paste tool")
	}

	ok, msg := caps.Available()
	if ok {
		t.Error("expected not available")
	}
	if msg == "" {
		t.Error("expected a diagnostic message")
	}
}

func TestProbeUnknownHasNoTools(t *testing.T) {
	withEnv(t, map[string]string{}, map[string]string{
		"xclip": "/usr/bin/xclip",
	})

	caps := Probe()
	if caps.Type != Unknown {
		t.Fatalf("expected Unknown, got %v", caps.Type)
	}
	if caps.CopyTool != "" || caps.ReadTool != "" || caps.PasteTool != "" {
		t.Error("Unknown session must not resolve any tools")
	}
	if caps.CanInject() {
		t.Error("CanInject must be false for Unknown session")
	}
}
