package input

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// findKeyboardDevices locates /dev/input event nodes that belong to
// keyboards by parsing /proc/bus/input/devices.
func findKeyboardDevices() ([]string, error) {
	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	devices := parseDeviceList(f)

	// Stable by-id symlinks catch hotplugged keyboards the proc scan missed.
	matches, _ := filepath.Glob("/dev/input/by-id/*-kbd")
	for _, m := range matches {
		resolved, err := filepath.EvalSymlinks(m)
		if err != nil {
			continue
		}
		if !contains(devices, resolved) {
			devices = append(devices, resolved)
		}
	}

	return devices, nil
}

// parseDeviceList extracts keyboard event handlers from the
// /proc/bus/input/devices format. A device block is a keyboard when its
// key-capability bitmap is long: mice and buttons expose only a few key bits,
// full keyboards expose dozens of bytes.
func parseDeviceList(r io.Reader) []string {
	var devices []string

	scanner := bufio.NewScanner(r)
	var currentHandler string
	isKeyboard := false

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "H: Handlers=") {
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					currentHandler = "/dev/input/" + part
				}
			}
		}

		if strings.HasPrefix(line, "B: KEY=") {
			if len(strings.TrimPrefix(line, "B: KEY=")) > 20 {
				isKeyboard = true
			}
		}

		if line == "" {
			if isKeyboard && currentHandler != "" {
				devices = append(devices, currentHandler)
			}
			currentHandler = ""
			isKeyboard = false
		}
	}

	// Trailing block without a blank-line terminator.
	if isKeyboard && currentHandler != "" {
		devices = append(devices, currentHandler)
	}

	return devices
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
