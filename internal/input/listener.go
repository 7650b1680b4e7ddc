//go:build linux

package input

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Listener errors.
var (
	// ErrAlreadyRunning is returned by Start when the listener is active.
	ErrAlreadyRunning = errors.New("input listener already running")

	// ErrNoDevices is returned when no keyboard device nodes exist.
	ErrNoDevices = errors.New("no keyboard devices found")

	// ErrPermissionDenied is returned when device nodes exist but none can
	// be opened. The usual fix is membership in the "input" group.
	ErrPermissionDenied = errors.New("cannot read keyboard devices (add your user to the 'input' group or run as root)")
)

// inputEventSize is the wire size of a 64-bit Linux input_event struct:
// 16 bytes of timeval followed by type, code, and value.
const inputEventSize = 24

// pollTimeoutMs bounds each blocking wait so Stop is honored promptly.
const pollTimeoutMs = 250

// Callback receives decoded key events on the listener's own goroutine.
// It must not block: the double-press detector update is O(1) and anything
// UI-visible is handed off through a channel by the controller.
type Callback func(KeyEvent)

// Listener reads raw keyboard events from every readable evdev keyboard and
// forwards them, in arrival order per device, to a callback.
type Listener struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewListener creates an idle listener.
func NewListener() *Listener {
	return &Listener{}
}

// Available reports whether global capture can work, with a human-readable
// diagnostic.
func (l *Listener) Available() (bool, string) {
	devices, err := findKeyboardDevices()
	if err != nil {
		return false, fmt.Sprintf("cannot enumerate input devices: %v", err)
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}

	for _, dev := range devices {
		f, err := os.OpenFile(dev, os.O_RDONLY, 0)
		if err == nil {
			f.Close()
			return true, fmt.Sprintf("keyboard capture available (%s)", dev)
		}
	}

	return false, "keyboard devices exist but none are readable (add your user to the 'input' group)"
}

// Start opens the keyboard devices and begins forwarding events to cb.
// It fails fast with ErrPermissionDenied when devices exist but cannot be
// opened, and ErrNoDevices when none exist; the caller treats either as a
// non-fatal loss of the hotkey feature.
func (l *Listener) Start(ctx context.Context, cb Callback) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyRunning
	}

	devices, err := findKeyboardDevices()
	if err != nil {
		return fmt.Errorf("enumerate keyboards: %w", err)
	}
	if len(devices) == 0 {
		return ErrNoDevices
	}

	var fds []int
	permissionFailure := false
	for _, dev := range devices {
		fd, err := unix.Open(dev, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
				permissionFailure = true
			}
			continue
		}
		fds = append(fds, fd)
	}

	if len(fds) == 0 {
		if permissionFailure {
			return ErrPermissionDenied
		}
		return ErrNoDevices
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true

	for _, fd := range fds {
		l.wg.Add(1)
		go l.readLoop(ctx, fd, cb)
	}

	return nil
}

// readLoop reads input events from one device until the context is canceled.
// Read errors other than EAGAIN end the loop; a disappearing device (unplug)
// silently stops its reader without affecting the others.
func (l *Listener) readLoop(ctx context.Context, fd int, cb Callback) {
	defer l.wg.Done()
	defer unix.Close(fd)

	buf := make([]byte, inputEventSize)
	pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		if ctx.Err() != nil {
			return
		}

		pollFds[0].Revents = 0
		n, err := unix.Poll(pollFds, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}
		if n == 0 {
			continue
		}
		if pollFds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return
		}

		nr, err := unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}
		if nr < inputEventSize {
			// Malformed or truncated event: drop it, never propagate.
			continue
		}

		ev, ok := decodeEvent(buf)
		if !ok {
			continue
		}
		cb(ev)
	}
}

// decodeEvent parses one input_event record. Only key press/release events
// are reported; autorepeat and non-key events are filtered here so the state
// machine sees exactly one Press per physical press.
func decodeEvent(buf []byte) (KeyEvent, bool) {
	typ := binary.LittleEndian.Uint16(buf[16:18])
	code := binary.LittleEndian.Uint16(buf[18:20])
	value := int32(binary.LittleEndian.Uint32(buf[20:24]))

	if typ != evKey {
		return KeyEvent{}, false
	}

	var action Action
	switch value {
	case keyDown:
		action = Press
	case keyUp:
		action = Release
	default: // keyHold autorepeat
		return KeyEvent{}, false
	}

	return KeyEvent{
		Key:    classify(code),
		Code:   code,
		Action: action,
		Time:   time.Now(),
	}, true
}

// Stop cancels the reader goroutines and waits for them to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	cancel := l.cancel
	l.mu.Unlock()

	cancel()
	l.wg.Wait()
}

// IsRunning reports whether the listener is capturing events.
func (l *Listener) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
