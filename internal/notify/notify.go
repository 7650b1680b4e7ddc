// Package notify delivers user-visible diagnostics as desktop notifications
// over D-Bus (org.freedesktop.Notifications). Delivery is best-effort: with
// no session bus or no notification daemon the message is logged and
// dropped, never escalated.
package notify

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"shiftprompt/internal/logging"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"

	appName = "shiftprompt"

	// expireMs is how long a notification stays up before the daemon may
	// dismiss it.
	expireMs = 5000
)

// Urgency levels per the Desktop Notifications spec.
type Urgency byte

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// Notifier sends desktop notifications on the session bus.
type Notifier struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	enabled bool
	log     *logging.Logger
}

// New creates a notifier. When enabled is false, or the session bus is
// unreachable, Send calls only log.
func New(enabled bool, log *logging.Logger) *Notifier {
	if log == nil {
		log = logging.Default()
	}
	n := &Notifier{enabled: enabled, log: log.WithComponent("notify")}

	if !enabled {
		return n
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		n.log.Debug("session bus unavailable, notifications disabled", "error", err)
		return n
	}
	n.conn = conn
	return n
}

// SetEnabled toggles notification delivery (config hot-reload).
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send shows a notification. Failures are logged and swallowed.
func (n *Notifier) Send(summary, body string, urgency Urgency) {
	n.mu.Lock()
	conn := n.conn
	enabled := n.enabled
	n.mu.Unlock()

	n.log.Info("diagnostic", "summary", summary, "body", body)

	if !enabled || conn == nil {
		return
	}

	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(byte(urgency)),
	}

	obj := conn.Object(notifyDest, dbus.ObjectPath(notifyPath))
	call := obj.Call(notifyMethod, 0,
		appName,          // app_name
		uint32(0),        // replaces_id
		"input-keyboard", // app_icon
		summary,
		body,
		[]string{}, // actions
		hints,
		int32(expireMs),
	)
	if call.Err != nil {
		n.log.Debug("notification delivery failed", "error", call.Err)
	}
}

// Warnf sends a normal-urgency notification with a formatted body.
func (n *Notifier) Warnf(summary, format string, args ...any) {
	n.Send(summary, fmt.Sprintf(format, args...), UrgencyNormal)
}

// Errorf sends a critical-urgency notification with a formatted body.
func (n *Notifier) Errorf(summary, format string, args ...any) {
	n.Send(summary, fmt.Sprintf(format, args...), UrgencyCritical)
}

// Close releases the bus connection.
func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		err := n.conn.Close()
		n.conn = nil
		return err
	}
	return nil
}
