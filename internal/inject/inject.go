// Package inject places text on the system clipboard and synthesizes a paste
// keystroke into the focused window, using the external tools resolved by the
// session prober.
//
// Injection is best-effort and not transactional. When the paste synthesis
// fails after the clipboard was set, the requested text stays on the
// clipboard so the user can paste manually; the operation degrades to a
// clipboard helper instead of failing silently.
package inject

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"shiftprompt/internal/logging"
	"shiftprompt/internal/session"
)

// Injection errors.
var (
	// ErrNoCapability means the session has no usable clipboard or paste
	// tool. Nothing was mutated.
	ErrNoCapability = errors.New("no clipboard/paste capability for this session")

	// ErrEmptyText means there was nothing to paste.
	ErrEmptyText = errors.New("empty text")
)

// ToolError reports a failed external tool invocation: non-zero exit, launch
// failure, or timeout. The clipboard may have been left mutated.
type ToolError struct {
	Tool   string
	Err    error
	Output string
}

func (e *ToolError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s failed: %v (%s)", e.Tool, e.Err, e.Output)
	}
	return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Runner executes an external tool with stdin and returns combined output.
// The production runner shells out; tests substitute a recorder.
type Runner interface {
	Run(ctx context.Context, stdin string, name string, args ...string) (string, error)
}

// execRunner runs tools via os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, stdin string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return strings.TrimSpace(buf.String()), err
}

// Options configure injection behavior.
type Options struct {
	// Settle is the wait after clipboard writes and after paste synthesis;
	// clipboard propagation through the compositor is asynchronous.
	Settle time.Duration

	// ToolTimeout bounds each external tool invocation so a hung tool
	// converts to a ToolError instead of wedging the caller.
	ToolTimeout time.Duration

	// RestoreClipboard puts the previous clipboard contents back after the
	// paste lands.
	RestoreClipboard bool
}

// DefaultOptions returns the standard injection timings.
func DefaultOptions() Options {
	return Options{
		Settle:           150 * time.Millisecond,
		ToolTimeout:      3 * time.Second,
		RestoreClipboard: true,
	}
}

// Injector pastes text into the focused window via session-appropriate
// external tools.
type Injector struct {
	caps   session.Capabilities
	opts   Options
	runner Runner
	log    *logging.Logger
}

// New creates an injector for the probed session capabilities.
func New(caps session.Capabilities, opts Options, log *logging.Logger) *Injector {
	if log == nil {
		log = logging.Default()
	}
	return &Injector{
		caps:   caps,
		opts:   opts,
		runner: execRunner{},
		log:    log.WithComponent("inject"),
	}
}

// SetRunner replaces the tool runner. Tests use this seam.
func (inj *Injector) SetRunner(r Runner) { inj.runner = r }

// SetOptions replaces the timing options (config hot-reload).
func (inj *Injector) SetOptions(opts Options) { inj.opts = opts }

// PasteText copies text to the clipboard and synthesizes a paste keystroke
// into the focused window. Steps, each a possible failure point:
//
//  1. capture current clipboard (best-effort; failure skips restoration)
//  2. set clipboard to text
//  3. settle
//  4. synthesize the paste key combination
//  5. settle, then restore the captured clipboard
func (inj *Injector) PasteText(ctx context.Context, text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if !inj.caps.CanInject() {
		return ErrNoCapability
	}

	saved, restorable := inj.captureClipboard(ctx)

	if err := inj.setClipboard(ctx, text); err != nil {
		return err
	}

	inj.settle(ctx)

	if err := inj.synthesizePaste(ctx); err != nil {
		// The text stays on the clipboard as a manual-paste fallback.
		inj.log.Warn("paste synthesis failed, text left on clipboard", "error", err)
		return err
	}

	if inj.opts.RestoreClipboard && restorable {
		inj.settle(ctx)
		if err := inj.restoreClipboard(ctx, saved); err != nil {
			inj.log.Warn("clipboard restore failed", "error", err)
		}
	}

	inj.log.Debug("paste complete", "chars", len(text), "session", inj.caps.Type.String())
	return nil
}

// captureClipboard reads the current clipboard. Failure is non-fatal: we
// simply skip restoration later.
func (inj *Injector) captureClipboard(ctx context.Context) (string, bool) {
	if !inj.caps.CanReadClipboard() {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, inj.opts.ToolTimeout)
	defer cancel()

	var out string
	var err error
	switch inj.caps.Type {
	case session.X11:
		out, err = inj.runner.Run(ctx, "", inj.caps.ReadTool, "-selection", "clipboard", "-o")
	case session.Wayland:
		out, err = inj.runner.Run(ctx, "", inj.caps.ReadTool, "--no-newline")
	default:
		return "", false
	}
	if err != nil {
		if ctx.Err() != nil {
			inj.log.Debug("clipboard capture timed out", "error", err)
			return "", false
		}
		// An empty clipboard makes xclip and wl-paste exit with code 1;
		// capturing "" and restoring it later is correct for that case.
		// Any other failure means the real contents are unknown, so skip
		// restoration and keep the pasted text as the fallback.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", true
		}
		inj.log.Debug("clipboard capture failed", "error", err)
		return "", false
	}
	return out, true
}

// setClipboard writes text to the clipboard via the session's copy tool.
func (inj *Injector) setClipboard(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, inj.opts.ToolTimeout)
	defer cancel()

	var out string
	var err error
	switch inj.caps.Type {
	case session.X11:
		out, err = inj.runner.Run(ctx, text, inj.caps.CopyTool, "-selection", "clipboard")
	case session.Wayland:
		out, err = inj.runner.Run(ctx, text, inj.caps.CopyTool)
	default:
		return ErrNoCapability
	}
	if err != nil {
		return &ToolError{Tool: inj.caps.CopyTool, Err: err, Output: out}
	}
	return nil
}

// synthesizePaste sends a ctrl+v equivalent to the focused window.
func (inj *Injector) synthesizePaste(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, inj.opts.ToolTimeout)
	defer cancel()

	var out string
	var err error
	switch inj.caps.Type {
	case session.X11:
		out, err = inj.runner.Run(ctx, "", inj.caps.PasteTool, "key", "--clearmodifiers", "ctrl+v")
	case session.Wayland:
		out, err = inj.runner.Run(ctx, "", inj.caps.PasteTool, "-M", "ctrl", "v", "-m", "ctrl")
	default:
		return ErrNoCapability
	}
	if err != nil {
		return &ToolError{Tool: inj.caps.PasteTool, Err: err, Output: out}
	}
	return nil
}

// restoreClipboard puts the captured contents back. Restoring the same value
// twice is harmless, so retries do not corrupt state.
func (inj *Injector) restoreClipboard(ctx context.Context, saved string) error {
	return inj.setClipboard(ctx, saved)
}

// settle waits for clipboard/focus state to propagate, honoring cancellation.
func (inj *Injector) settle(ctx context.Context) {
	if inj.opts.Settle <= 0 {
		return
	}
	t := time.NewTimer(inj.opts.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
