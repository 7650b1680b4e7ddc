// Package picker shows the prompt list and reports the user's choice.
//
// The window is an external dmenu-style chooser, selected per session type
// the same way the injector selects its tools: rofi on X11, wofi or fuzzel
// on Wayland, dmenu as a last resort. The chooser process is the window;
// killing it is how a toggle-close is delivered, and the chooser exiting on
// its own (Escape, focus loss) reads as the user closing the window.
package picker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"shiftprompt/internal/logging"
	"shiftprompt/internal/prompts"
	"shiftprompt/internal/session"
)

// Picker errors.
var (
	// ErrNoChooser means no dmenu-compatible chooser binary was found.
	ErrNoChooser = errors.New("no chooser found (install rofi, wofi, fuzzel, or dmenu)")

	// ErrAlreadyOpen means a chooser window is already showing.
	ErrAlreadyOpen = errors.New("picker already open")
)

// Selection is the outcome of one Show call.
type Selection struct {
	// Chosen is false when the window was dismissed without a pick.
	Chosen bool

	// Index and Prompt identify the pick when Chosen.
	Index  int
	Prompt prompts.Prompt
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// chooserCandidates lists dmenu-compatible choosers in preference order per
// session type. All of them read items on stdin, one per line, and print the
// picked line on stdout.
func chooserCandidates(st session.Type) [][]string {
	switch st {
	case session.Wayland:
		return [][]string{
			{"wofi", "--dmenu", "--prompt", "shiftprompt"},
			{"fuzzel", "--dmenu", "--prompt", "shiftprompt> "},
			{"rofi", "-dmenu", "-p", "shiftprompt"},
		}
	default:
		return [][]string{
			{"rofi", "-dmenu", "-p", "shiftprompt"},
			{"dmenu", "-p", "shiftprompt"},
		}
	}
}

// resolveChooser returns the chooser argv for this session, honoring a
// configured override.
func resolveChooser(st session.Type, overrideTool string, overrideArgs []string) ([]string, error) {
	if overrideTool != "" {
		path, err := lookPath(overrideTool)
		if err != nil {
			return nil, fmt.Errorf("configured picker tool %q: %w", overrideTool, err)
		}
		return append([]string{path}, overrideArgs...), nil
	}

	for _, cand := range chooserCandidates(st) {
		path, err := lookPath(cand[0])
		if err != nil {
			continue
		}
		argv := append([]string{path}, cand[1:]...)
		return append(argv, overrideArgs...), nil
	}
	return nil, ErrNoChooser
}

// matchSelection maps chooser output back to a prompt. Choosers echo the
// picked line verbatim; duplicate names resolve to the first occurrence,
// matching the list order the user saw.
func matchSelection(output string, list []prompts.Prompt) (Selection, bool) {
	line := strings.TrimSuffix(output, "\n")
	if line == "" {
		return Selection{}, false
	}
	for i, p := range list {
		if p.Name == line {
			return Selection{Chosen: true, Index: i, Prompt: p}, true
		}
	}
	return Selection{}, false
}

// Config holds picker settings.
type Config struct {
	// Tool overrides the auto-selected chooser binary.
	Tool string

	// Args are appended to the chooser invocation.
	Args []string
}

// Picker runs the external chooser. One window at a time.
type Picker struct {
	caps session.Capabilities
	cfg  Config
	log  *logging.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// New creates a picker for the probed session.
func New(caps session.Capabilities, cfg Config, log *logging.Logger) *Picker {
	if log == nil {
		log = logging.Default()
	}
	return &Picker{caps: caps, cfg: cfg, log: log.WithComponent("picker")}
}

// SetConfig replaces the picker settings (config hot-reload).
func (p *Picker) SetConfig(cfg Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
}

// Available reports whether a chooser can be launched.
func (p *Picker) Available() (bool, string) {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()

	argv, err := resolveChooser(p.caps.Type, cfg.Tool, cfg.Args)
	if err != nil {
		return false, err.Error()
	}
	return true, fmt.Sprintf("picker available (%s)", argv[0])
}

// Show displays the prompt list and blocks until the user picks an entry or
// dismisses the window. It returns ErrAlreadyOpen when a window is showing.
func (p *Picker) Show(ctx context.Context, list []prompts.Prompt) (Selection, error) {
	p.mu.Lock()
	if p.cmd != nil {
		p.mu.Unlock()
		return Selection{}, ErrAlreadyOpen
	}

	argv, err := resolveChooser(p.caps.Type, p.cfg.Tool, p.cfg.Args)
	if err != nil {
		p.mu.Unlock()
		return Selection{}, err
	}

	var in bytes.Buffer
	for _, prompt := range list {
		in.WriteString(prompt.Name)
		in.WriteByte('\n')
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = &in
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return Selection{}, fmt.Errorf("launch chooser: %w", err)
	}
	p.cmd = cmd
	p.mu.Unlock()

	waitErr := cmd.Wait()

	p.mu.Lock()
	p.cmd = nil
	p.mu.Unlock()

	if waitErr != nil {
		// Dismissal: Escape, click-outside, or a Hide kill. All of them
		// read as "closed without selection", not as failures.
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) || ctx.Err() != nil {
			return Selection{Chosen: false}, nil
		}
		return Selection{}, fmt.Errorf("chooser: %w", waitErr)
	}

	sel, ok := matchSelection(out.String(), list)
	if !ok {
		return Selection{Chosen: false}, nil
	}
	return sel, nil
}

// Hide closes the chooser window if one is showing. The pending Show call
// observes the process exit and reports a dismissal.
func (p *Picker) Hide() {
	p.mu.Lock()
	cmd := p.cmd
	p.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// IsOpen reports whether a chooser window is currently showing.
func (p *Picker) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}
