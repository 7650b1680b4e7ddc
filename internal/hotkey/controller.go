package hotkey

import (
	"context"
	"errors"
	"sync"
	"time"

	"shiftprompt/internal/history"
	"shiftprompt/internal/inject"
	"shiftprompt/internal/input"
	"shiftprompt/internal/logging"
	"shiftprompt/internal/picker"
	"shiftprompt/internal/prompts"
	"shiftprompt/internal/session"
)

// Injector pastes text into the focused application.
type Injector interface {
	PasteText(ctx context.Context, text string) error
}

// UI presents the prompt list and blocks until the user picks or dismisses.
type UI interface {
	Show(ctx context.Context, list []prompts.Prompt) (picker.Selection, error)
	Hide()
}

// PromptSource supplies the prompt list.
type PromptSource interface {
	List() []prompts.Prompt
	Get(index int) (prompts.Prompt, error)
}

// Recorder persists paste attempts. May be nil when history is disabled.
type Recorder interface {
	RecordPaste(r history.Record) (int64, error)
}

// Alerter surfaces user-facing failures. notify.Notifier satisfies it.
type Alerter interface {
	Warnf(summary, format string, args ...any)
	Errorf(summary, format string, args ...any)
}

// KeyListener is the raw keyboard capture source.
type KeyListener interface {
	Available() (bool, string)
	Start(ctx context.Context, cb input.Callback) error
	Stop()
	IsRunning() bool
}

// Controller wires the capture, detection, picker, and injection stages
// together. The listener goroutine feeds the detector; a trigger toggles the
// picker; a pick runs the paste sequence and records the outcome.
type Controller struct {
	log      *logging.Logger
	caps     session.Capabilities
	listener KeyListener
	detector *Detector
	injector Injector
	ui       UI
	source   PromptSource
	recorder Recorder
	alerter  Alerter

	pasteTimeout time.Duration

	mu     sync.Mutex
	open   bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// triggers decouples the listener goroutine from the picker lifecycle.
	// Capacity one: a trigger arriving while another is being handled is
	// the second half of the same gesture and can be dropped.
	triggers chan struct{}
}

// Options configures a Controller.
type Options struct {
	Threshold    time.Duration
	Policy       Policy
	PasteTimeout time.Duration
}

// NewController assembles the stages. recorder and alerter may be nil.
func NewController(caps session.Capabilities, opts Options, listener KeyListener, ui UI, injector Injector, source PromptSource, recorder Recorder, alerter Alerter, log *logging.Logger) *Controller {
	if opts.PasteTimeout <= 0 {
		opts.PasteTimeout = 10 * time.Second
	}
	if log == nil {
		log = logging.Default()
	}
	return &Controller{
		log:          log.WithComponent("hotkey"),
		caps:         caps,
		listener:     listener,
		detector:     NewDetector(opts.Threshold, opts.Policy),
		injector:     injector,
		ui:           ui,
		source:       source,
		recorder:     recorder,
		alerter:      alerter,
		pasteTimeout: opts.PasteTimeout,
		triggers:     make(chan struct{}, 1),
	}
}

// Start begins keyboard capture and trigger handling. A capture failure is
// reported but not fatal: the picker stays reachable over IPC, only the
// hotkey is lost.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	runCtx := c.ctx
	c.mu.Unlock()

	c.wg.Add(1)
	go c.triggerLoop(runCtx)

	if ok, reason := c.listener.Available(); !ok {
		c.log.Warn("hotkey capture unavailable", "reason", reason)
		if c.alerter != nil {
			c.alerter.Warnf("Hotkey disabled", "%s", reason)
		}
		return
	}

	err := c.listener.Start(runCtx, func(ev input.KeyEvent) {
		if c.detector.Feed(ev) {
			select {
			case c.triggers <- struct{}{}:
			default:
			}
		}
	})
	if err != nil {
		c.log.Error("hotkey capture failed to start", "error", err)
		if c.alerter != nil {
			c.alerter.Errorf("Hotkey disabled", "keyboard capture failed: %v", err)
		}
		return
	}
	c.log.Info("hotkey capture started")
}

func (c *Controller) triggerLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.triggers:
			c.TogglePicker()
		}
	}
}

// Stop halts capture and in-flight picker handling.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.listener.Stop()
	c.ui.Hide()
	c.wg.Wait()
}

// HotkeyActive reports whether keyboard capture is running.
func (c *Controller) HotkeyActive() bool {
	return c.listener.IsRunning()
}

// IsOpen reports whether the picker is currently showing.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// TogglePicker opens the picker, or closes it when already showing. This is
// the double-Shift action: the same gesture that summons the window also
// dismisses it.
func (c *Controller) TogglePicker() {
	c.mu.Lock()
	if c.open {
		c.mu.Unlock()
		c.ui.Hide()
		return
	}
	c.startShowLocked()
	c.mu.Unlock()
}

// ShowPicker opens the picker if it is not already showing.
func (c *Controller) ShowPicker() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return
	}
	c.startShowLocked()
}

// HidePicker dismisses the picker if showing.
func (c *Controller) HidePicker() {
	c.ui.Hide()
}

// startShowLocked marks the picker open and hands off to a goroutine that
// blocks on the chooser process. Caller holds c.mu.
func (c *Controller) startShowLocked() {
	c.open = true
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.showAndHandle(ctx)
	}()
}

func (c *Controller) showAndHandle(ctx context.Context) {
	list := c.source.List()
	sel, err := c.ui.Show(ctx, list)

	c.mu.Lock()
	c.open = false
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("picker failed", "error", err)
		if c.alerter != nil {
			c.alerter.Warnf("Prompt picker failed", "%v", err)
		}
		return
	}
	if !sel.Chosen {
		c.log.Debug("picker dismissed")
		return
	}
	c.pastePrompt(ctx, sel.Prompt)
}

// PasteIndex pastes the prompt at index without showing the picker.
func (c *Controller) PasteIndex(ctx context.Context, index int) error {
	p, err := c.source.Get(index)
	if err != nil {
		return err
	}
	return c.pastePrompt(ctx, p)
}

func (c *Controller) pastePrompt(ctx context.Context, p prompts.Prompt) error {
	ctx, cancel := context.WithTimeout(ctx, c.pasteTimeout)
	defer cancel()

	err := c.injector.PasteText(ctx, p.Content)

	outcome := history.OutcomeSuccess
	switch {
	case errors.Is(err, inject.ErrNoCapability):
		outcome = history.OutcomeNoCapability
	case err != nil:
		outcome = history.OutcomeToolFailure
	}

	if c.recorder != nil {
		if _, rerr := c.recorder.RecordPaste(history.Record{
			Timestamp:   time.Now(),
			PromptName:  p.Name,
			Chars:       len([]rune(p.Content)),
			SessionType: c.caps.Type.String(),
			Outcome:     outcome,
		}); rerr != nil {
			c.log.Warn("history record failed", "error", rerr)
		}
	}

	if err != nil {
		c.log.Error("paste failed", "prompt", p.Name, "error", err)
		if c.alerter != nil {
			c.alerter.Errorf("Paste failed", "%q: %v (text left on clipboard)", p.Name, err)
		}
		return err
	}
	c.log.Info("pasted prompt", "prompt", p.Name, "chars", len([]rune(p.Content)))
	return nil
}

// SetThreshold updates the double-press window on config reload.
func (c *Controller) SetThreshold(d time.Duration) {
	c.detector.SetThreshold(d)
}

// SetPolicy updates the press policy on config reload.
func (c *Controller) SetPolicy(p Policy) {
	c.detector.SetPolicy(p)
}
