package ipc

import (
	"context"
	"errors"
	"time"

	"shiftprompt/internal/history"
	"shiftprompt/internal/logging"
	"shiftprompt/internal/prompts"
	"shiftprompt/internal/session"
)

// PickerController is the subset of the hotkey controller the IPC surface
// drives.
type PickerController interface {
	ShowPicker()
	HidePicker()
	TogglePicker()
	IsOpen() bool
	HotkeyActive() bool
	PasteIndex(ctx context.Context, index int) error
}

// PromptStore is the prompt CRUD surface.
type PromptStore interface {
	Path() string
	List() []prompts.Prompt
	Add(p prompts.Prompt) error
	Update(index int, p prompts.Prompt) error
	Delete(index int) error
	Reload() error
}

// StatsSource reads usage aggregates. Nil when history is disabled.
type StatsSource interface {
	Totals() (history.Totals, error)
	RecentDays(n int) ([]history.DayCount, error)
	TopPrompts(limit int) ([]history.PromptCount, error)
}

// DaemonHandler dispatches IPC requests to the daemon's components.
type DaemonHandler struct {
	Version   string
	StartedAt time.Time
	Caps      session.Capabilities
	Ctrl      PickerController
	Store     PromptStore
	Stats     StatsSource
	Reload    func() error
	Shutdown  func()
	Log       *logging.Logger
}

// HandleMessage implements Handler.
func (d *DaemonHandler) HandleMessage(msg *Message) *Message {
	reqID := msg.Header.RequestID

	switch msg.Header.Type {
	case MsgStatusRequest:
		return d.status(reqID)
	case MsgListPrompts:
		return d.listPrompts(reqID)
	case MsgAddPrompt:
		return d.addPrompt(reqID, msg.Payload)
	case MsgUpdatePrompt:
		return d.updatePrompt(reqID, msg.Payload)
	case MsgDeletePrompt:
		return d.deletePrompt(reqID, msg.Payload)
	case MsgPaste:
		return d.paste(reqID, msg.Payload)
	case MsgShowPicker:
		d.Ctrl.ShowPicker()
		return ack(reqID)
	case MsgHidePicker:
		d.Ctrl.HidePicker()
		return ack(reqID)
	case MsgStatsRequest:
		return d.stats(reqID, msg.Payload)
	case MsgReloadConfig:
		return d.reload(reqID)
	case MsgShutdown:
		if d.Shutdown != nil {
			// Respond before the daemon starts tearing down.
			go d.Shutdown()
		}
		return ack(reqID)
	default:
		return nil
	}
}

func ack(reqID uint32) *Message {
	m, _ := NewResponse(MsgAck, reqID, &AckResponse{Success: true})
	return m
}

func nack(reqID uint32, err error) *Message {
	m, _ := NewResponse(MsgAck, reqID, &AckResponse{Success: false, Error: err.Error()})
	return m
}

func (d *DaemonHandler) status(reqID uint32) *Message {
	resp := &StatusResponse{
		Version:       d.Version,
		StartedAt:     d.StartedAt,
		Uptime:        time.Since(d.StartedAt).Round(time.Second).String(),
		SessionType:   d.Caps.Type.String(),
		CanInject:     d.Caps.CanInject(),
		HotkeyActive:  d.Ctrl.HotkeyActive(),
		PickerOpen:    d.Ctrl.IsOpen(),
		PromptCount:   len(d.Store.List()),
		PromptsPath:   d.Store.Path(),
		CopyTool:      d.Caps.CopyTool,
		PasteTool:     d.Caps.PasteTool,
		HistoryActive: d.Stats != nil,
	}
	if ok, diag := d.Caps.Available(); !ok {
		resp.Diagnostics = append(resp.Diagnostics, diag)
	}
	if !d.Ctrl.HotkeyActive() {
		resp.Diagnostics = append(resp.Diagnostics, "hotkey capture inactive (is the user in the input group?)")
	}

	m, err := NewResponse(MsgStatusResponse, reqID, resp)
	if err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error())
	}
	return m
}

func (d *DaemonHandler) listPrompts(reqID uint32) *Message {
	list := d.Store.List()
	resp := &ListPromptsResponse{Prompts: make([]PromptEntry, 0, len(list))}
	for i, p := range list {
		resp.Prompts = append(resp.Prompts, PromptEntry{Index: i, Name: p.Name, Content: p.Content})
	}
	m, err := NewResponse(MsgListPromptsResp, reqID, resp)
	if err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error())
	}
	return m
}

func (d *DaemonHandler) addPrompt(reqID uint32, payload []byte) *Message {
	var req AddPromptRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, err.Error())
	}
	if err := d.Store.Add(prompts.Prompt{Name: req.Name, Content: req.Content}); err != nil {
		return nack(reqID, err)
	}
	return ack(reqID)
}

func (d *DaemonHandler) updatePrompt(reqID uint32, payload []byte) *Message {
	var req UpdatePromptRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, err.Error())
	}
	if err := d.Store.Update(req.Index, prompts.Prompt{Name: req.Name, Content: req.Content}); err != nil {
		if errors.Is(err, prompts.ErrNotFound) {
			return NewErrorMessage(reqID, ErrNotFound, err.Error())
		}
		return nack(reqID, err)
	}
	return ack(reqID)
}

func (d *DaemonHandler) deletePrompt(reqID uint32, payload []byte) *Message {
	var req DeletePromptRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, err.Error())
	}
	if err := d.Store.Delete(req.Index); err != nil {
		if errors.Is(err, prompts.ErrNotFound) {
			return NewErrorMessage(reqID, ErrNotFound, err.Error())
		}
		return nack(reqID, err)
	}
	return ack(reqID)
}

func (d *DaemonHandler) paste(reqID uint32, payload []byte) *Message {
	var req PasteRequest
	if err := Decode(payload, &req); err != nil {
		return NewErrorMessage(reqID, ErrInvalidRequest, err.Error())
	}
	if err := d.Ctrl.PasteIndex(context.Background(), req.Index); err != nil {
		if errors.Is(err, prompts.ErrNotFound) {
			return NewErrorMessage(reqID, ErrNotFound, err.Error())
		}
		return nack(reqID, err)
	}
	return ack(reqID)
}

func (d *DaemonHandler) stats(reqID uint32, payload []byte) *Message {
	var req StatsRequest
	if len(payload) > 0 {
		if err := Decode(payload, &req); err != nil {
			return NewErrorMessage(reqID, ErrInvalidRequest, err.Error())
		}
	}
	if req.Days <= 0 {
		req.Days = 7
	}
	if req.TopPrompts <= 0 {
		req.TopPrompts = 5
	}

	resp := &StatsResponse{Enabled: d.Stats != nil}
	if d.Stats != nil {
		totals, err := d.Stats.Totals()
		if err != nil {
			return NewErrorMessage(reqID, ErrInternalError, err.Error())
		}
		resp.Pastes = totals.Pastes
		resp.Chars = totals.Chars
		resp.Failures = totals.Failures
		resp.FirstUsed = totals.FirstUsed
		resp.LastUsed = totals.LastUsed

		days, err := d.Stats.RecentDays(req.Days)
		if err != nil {
			return NewErrorMessage(reqID, ErrInternalError, err.Error())
		}
		for _, day := range days {
			resp.RecentDays = append(resp.RecentDays, StatsDay{Day: day.Day, Pastes: day.Pastes, Chars: day.Chars})
		}

		top, err := d.Stats.TopPrompts(req.TopPrompts)
		if err != nil {
			return NewErrorMessage(reqID, ErrInternalError, err.Error())
		}
		for _, p := range top {
			resp.TopPrompts = append(resp.TopPrompts, StatsPrompt{Name: p.PromptName, Pastes: p.Pastes})
		}
	}

	m, err := NewResponse(MsgStatsResponse, reqID, resp)
	if err != nil {
		return NewErrorMessage(reqID, ErrInternalError, err.Error())
	}
	return m
}

func (d *DaemonHandler) reload(reqID uint32) *Message {
	if d.Reload == nil {
		return nack(reqID, errors.New("reload not supported"))
	}
	if err := d.Reload(); err != nil {
		return nack(reqID, err)
	}
	return ack(reqID)
}
