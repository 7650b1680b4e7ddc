package ipc

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shiftprompt/internal/history"
	"shiftprompt/internal/prompts"
	"shiftprompt/internal/session"
)

func TestMessageRoundTrip(t *testing.T) {
	payload := []byte(`{"index":3}`)
	msg := NewMessage(MsgPaste, 42, payload)

	var buf bytes.Buffer
	if err := msg.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header.Type != MsgPaste {
		t.Errorf("type = 0x%04x, want 0x%04x", uint16(got.Header.Type), uint16(MsgPaste))
	}
	if got.Header.RequestID != 42 {
		t.Errorf("request id = %d, want 42", got.Header.RequestID)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("payload = %q, want %q", got.Payload, payload)
	}
}

func TestEmptyPayloadMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := NewMessage(MsgPing, 1, nil).Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Payload) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(got.Payload))
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	msg := NewMessage(MsgPing, 1, nil)
	msg.Header.Magic = 0xdeadbeef
	if err := msg.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadHeader(&buf); err == nil {
		t.Error("expected error for bad magic")
	}
}

func TestReadHeaderRejectsFutureVersion(t *testing.T) {
	var buf bytes.Buffer
	msg := NewMessage(MsgPing, 1, nil)
	msg.Header.Version = ProtocolVersion + 1
	if err := msg.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadHeader(&buf); err == nil {
		t.Error("expected error for future protocol version")
	}
}

func TestReadMessageRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	msg := NewMessage(MsgPing, 1, nil)
	msg.Header.Length = maxPayload + 1
	if err := msg.Header.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadMessage(&buf); err == nil {
		t.Error("expected error for oversized payload")
	}
}

// Fakes for the daemon handler.

type fakeController struct {
	open      bool
	active    bool
	shows     int
	hides     int
	pasted    []int
	pasteErr  error
	toggleCnt int
}

func (f *fakeController) ShowPicker()        { f.shows++; f.open = true }
func (f *fakeController) HidePicker()        { f.hides++; f.open = false }
func (f *fakeController) TogglePicker()      { f.toggleCnt++ }
func (f *fakeController) IsOpen() bool       { return f.open }
func (f *fakeController) HotkeyActive() bool { return f.active }

func (f *fakeController) PasteIndex(ctx context.Context, index int) error {
	if f.pasteErr != nil {
		return f.pasteErr
	}
	f.pasted = append(f.pasted, index)
	return nil
}

type fakeStore struct {
	list    []prompts.Prompt
	reloads int
}

func (f *fakeStore) Path() string          { return "/tmp/prompts.json" }
func (f *fakeStore) List() []prompts.Prompt { return f.list }

func (f *fakeStore) Add(p prompts.Prompt) error {
	f.list = append(f.list, p)
	return nil
}

func (f *fakeStore) Update(index int, p prompts.Prompt) error {
	if index < 0 || index >= len(f.list) {
		return prompts.ErrNotFound
	}
	f.list[index] = p
	return nil
}

func (f *fakeStore) Delete(index int) error {
	if index < 0 || index >= len(f.list) {
		return prompts.ErrNotFound
	}
	f.list = append(f.list[:index], f.list[index+1:]...)
	return nil
}

func (f *fakeStore) Reload() error { f.reloads++; return nil }

type fakeStats struct{}

func (fakeStats) Totals() (history.Totals, error) {
	return history.Totals{Pastes: 12, Chars: 340, Failures: 2}, nil
}

func (fakeStats) RecentDays(n int) ([]history.DayCount, error) {
	return []history.DayCount{{Day: "2026-08-30", Pastes: 3, Chars: 90}}, nil
}

func (fakeStats) TopPrompts(limit int) ([]history.PromptCount, error) {
	return []history.PromptCount{{PromptName: "Greeting", Pastes: 8}}, nil
}

type daemonFixture struct {
	server *Server
	client *Client
	ctrl   *fakeController
	store  *fakeStore
}

func newDaemonFixture(t *testing.T, stats StatsSource) *daemonFixture {
	t.Helper()

	f := &daemonFixture{
		ctrl: &fakeController{active: true},
		store: &fakeStore{list: []prompts.Prompt{
			{Name: "Greeting", Content: "Hello there,\n"},
			{Name: "Sign-off", Content: "Best,\n"},
		}},
	}

	handler := &DaemonHandler{
		Version:   "test",
		StartedAt: time.Now(),
		Caps:      session.Capabilities{Type: session.X11, CopyTool: "/usr/bin/xclip", ReadTool: "/usr/bin/xclip", PasteTool: "/usr/bin/xdotool"},
		Ctrl:      f.ctrl,
		Store:     f.store,
		Stats:     stats,
		Reload: func() error {
			return f.store.Reload()
		},
	}

	socket := filepath.Join(t.TempDir(), "shiftprompt.sock")
	f.server = NewServer(socket, handler, nil)
	if err := f.server.Start(); err != nil {
		t.Fatalf("server start: %v", err)
	}
	t.Cleanup(func() { f.server.Stop() })

	f.client = NewClient(socket)
	if err := f.client.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { f.client.Close() })

	return f
}

func TestPingPong(t *testing.T) {
	f := newDaemonFixture(t, nil)
	if err := f.client.Ping(); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestStatusOverSocket(t *testing.T) {
	f := newDaemonFixture(t, fakeStats{})

	st, err := f.client.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.SessionType != "x11" {
		t.Errorf("session type = %q, want x11", st.SessionType)
	}
	if !st.CanInject {
		t.Error("expected CanInject with both tools resolved")
	}
	if !st.HotkeyActive {
		t.Error("expected HotkeyActive")
	}
	if st.PromptCount != 2 {
		t.Errorf("prompt count = %d, want 2", st.PromptCount)
	}
	if !st.HistoryActive {
		t.Error("expected HistoryActive with a stats source")
	}
}

func TestListAddDeleteOverSocket(t *testing.T) {
	f := newDaemonFixture(t, nil)

	list, err := f.client.ListPrompts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Greeting" || list[1].Index != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := f.client.AddPrompt("Follow-up", "Just checking in.\n"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := f.client.DeletePrompt(0); err != nil {
		t.Fatalf("delete: %v", err)
	}

	list, err = f.client.ListPrompts()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Sign-off" || list[1].Name != "Follow-up" {
		t.Errorf("unexpected list after add/delete: %+v", list)
	}
}

func TestDeleteOutOfRangeIsRemoteNotFound(t *testing.T) {
	f := newDaemonFixture(t, nil)

	err := f.client.DeletePrompt(99)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Code != ErrNotFound {
		t.Errorf("code = %d, want %d", remote.Code, ErrNotFound)
	}
}

func TestPasteOverSocket(t *testing.T) {
	f := newDaemonFixture(t, nil)

	if err := f.client.Paste(1); err != nil {
		t.Fatalf("paste: %v", err)
	}
	if len(f.ctrl.pasted) != 1 || f.ctrl.pasted[0] != 1 {
		t.Errorf("controller pasted %v, want [1]", f.ctrl.pasted)
	}
}

func TestShowHidePickerOverSocket(t *testing.T) {
	f := newDaemonFixture(t, nil)

	if err := f.client.ShowPicker(); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := f.client.HidePicker(); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if f.ctrl.shows != 1 || f.ctrl.hides != 1 {
		t.Errorf("shows=%d hides=%d, want 1/1", f.ctrl.shows, f.ctrl.hides)
	}
}

func TestStatsOverSocket(t *testing.T) {
	f := newDaemonFixture(t, fakeStats{})

	st, err := f.client.Stats(7, 5)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !st.Enabled || st.Pastes != 12 || st.Failures != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
	if len(st.RecentDays) != 1 || st.RecentDays[0].Day != "2026-08-30" {
		t.Errorf("unexpected recent days %+v", st.RecentDays)
	}
	if len(st.TopPrompts) != 1 || st.TopPrompts[0].Name != "Greeting" {
		t.Errorf("unexpected top prompts %+v", st.TopPrompts)
	}
}

func TestStatsDisabled(t *testing.T) {
	f := newDaemonFixture(t, nil)

	st, err := f.client.Stats(0, 0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Enabled || st.Pastes != 0 {
		t.Errorf("expected disabled stats, got %+v", st)
	}
}

func TestReloadOverSocket(t *testing.T) {
	f := newDaemonFixture(t, nil)

	if err := f.client.ReloadConfig(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if f.store.reloads != 1 {
		t.Errorf("reloads = %d, want 1", f.store.reloads)
	}
}

func TestUnknownTypeReturnsError(t *testing.T) {
	f := newDaemonFixture(t, nil)

	err := f.client.call(MessageType(0x7fff), nil, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError for unknown type, got %v", err)
	}
	if remote.Code != ErrInvalidRequest {
		t.Errorf("code = %d, want %d", remote.Code, ErrInvalidRequest)
	}
}

func TestClientConnectToMissingSocket(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "absent.sock"))
	err := c.Connect()
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Errorf("expected ErrDaemonNotRunning, got %v", err)
	}
}
