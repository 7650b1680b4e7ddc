package ipc

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Client errors.
var (
	ErrNotConnected     = errors.New("not connected to daemon")
	ErrDaemonNotRunning = errors.New("daemon is not running")
)

// RemoteError is an error response from the daemon.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Client is a synchronous request/response client for the daemon socket.
// Safe for concurrent use; requests are serialized on the connection.
type Client struct {
	socketPath string
	timeout    time.Duration

	mu        sync.Mutex
	conn      net.Conn
	nextReqID atomic.Uint32
}

// NewClient creates a client for the given socket path.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// Connect dials the daemon socket.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", c.socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	c.conn = conn
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// call sends a request and decodes the response into out (when non-nil).
// An MsgError response is returned as a *RemoteError.
func (c *Client) call(msgType MessageType, req any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	var payload []byte
	if req != nil {
		var err error
		payload, err = Encode(req)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	msg := NewMessage(msgType, c.nextReqID.Add(1), payload)

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if err := msg.Write(c.conn); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	resp, err := ReadMessage(c.conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.Header.RequestID != msg.Header.RequestID {
		return fmt.Errorf("response correlation mismatch: got %d, want %d",
			resp.Header.RequestID, msg.Header.RequestID)
	}

	if resp.Header.Type == MsgError {
		var e ErrorResponse
		if err := Decode(resp.Payload, &e); err != nil {
			return fmt.Errorf("decode error response: %w", err)
		}
		return &RemoteError{Code: e.Code, Message: e.Message}
	}

	if out != nil {
		if err := Decode(resp.Payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Ping checks that the daemon is responsive.
func (c *Client) Ping() error {
	return c.call(MsgPing, nil, nil)
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(MsgStatusRequest, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListPrompts fetches the prompt list.
func (c *Client) ListPrompts() ([]PromptEntry, error) {
	var resp ListPromptsResponse
	if err := c.call(MsgListPrompts, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Prompts, nil
}

// AddPrompt appends a prompt to the store.
func (c *Client) AddPrompt(name, content string) error {
	var resp AckResponse
	return c.ackCall(MsgAddPrompt, &AddPromptRequest{Name: name, Content: content}, &resp)
}

// UpdatePrompt replaces the prompt at index.
func (c *Client) UpdatePrompt(index int, name, content string) error {
	var resp AckResponse
	return c.ackCall(MsgUpdatePrompt, &UpdatePromptRequest{Index: index, Name: name, Content: content}, &resp)
}

// DeletePrompt removes the prompt at index.
func (c *Client) DeletePrompt(index int) error {
	var resp AckResponse
	return c.ackCall(MsgDeletePrompt, &DeletePromptRequest{Index: index}, &resp)
}

// Paste pastes the prompt at index into the focused window.
func (c *Client) Paste(index int) error {
	var resp AckResponse
	return c.ackCall(MsgPaste, &PasteRequest{Index: index}, &resp)
}

// ShowPicker opens the prompt picker.
func (c *Client) ShowPicker() error {
	var resp AckResponse
	return c.ackCall(MsgShowPicker, nil, &resp)
}

// HidePicker dismisses the prompt picker.
func (c *Client) HidePicker() error {
	var resp AckResponse
	return c.ackCall(MsgHidePicker, nil, &resp)
}

// Stats fetches usage statistics.
func (c *Client) Stats(days, topPrompts int) (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.call(MsgStatsRequest, &StatsRequest{Days: days, TopPrompts: topPrompts}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReloadConfig asks the daemon to reload its configuration and prompts.
func (c *Client) ReloadConfig() error {
	var resp AckResponse
	return c.ackCall(MsgReloadConfig, nil, &resp)
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown() error {
	var resp AckResponse
	return c.ackCall(MsgShutdown, nil, &resp)
}

func (c *Client) ackCall(msgType MessageType, req any, resp *AckResponse) error {
	if err := c.call(msgType, req, resp); err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	return nil
}
