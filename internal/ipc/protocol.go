// Package ipc carries requests between the shiftprompt daemon and the
// control CLI over a local unix socket.
//
// Messages are a fixed binary header followed by a JSON payload. The header
// carries a magic, a protocol version, a message type, a request ID for
// correlation, and the payload length.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x53504943 // "SPIC"
)

// MessageType identifies the type of IPC message.
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing     MessageType = 0x0001
	MsgPong     MessageType = 0x0002
	MsgError    MessageType = 0x0003
	MsgShutdown MessageType = 0x0004
	MsgAck      MessageType = 0x0005

	// Status (0x01xx)
	MsgStatusRequest  MessageType = 0x0100
	MsgStatusResponse MessageType = 0x0101

	// Prompt operations (0x02xx)
	MsgListPrompts     MessageType = 0x0200
	MsgListPromptsResp MessageType = 0x0201
	MsgAddPrompt       MessageType = 0x0202
	MsgUpdatePrompt    MessageType = 0x0204
	MsgDeletePrompt    MessageType = 0x0206

	// Picker and paste (0x03xx)
	MsgShowPicker MessageType = 0x0300
	MsgHidePicker MessageType = 0x0302
	MsgPaste      MessageType = 0x0304

	// Stats (0x04xx)
	MsgStatsRequest  MessageType = 0x0400
	MsgStatsResponse MessageType = 0x0401

	// Configuration (0x05xx)
	MsgReloadConfig MessageType = 0x0500
)

// Header is the fixed-size message header.
type Header struct {
	Magic     uint32
	Version   uint8
	Flags     uint8
	Type      MessageType
	RequestID uint32
	Length    uint32
}

// HeaderSize is the wire size of the header in bytes.
const HeaderSize = 16

// maxPayload bounds a single message; prompt lists are small.
const maxPayload = 4 * 1024 * 1024

// Message wraps a header and payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a message with the given type and payload.
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write writes the header to w.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads and validates a header from r.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      MessageType(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic number: %x", h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}
	return h, nil
}

// Write writes the full message to w.
func (m *Message) Write(w io.Writer) error {
	if err := m.Header.Write(w); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads a complete message from r.
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > maxPayload {
			return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Request/response payloads.

// ErrorResponse is sent when an operation fails.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrUnknown        = 1
	ErrInvalidRequest = 2
	ErrNotFound       = 3
	ErrInternalError  = 4
	ErrNoCapability   = 5
)

// StatusResponse reports daemon state.
type StatusResponse struct {
	Version       string    `json:"version"`
	StartedAt     time.Time `json:"started_at"`
	Uptime        string    `json:"uptime"`
	SessionType   string    `json:"session_type"`
	CanInject     bool      `json:"can_inject"`
	HotkeyActive  bool      `json:"hotkey_active"`
	PickerOpen    bool      `json:"picker_open"`
	PromptCount   int       `json:"prompt_count"`
	PromptsPath   string    `json:"prompts_path"`
	CopyTool      string    `json:"copy_tool,omitempty"`
	PasteTool     string    `json:"paste_tool,omitempty"`
	Diagnostics   []string  `json:"diagnostics,omitempty"`
	HistoryActive bool      `json:"history_active"`
}

// PromptEntry is one prompt in a list response.
type PromptEntry struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ListPromptsResponse carries the prompt list.
type ListPromptsResponse struct {
	Prompts []PromptEntry `json:"prompts"`
}

// AddPromptRequest adds a prompt to the store.
type AddPromptRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UpdatePromptRequest replaces the prompt at Index.
type UpdatePromptRequest struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// DeletePromptRequest removes the prompt at Index.
type DeletePromptRequest struct {
	Index int `json:"index"`
}

// PasteRequest pastes the prompt at Index into the focused window.
type PasteRequest struct {
	Index int `json:"index"`
}

// AckResponse acknowledges a state-changing request.
type AckResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// StatsDay is a per-day paste aggregate.
type StatsDay struct {
	Day    string `json:"day"`
	Pastes int    `json:"pastes"`
	Chars  int    `json:"chars"`
}

// StatsPrompt is a per-prompt usage aggregate.
type StatsPrompt struct {
	Name   string `json:"name"`
	Pastes int    `json:"pastes"`
}

// StatsRequest asks for usage statistics.
type StatsRequest struct {
	Days       int `json:"days,omitempty"`
	TopPrompts int `json:"top_prompts,omitempty"`
}

// StatsResponse carries usage statistics.
type StatsResponse struct {
	Enabled    bool          `json:"enabled"`
	Pastes     int           `json:"pastes"`
	Chars      int           `json:"chars"`
	Failures   int           `json:"failures"`
	FirstUsed  time.Time     `json:"first_used,omitempty"`
	LastUsed   time.Time     `json:"last_used,omitempty"`
	RecentDays []StatsDay    `json:"recent_days,omitempty"`
	TopPrompts []StatsPrompt `json:"top_prompts,omitempty"`
}

// Encode encodes a payload to JSON bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes into v.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewErrorMessage creates an error response message.
func NewErrorMessage(requestID uint32, code int, message string) *Message {
	payload, _ := Encode(&ErrorResponse{Code: code, Message: message})
	return NewMessage(MsgError, requestID, payload)
}

// NewResponse creates a response message with a JSON payload.
func NewResponse(msgType MessageType, requestID uint32, v any) (*Message, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return NewMessage(msgType, requestID, payload), nil
}
