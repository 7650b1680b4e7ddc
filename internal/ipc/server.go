package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"shiftprompt/internal/logging"
)

// Handler processes a single request message and returns the response.
type Handler interface {
	HandleMessage(msg *Message) *Message
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(msg *Message) *Message

func (f HandlerFunc) HandleMessage(msg *Message) *Message { return f(msg) }

// Server listens on a unix socket and dispatches request messages to a
// Handler. One goroutine per connection; connections are short-lived
// request/response exchanges from the control CLI.
type Server struct {
	socketPath string
	handler    Handler
	log        *logging.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	running  atomic.Bool
	wg       sync.WaitGroup
}

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// NewServer creates a server for the given socket path.
func NewServer(socketPath string, handler Handler, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		log:        log.WithComponent("ipc"),
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start begins listening. A stale socket file from a crashed daemon is
// removed first; a live daemon is detected by the caller before Start.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop(listener)

	s.log.Info("ipc listening", "socket", s.socketPath)
	return nil
}

// Stop shuts the server down and removes the socket file.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn("ipc shutdown timed out")
	}

	os.Remove(s.socketPath)
	return nil
}

// SocketPath returns the socket path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("ipc accept failed", "error", err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		msg, err := ReadMessage(conn)
		if err != nil {
			// EOF, timeout, or a malformed frame ends the connection.
			return
		}

		var resp *Message
		if msg.Header.Type == MsgPing {
			resp = NewMessage(MsgPong, msg.Header.RequestID, nil)
		} else {
			resp = s.handler.HandleMessage(msg)
		}
		if resp == nil {
			resp = NewErrorMessage(msg.Header.RequestID, ErrInvalidRequest,
				fmt.Sprintf("unsupported message type 0x%04x", uint16(msg.Header.Type)))
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := resp.Write(conn); err != nil {
			s.log.Debug("ipc write failed", "error", err)
			return
		}
	}
}
