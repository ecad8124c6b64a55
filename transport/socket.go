// Package transport provides Socket, a thin duplex-channel wrapper that
// turns a WebSocket connection into the event source (open/close/message)
// and single send operation the rest of the host builds on. Socket does
// not interpret payloads; that is rpc.Duplex's job one layer up.
//
// This generalizes the framing from hashicorp/serf's client.RPCClient:
// where that code dialed a *net.TCPConn and ran one blocking read loop
// decoding msgpack headers directly off a bufio.Reader, Socket dials a
// *websocket.Conn and runs the same kind of read-pump goroutine, but
// delivers whole messages to a callback instead of decoding them itself.
package transport

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/boxcast/actionhost/hosterrors"
)

// Handler receives Socket lifecycle events. OnOpen runs in Connect's caller;
// OnMessage and OnClose may be invoked from the Socket's own read-pump
// goroutine (OnClose also from Close's caller); implementations must not
// block it for long and must be safe to call concurrently with Send.
type Handler struct {
	OnOpen    func()
	OnClose   func(code int, reason string)
	OnMessage func(b []byte)
}

// Socket wraps one websocket connection. The zero value is not usable;
// construct with New.
type Socket struct {
	dialTimeout time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	open   bool
	handle Handler
}

// New builds a Socket that has not yet dialed anything.
func New(dialTimeout time.Duration) *Socket {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &Socket{dialTimeout: dialTimeout}
}

// Connect dials endpoint and, on success, starts the read pump that
// delivers OnMessage/OnClose events. It blocks until the handshake
// completes (or fails) but does not wait for the connection to close.
func (s *Socket) Connect(ctx context.Context, endpoint *url.URL, handle Handler) error {
	dialer := websocket.Dialer{HandshakeTimeout: s.dialTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint.String(), nil)
	if err != nil {
		return hosterrors.Wrap(hosterrors.ConnectionFailed, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.open = true
	s.handle = handle
	s.mu.Unlock()

	if handle.OnOpen != nil {
		handle.OnOpen()
	}
	go s.readPump()
	return nil
}

func (s *Socket) readPump() {
	for {
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		msgType, b, err := conn.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			reason := err.Error()
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
				reason = ce.Text
			}
			s.teardown(code, reason)
			return
		}
		if msgType != websocket.BinaryMessage && msgType != websocket.TextMessage {
			continue
		}

		s.mu.Lock()
		handle := s.handle
		s.mu.Unlock()
		if handle.OnMessage != nil {
			handle.OnMessage(b)
		}
	}
}

func (s *Socket) teardown(code int, reason string) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	s.open = false
	handle := s.handle
	s.mu.Unlock()

	if handle.OnClose != nil {
		handle.OnClose(code, reason)
	}
}

// Send writes one message. Sends are serialized under a mutex: the
// RPCClient's writeLock around enc.Encode/writer.Flush generalizes directly
// to one write call per Send here, since the websocket library itself does
// the framing a buffered writer would otherwise have to do by hand.
func (s *Socket) Send(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open || s.conn == nil {
		return hosterrors.New(hosterrors.SendFailed, "socket not open")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return hosterrors.Wrap(hosterrors.SendFailed, err)
	}
	return nil
}

// IsOpen reports whether the socket currently believes it has a live
// connection. It is advisory: a write can still fail between the check and
// the call.
func (s *Socket) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Close sends a close frame (best-effort) and tears down local state,
// invoking OnClose exactly once even if the remote side closes first.
func (s *Socket) Close(code int, reason string) error {
	s.mu.Lock()
	conn := s.conn
	wasOpen := s.open
	s.mu.Unlock()

	if conn != nil && wasOpen {
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	}
	s.teardown(code, reason)
	if conn != nil {
		return conn.Close()
	}
	return nil
}
