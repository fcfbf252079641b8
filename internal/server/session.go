// Package server manages individual peer sessions, handling the buffered
// send channel, write pump, and the transport abstraction shared by the TCP
// listener and the WebSocket bridge.
package server

import (
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Role is the registered role of a session.
type Role string

// Session roles. A session starts unassigned and transitions once on
// register (or implicitly to doctor on a bare login_room).
const (
	RoleUnassigned Role = "unassigned"
	RoleDoctor     Role = "doctor"
	RoleReception  Role = "reception"
)

const pingPeriod = 54 * time.Second

// transport abstracts the write side of a peer connection so the hub treats
// plain TCP peers and bridged WebSocket peers identically.
type transport interface {
	WriteMessage(data []byte) error
	Ping() error
	Close() error
}

// Session represents one live peer connection. Role, room, and name are
// mutated only under the hub mutex; the send channel decouples handler
// execution from socket writes.
type Session struct {
	id      string
	addr    string
	role    Role
	room    int
	name    string
	conn    transport
	send    chan []byte
	closed  bool
	cleanup sync.Once
	limiter *rateLimiter
}

func newSession(conn transport, addr string, limiter *rateLimiter) *Session {
	return &Session{
		id:      fmt.Sprintf("%s#%s", addr, uuid.New().String()[:8]),
		addr:    addr,
		role:    RoleUnassigned,
		conn:    conn,
		send:    make(chan []byte, 256),
		limiter: limiter,
	}
}

// ID returns the session identifier, derived from the connection's remote
// address plus a short unique suffix.
func (s *Session) ID() string {
	return s.id
}

// endpoint returns the host portion of the remote address, as carried in
// rooms_snapshot entries.
func (s *Session) endpoint() string {
	host, _, err := net.SplitHostPort(s.addr)
	if err != nil {
		return s.addr
	}
	return host
}

// trySend enqueues a payload without blocking. It must be called with the
// hub mutex held. A full buffer or a closed session reports failure; the
// caller decides whether that evicts the session from anything.
func (s *Session) trySend(payload []byte) bool {
	if payload == nil {
		return true
	}
	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// writePump drains the send channel onto the transport, serializing all
// writes to this peer. It exits when the channel is closed or a write fails,
// closing the underlying connection either way so the read side unblocks.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s: %v", s.id, err)
		}
	}()

	for {
		select {
		case payload, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(payload); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Write error to %s: %v", s.id, err)
				}
				return
			}
		case <-ticker.C:
			if err := s.conn.Ping(); err != nil {
				return
			}
		}
	}
}

// tcpTransport writes LF-terminated frames straight to a TCP connection.
type tcpTransport struct {
	conn         net.Conn
	writeTimeout time.Duration
}

func (t *tcpTransport) WriteMessage(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	_, err := t.conn.Write(data)
	return err
}

// Ping is a no-op for raw TCP; stalled peers are detected by the read
// deadline in the connection worker instead.
func (t *tcpTransport) Ping() error {
	return nil
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// wsTransport carries the identical LF-terminated frames as WebSocket text
// messages, so bridged peers reuse the same line parser.
type wsTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (t *wsTransport) WriteMessage(data []byte) error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *wsTransport) Ping() error {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
		return err
	}
	return t.conn.WriteMessage(websocket.PingMessage, nil)
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}
