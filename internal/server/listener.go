// Package server runs the TCP front end: an accept loop that spawns one
// worker goroutine per connection, each blocking only on socket reads.
package server

import (
	"errors"
	"io"
	"log"
	"net"
	"time"

	"github.com/espectrx/chamada-hospitalar/internal/protocol"
)

// ServeTCP accepts connections until the listener is closed or the hub shuts
// down. It blocks, so call it from its own goroutine.
func (h *Hub) ServeTCP(ln net.Listener) error {
	log.Printf("TCP listener accepting connections on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-h.ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.serveConn(conn)
		}()
	}
}

// serveConn is the per-connection worker. A read timeout only means the peer
// is quiet and re-loops; EOF or a reset terminates the worker, which runs
// disconnect cleanup exactly once via detach.
func (h *Hub) serveConn(conn net.Conn) {
	s := h.attach(
		&tcpTransport{conn: conn, writeTimeout: h.cfg.WriteTimeout()},
		conn.RemoteAddr().String(),
	)
	defer h.detach(s)

	reader := protocol.NewLineReader(h.cfg.Protocol.MaxLineSize)
	buf := make([]byte, 4096)
	readTimeout := h.cfg.ReadTimeout()

	for {
		if h.ctx.Err() != nil {
			return
		}
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		n, err := conn.Read(buf)
		if n > 0 {
			h.processInput(s, reader, buf[:n])
		}
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// Stalled peer; keep waiting for the next frame.
				continue
			}
			if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
				log.Printf("Session %s connection closed: %v", s.id, err)
			} else {
				log.Printf("Read error from %s: %v", s.id, err)
			}
			return
		}
	}
}

// processInput feeds raw bytes through the line reader and dispatches every
// completed segment. Shared by the TCP worker and the WebSocket bridge.
func (h *Hub) processInput(s *Session, reader *protocol.LineReader, data []byte) {
	lines, err := reader.Feed(data)
	for _, line := range lines {
		if !s.limiter.allow() {
			log.Printf("Rate limit exceeded for %s; discarding message", s.id)
			continue
		}
		h.dispatch(s, line)
	}
	if err != nil {
		log.Printf("Oversized line from %s discarded", s.id)
		h.sendError(s, "message exceeds maximum length")
	}
}
