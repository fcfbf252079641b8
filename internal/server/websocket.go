// Package server bridges browser peers onto the call protocol: an upgraded
// WebSocket connection yields an ordinary session speaking the same
// line-delimited JSON taxonomy as the TCP front end.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/espectrx/chamada-hospitalar/internal/protocol"
)

const pongWait = 60 * time.Second

// HandleWebSocket upgrades the request and serves the bridged session. The
// origin allow-list from the configuration is enforced by the upgrader.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.serveWebSocket(conn)
	}()
}

// serveWebSocket reads text frames and feeds them through the same line
// reader as the TCP worker, so a frame may carry one message with or without
// its trailing line feed, or several LF-separated messages at once.
func (h *Hub) serveWebSocket(conn *websocket.Conn) {
	s := h.attach(
		&wsTransport{conn: conn, writeTimeout: h.cfg.WriteTimeout()},
		conn.RemoteAddr().String(),
	)
	defer h.detach(s)

	conn.SetReadLimit(int64(h.cfg.Protocol.MaxLineSize))
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting read deadline for %s: %v", s.id, err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	reader := protocol.NewLineReader(h.cfg.Protocol.MaxLineSize)

	for {
		if h.ctx.Err() != nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				log.Printf("Session %s disconnected: %v", s.id, err)
			} else if !isExpectedCloseError(err) {
				log.Printf("WebSocket read error from %s: %v", s.id, err)
			}
			return
		}

		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		h.processInput(s, reader, data)
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			return
		}
	}
}
