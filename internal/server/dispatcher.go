// Package server routes decoded protocol messages to their handlers by the
// type discriminator.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/espectrx/chamada-hospitalar/internal/protocol"
)

// dispatch decodes one wire line and runs the matching handler under the hub
// mutex. Every failure mode is local to the sending session: a malformed
// line, an unknown type, or a handler panic produces one error reply and
// leaves the connection open.
func (h *Hub) dispatch(s *Session, line []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic handling message from %s: %v", s.id, r)
			h.sendError(s, "internal server error")
		}
	}()

	var env protocol.Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		log.Printf("Malformed message from %s: %v", s.id, err)
		h.sendError(s, "invalid JSON message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch env.Type {
	case protocol.TypeRegister:
		h.handleRegister(s, line)
	case protocol.TypeLoginRoom:
		h.handleLoginRoom(s, line)
	case protocol.TypeCallPatient:
		h.handleCallPatient(s, line)
	case protocol.TypeConfirmCall:
		h.handleConfirmCall(s, line)
	case protocol.TypeConfirmRoom:
		h.handleConfirmRoom(s, line)
	case protocol.TypeRemoveCall:
		h.handleRemoveCall(s, line)
	case protocol.TypeGetQueue:
		h.handleGetQueue(s)
	case protocol.TypeGetRooms:
		h.handleGetRooms(s)
	default:
		log.Printf("Unknown message type %q from %s", env.Type, s.id)
		s.trySend(errorPayload(fmt.Sprintf("unknown message type: %s", env.Type)))
	}
}

// sendError delivers a single error reply to the session. Safe to call
// without the hub mutex held.
func (h *Hub) sendError(s *Session, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.trySend(errorPayload(message))
}

func errorPayload(message string) []byte {
	return mustEncode(protocol.ErrorMessage{Type: protocol.TypeError, Message: message})
}

// isExpectedCloseError checks if an error is expected during connection
// closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe") ||
		strings.Contains(errStr, "connection reset by peer")
}
