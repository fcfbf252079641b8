// Package server coordinates session registration, room bindings, queue
// mutations, and reception broadcast for the patient-call system.
package server

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/espectrx/chamada-hospitalar/internal/config"
	"github.com/espectrx/chamada-hospitalar/internal/protocol"
	"github.com/espectrx/chamada-hospitalar/internal/queue"
)

// Hub owns all shared mutable state: the session set, the room bindings, the
// reception set, and the call queue. A single mutex is held for the entire
// duration of each handler's mutation; handlers never do socket I/O under it
// because sends are non-blocking channel enqueues.
type Hub struct {
	cfg *config.Config

	mu        sync.Mutex
	sessions  map[*Session]bool
	rooms     map[int]*Session
	reception map[*Session]bool
	calls     *queue.Manager

	upgrader       websocket.Upgrader
	allowedOrigins map[string]struct{}
	allowAll       bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub creates a hub ready to accept sessions from both front ends.
func NewHub(cfg *config.Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	origins, allowAll := normalizeOrigins(cfg.Web.AllowedOrigins)

	h := &Hub{
		cfg:            cfg,
		sessions:       make(map[*Session]bool),
		rooms:          make(map[int]*Session),
		reception:      make(map[*Session]bool),
		calls:          queue.NewManager(),
		allowedOrigins: origins,
		allowAll:       allowAll,
		ctx:            ctx,
		cancel:         cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// attach creates a session for the given transport, registers it, and starts
// its write pump.
func (h *Hub) attach(conn transport, addr string) *Session {
	limiter := newRateLimiter(h.cfg.RateLimit.Burst, h.cfg.RefillInterval())
	s := newSession(conn, addr, limiter)

	h.mu.Lock()
	h.sessions[s] = true
	count := len(h.sessions)
	h.mu.Unlock()
	log.Printf("Session %s connected. Total sessions: %d", s.id, count)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()
	return s
}

// detach runs the disconnect cleanup exactly once per session regardless of
// which error path triggered it: it releases any room binding, removes the
// session from the reception set, and broadcasts the updated room roster when
// a room was freed.
func (h *Hub) detach(s *Session) {
	s.cleanup.Do(func() {
		h.mu.Lock()
		delete(h.sessions, s)
		delete(h.reception, s)
		freedRoom := 0
		if s.room != 0 && h.rooms[s.room] == s {
			delete(h.rooms, s.room)
			freedRoom = s.room
		}
		s.closed = true
		if freedRoom != 0 {
			h.broadcastToReceptionLocked(h.roomsSnapshotPayloadLocked())
		}
		count := len(h.sessions)
		h.mu.Unlock()

		close(s.send)
		if freedRoom != 0 {
			log.Printf("Session %s disconnected, room %d released. Total sessions: %d", s.id, freedRoom, count)
		} else {
			log.Printf("Session %s disconnected. Total sessions: %d", s.id, count)
		}
	})
}

// broadcastToReceptionLocked fans a payload out to every reception session.
// Delivery is best effort: a session whose buffer is full or whose channel is
// closed is silently evicted from the reception set and never retried. The
// caller must hold the hub mutex.
func (h *Hub) broadcastToReceptionLocked(payload []byte) {
	for s := range h.reception {
		if !s.trySend(payload) {
			delete(h.reception, s)
			log.Printf("Reception session %s evicted from broadcast set", s.id)
		}
	}
}

func (h *Hub) queueSnapshotPayloadLocked() []byte {
	return mustEncode(protocol.QueueSnapshot{
		Type:  protocol.TypeQueueSnapshot,
		Queue: h.calls.Snapshot(),
	})
}

func (h *Hub) roomsSnapshotPayloadLocked() []byte {
	return mustEncode(protocol.RoomsSnapshot{
		Type:  protocol.TypeRoomsSnapshot,
		Rooms: h.roomInfosLocked(),
	})
}

func (h *Hub) roomInfosLocked() []protocol.RoomInfo {
	numbers := make([]int, 0, len(h.rooms))
	for number := range h.rooms {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	infos := make([]protocol.RoomInfo, 0, len(numbers))
	for _, number := range numbers {
		s := h.rooms[number]
		infos = append(infos, protocol.RoomInfo{
			Number:     number,
			Connected:  true,
			Endpoint:   s.endpoint(),
			DoctorName: s.name,
		})
	}
	return infos
}

// QueueSnapshot returns a point-in-time copy of the active queue.
func (h *Hub) QueueSnapshot() []protocol.CallRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls.Snapshot()
}

// HistorySnapshot returns a copy of the attended-call history.
func (h *Hub) HistorySnapshot() []protocol.CallRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls.HistorySnapshot()
}

// RoomsSnapshot returns the current roster of connected rooms.
func (h *Hub) RoomsSnapshot() []protocol.RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.roomInfosLocked()
}

// SessionCount reports the number of live sessions across both front ends.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown closes every live connection and waits for all session goroutines
// to finish, or gives up when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")
	h.cancel()

	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Printf("Error closing connection for %s: %v", s.id, err)
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

func mustEncode(v any) []byte {
	payload, err := protocol.Encode(v)
	if err != nil {
		log.Printf("Error encoding %T message: %v", v, err)
		return nil
	}
	return payload
}
