// Package queue owns the active patient-call queue and the attendance
// history. It is the single source of truth for call state; every view sent
// to a peer is a point-in-time snapshot taken here.
package queue

import (
	"time"

	"github.com/espectrx/chamada-hospitalar/internal/protocol"
)

// Manager tracks called patients in strict insertion order plus an
// append-only history of attended calls. It performs no locking of its own:
// the hub serializes all access under its session mutex.
type Manager struct {
	nextID  int
	active  []protocol.CallRecord
	history []protocol.CallRecord
	now     func() time.Time
}

// NewManager returns an empty queue manager. Ids start at 1 and are never
// reused within the process lifetime, regardless of removals.
func NewManager() *Manager {
	return &Manager{nextID: 1, now: time.Now}
}

// Add creates a call record for the given room and appends it to the active
// queue with status called.
func (m *Manager) Add(room int, patient, color string) protocol.CallRecord {
	record := protocol.CallRecord{
		ID:        m.nextID,
		Room:      room,
		Patient:   patient,
		CreatedAt: m.now().Format(protocol.TimeLayout),
		Status:    protocol.StatusCalled,
		Color:     color,
	}
	m.nextID++
	m.active = append(m.active, record)
	return record
}

// ConfirmByID flips the called record with the given id to attended, stamps
// its completion time, and moves it from the queue to the history. It
// returns the attended record, or false when no called record matches.
func (m *Manager) ConfirmByID(id int) (protocol.CallRecord, bool) {
	for i, record := range m.active {
		if record.ID == id && record.Status == protocol.StatusCalled {
			return m.attend(i), true
		}
	}
	return protocol.CallRecord{}, false
}

// ConfirmByRoom attends the oldest called record in the given room. Matching
// is first-by-insertion-order with no other tie-break.
func (m *Manager) ConfirmByRoom(room int) (protocol.CallRecord, bool) {
	for i, record := range m.active {
		if record.Room == room && record.Status == protocol.StatusCalled {
			return m.attend(i), true
		}
	}
	return protocol.CallRecord{}, false
}

func (m *Manager) attend(i int) protocol.CallRecord {
	record := m.active[i]
	record.Status = protocol.StatusAttended
	record.CompletedAt = m.now().Format(protocol.TimeLayout)
	m.history = append(m.history, record)
	m.active = append(m.active[:i], m.active[i+1:]...)
	return record
}

// Remove deletes the record with the given id outright, regardless of
// status, without historizing it. It reports whether a record was removed.
func (m *Manager) Remove(id int) bool {
	for i, record := range m.active {
		if record.ID == id {
			m.active = append(m.active[:i], m.active[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the active queue in insertion order.
func (m *Manager) Snapshot() []protocol.CallRecord {
	out := make([]protocol.CallRecord, len(m.active))
	copy(out, m.active)
	return out
}

// HistorySnapshot returns a copy of the attended-call history.
func (m *Manager) HistorySnapshot() []protocol.CallRecord {
	out := make([]protocol.CallRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Len reports the number of active calls.
func (m *Manager) Len() int {
	return len(m.active)
}
