package queue

import (
	"testing"

	"github.com/espectrx/chamada-hospitalar/internal/protocol"
)

// TestAddAssignsStrictlyIncreasingIDs verifies that ids come from the
// monotonic counter and are never reused, even after removals.
func TestAddAssignsStrictlyIncreasingIDs(t *testing.T) {
	m := NewManager()

	first := m.Add(1, "Ana", "")
	second := m.Add(2, "Bruno", "red")
	if first.ID != 1 || second.ID != 2 {
		t.Fatalf("Expected ids 1 and 2, got %d and %d", first.ID, second.ID)
	}

	if !m.Remove(second.ID) {
		t.Fatal("Remove failed for existing record")
	}

	third := m.Add(1, "Carla", "")
	if third.ID != 3 {
		t.Errorf("Expected id 3 after removal, got %d (ids must never be reused)", third.ID)
	}
}

// TestAddStatusAndOrder verifies new records enter as called, in insertion
// order, regardless of color tags.
func TestAddStatusAndOrder(t *testing.T) {
	m := NewManager()
	m.Add(5, "Ana", "red")
	m.Add(3, "Bruno", "")
	m.Add(5, "Carla", "green")

	snapshot := m.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("Expected 3 active calls, got %d", len(snapshot))
	}
	wantPatients := []string{"Ana", "Bruno", "Carla"}
	for i, record := range snapshot {
		if record.Status != protocol.StatusCalled {
			t.Errorf("Record %d status = %q, want %q", i, record.Status, protocol.StatusCalled)
		}
		if record.Patient != wantPatients[i] {
			t.Errorf("Record %d patient = %q, want %q (color must not reorder)", i, record.Patient, wantPatients[i])
		}
		if record.CreatedAt == "" {
			t.Errorf("Record %d has no created_at timestamp", i)
		}
	}
}

// TestConfirmByIDMovesToHistory verifies the called→attended transition:
// the record leaves the queue, lands in history with a completion time, and
// a second confirm of the same id fails.
func TestConfirmByIDMovesToHistory(t *testing.T) {
	m := NewManager()
	record := m.Add(5, "Jane", "")

	attended, ok := m.ConfirmByID(record.ID)
	if !ok {
		t.Fatal("ConfirmByID failed for a called record")
	}
	if attended.Status != protocol.StatusAttended {
		t.Errorf("Status = %q, want %q", attended.Status, protocol.StatusAttended)
	}
	if attended.CompletedAt == "" {
		t.Error("CompletedAt not stamped")
	}
	if m.Len() != 0 {
		t.Errorf("Queue length = %d, want 0", m.Len())
	}

	history := m.HistorySnapshot()
	if len(history) != 1 || history[0].ID != record.ID {
		t.Fatalf("History = %+v, want the attended record", history)
	}

	if _, ok := m.ConfirmByID(record.ID); ok {
		t.Error("Second ConfirmByID on the same id succeeded, want not-found")
	}
}

// TestConfirmByRoomFirstMatchWins verifies the legacy path attends the
// oldest called record in the room by insertion order.
func TestConfirmByRoomFirstMatchWins(t *testing.T) {
	m := NewManager()
	first := m.Add(7, "Ana", "")
	m.Add(7, "Bruno", "")
	m.Add(2, "Carla", "")

	attended, ok := m.ConfirmByRoom(7)
	if !ok {
		t.Fatal("ConfirmByRoom failed")
	}
	if attended.ID != first.ID {
		t.Errorf("Attended id = %d, want oldest %d", attended.ID, first.ID)
	}
	if m.Len() != 2 {
		t.Errorf("Queue length = %d, want 2", m.Len())
	}

	if _, ok := m.ConfirmByRoom(99); ok {
		t.Error("ConfirmByRoom succeeded for a room with no calls")
	}
}

// TestRemoveDiscardsWithoutHistorizing verifies remove_call semantics: the
// record vanishes and never reaches history.
func TestRemoveDiscardsWithoutHistorizing(t *testing.T) {
	m := NewManager()
	record := m.Add(4, "Ana", "")

	if !m.Remove(record.ID) {
		t.Fatal("Remove failed for existing record")
	}
	if m.Len() != 0 {
		t.Errorf("Queue length = %d, want 0", m.Len())
	}
	if len(m.HistorySnapshot()) != 0 {
		t.Error("Removed record was historized")
	}
	if m.Remove(record.ID) {
		t.Error("Remove of an absent id succeeded")
	}
}

// TestSnapshotsAreCopies verifies that mutating a snapshot cannot corrupt
// the manager's state.
func TestSnapshotsAreCopies(t *testing.T) {
	m := NewManager()
	m.Add(1, "Ana", "")

	snapshot := m.Snapshot()
	snapshot[0].Patient = "tampered"

	if m.Snapshot()[0].Patient != "Ana" {
		t.Error("Snapshot mutation leaked into the manager")
	}
}
