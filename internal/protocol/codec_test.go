package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// TestLineReaderSplitsCompleteLines verifies that a single read containing
// several LF-terminated segments yields each segment separately.
func TestLineReaderSplitsCompleteLines(t *testing.T) {
	r := NewLineReader(0)

	lines, err := r.Feed([]byte("{\"type\":\"get_queue\"}\n{\"type\":\"get_rooms\"}\n"))
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if string(lines[0]) != `{"type":"get_queue"}` {
		t.Errorf("Unexpected first line: %s", lines[0])
	}
	if string(lines[1]) != `{"type":"get_rooms"}` {
		t.Errorf("Unexpected second line: %s", lines[1])
	}
}

// TestLineReaderRetainsPartialSegment verifies that a trailing partial line
// is held back until the terminating line feed arrives in a later read.
func TestLineReaderRetainsPartialSegment(t *testing.T) {
	r := NewLineReader(0)

	lines, err := r.Feed([]byte(`{"type":"regi`))
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("Expected no complete lines yet, got %d", len(lines))
	}
	if r.Pending() == 0 {
		t.Error("Expected partial bytes to be buffered")
	}

	lines, err = r.Feed([]byte("ster\"}\n"))
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line after completion, got %d", len(lines))
	}
	if string(lines[0]) != `{"type":"register"}` {
		t.Errorf("Reassembled line mismatch: %s", lines[0])
	}
	if r.Pending() != 0 {
		t.Errorf("Expected empty buffer, %d bytes pending", r.Pending())
	}
}

// TestLineReaderDropsBlankAndCRLF verifies that blank lines are skipped and
// CRLF peers get their carriage returns stripped.
func TestLineReaderDropsBlankAndCRLF(t *testing.T) {
	r := NewLineReader(0)

	lines, err := r.Feed([]byte("\n{\"type\":\"get_queue\"}\r\n\r\n"))
	if err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d", len(lines))
	}
	if string(lines[0]) != `{"type":"get_queue"}` {
		t.Errorf("Unexpected line: %s", lines[0])
	}
}

// TestLineReaderOverflow verifies that an unterminated line beyond the limit
// is discarded with ErrLineTooLong and the reader keeps working afterwards.
func TestLineReaderOverflow(t *testing.T) {
	r := NewLineReader(16)

	_, err := r.Feed([]byte(strings.Repeat("x", 32)))
	if err != ErrLineTooLong {
		t.Fatalf("Expected ErrLineTooLong, got %v", err)
	}
	if r.Pending() != 0 {
		t.Errorf("Expected discarded buffer, %d bytes pending", r.Pending())
	}

	lines, err := r.Feed([]byte("{\"type\":\"get_queue\"}\n"))
	if err != nil {
		t.Fatalf("Feed after overflow returned error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected reader to recover, got %d lines", len(lines))
	}
}

// TestLineReaderSegmentsCompletedBeforeOverflow verifies that lines finished
// in the same read as an overflow are still delivered.
func TestLineReaderSegmentsCompletedBeforeOverflow(t *testing.T) {
	r := NewLineReader(8)

	lines, err := r.Feed([]byte("{\"a\":1}\n" + strings.Repeat("y", 20)))
	if err != ErrLineTooLong {
		t.Fatalf("Expected ErrLineTooLong, got %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Expected the completed line, got %d lines", len(lines))
	}
}

// TestEncodeAppendsLineFeed verifies that encoded messages end with exactly
// one line feed.
func TestEncodeAppendsLineFeed(t *testing.T) {
	payload, err := Encode(ErrorMessage{Type: TypeError, Message: "boom"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasSuffix(payload, []byte("\n")) {
		t.Error("Encoded payload is not LF-terminated")
	}
	if bytes.Count(payload, []byte("\n")) != 1 {
		t.Error("Encoded payload contains embedded line feeds")
	}

	var decoded ErrorMessage
	if err := json.Unmarshal(payload[:len(payload)-1], &decoded); err != nil {
		t.Fatalf("Round trip failed: %v", err)
	}
	if decoded.Message != "boom" {
		t.Errorf("Unexpected message: %q", decoded.Message)
	}
}

// TestIntFieldShapes verifies that room numbers and call ids are accepted as
// JSON numbers or numeric strings and flagged invalid otherwise.
func TestIntFieldShapes(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		value int
		ok    bool
	}{
		{"number", `{"room":7}`, 7, true},
		{"numeric string", `{"room":"12"}`, 12, true},
		{"word string", `{"room":"lobby"}`, 0, false},
		{"null", `{"room":null}`, 0, false},
		{"missing", `{}`, 0, false},
		{"float", `{"room":7.5}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req LoginRoomRequest
			if err := json.Unmarshal([]byte(tt.raw), &req); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if req.Room.OK != tt.ok {
				t.Errorf("OK = %v, want %v", req.Room.OK, tt.ok)
			}
			if req.Room.Value != tt.value {
				t.Errorf("Value = %d, want %d", req.Room.Value, tt.value)
			}
		})
	}
}
