// Package protocol defines the newline-delimited JSON wire contract shared by
// the TCP listener, the WebSocket bridge, and every protocol peer.
package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Client-to-server message types.
const (
	TypeRegister    = "register"
	TypeLoginRoom   = "login_room"
	TypeCallPatient = "call_patient"
	TypeConfirmCall = "confirm_call"
	TypeConfirmRoom = "confirm_room"
	TypeRemoveCall  = "remove_call"
	TypeGetQueue    = "get_queue"
	TypeGetRooms    = "get_rooms"
)

// Server-to-client message types.
const (
	TypeRegisterAck         = "register_ack"
	TypeLoginAck            = "login_ack"
	TypeCallAck             = "call_ack"
	TypeQueueSnapshot       = "queue_snapshot"
	TypeRoomsSnapshot       = "rooms_snapshot"
	TypeDoctorConnected     = "doctor_connected"
	TypeNewCall             = "new_call"
	TypeCallConfirmed       = "call_confirmed"
	TypeAttendanceConfirmed = "attendance_confirmed"
	TypeCallRemoved         = "call_removed"
	TypeError               = "error"
)

// CallRecord status values.
const (
	StatusCalled   = "called"
	StatusAttended = "attended"
)

// TimeLayout is the clock format carried on call records.
const TimeLayout = "15:04:05"

// Envelope carries only the type discriminator; the full payload is decoded
// a second time into the matching request struct.
type Envelope struct {
	Type string `json:"type"`
}

// IntField accepts both a JSON number and a numeric string. Desktop peers
// send room numbers and call ids straight from text inputs, so either shape
// arrives on the wire. A value that parses as neither leaves OK false rather
// than failing the whole message.
type IntField struct {
	Value int
	OK    bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *IntField) UnmarshalJSON(data []byte) error {
	f.Value = 0
	f.OK = false

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		f.Value = n
		f.OK = true
		return nil
	}

	var n int
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil
	}
	f.Value = n
	f.OK = true
	return nil
}

// CallRecord is one instance of summoning a patient. CreatedAt and
// CompletedAt are wall-clock strings in TimeLayout format, matching what the
// reception displays render directly. Color is display metadata only and
// never affects queue ordering.
type CallRecord struct {
	ID          int    `json:"id"`
	Room        int    `json:"room"`
	Patient     string `json:"patient"`
	CreatedAt   string `json:"created_at"`
	Status      string `json:"status"`
	Color       string `json:"color,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}

// RoomInfo describes one connected doctor room in a rooms_snapshot.
type RoomInfo struct {
	Number     int    `json:"number"`
	Connected  bool   `json:"connected"`
	Endpoint   string `json:"endpoint"`
	DoctorName string `json:"doctor_name"`
}

// RegisterRequest declares the peer's role. "recepcao" and "medico" are
// accepted as aliases for the canonical role names.
type RegisterRequest struct {
	ClientType string `json:"client_type"`
}

// LoginRoomRequest binds the sending session to a consultation room.
type LoginRoomRequest struct {
	Room IntField `json:"room"`
	Name string   `json:"name"`
}

// CallPatientRequest summons a patient to the sender's room.
type CallPatientRequest struct {
	Patient string `json:"patient"`
	Color   string `json:"color"`
}

// ConfirmCallRequest confirms attendance of a call by id.
type ConfirmCallRequest struct {
	CallID IntField `json:"call_id"`
}

// ConfirmRoomRequest is the legacy confirm shape: it attends the oldest
// called record in the given room.
type ConfirmRoomRequest struct {
	Room IntField `json:"room"`
}

// RemoveCallRequest deletes a call outright without historizing it.
type RemoveCallRequest struct {
	CallID IntField `json:"call_id"`
}

// RegisterAck acknowledges a register message with the resolved role.
type RegisterAck struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

// LoginAck reports the outcome of a login_room attempt.
type LoginAck struct {
	Type    string `json:"type"`
	OK      bool   `json:"ok"`
	Room    int    `json:"room,omitempty"`
	Message string `json:"message,omitempty"`
}

// CallAck confirms a call_patient back to the requesting doctor.
type CallAck struct {
	Type    string `json:"type"`
	Patient string `json:"patient"`
}

// QueueSnapshot carries the full active queue in insertion order.
type QueueSnapshot struct {
	Type  string       `json:"type"`
	Queue []CallRecord `json:"queue"`
}

// RoomsSnapshot carries the full roster of connected rooms.
type RoomsSnapshot struct {
	Type  string     `json:"type"`
	Rooms []RoomInfo `json:"rooms"`
}

// DoctorConnected notifies reception that a doctor logged into a room.
type DoctorConnected struct {
	Type string `json:"type"`
	Room int    `json:"room"`
	Name string `json:"name"`
}

// NewCall notifies reception of a freshly queued call.
type NewCall struct {
	Type string     `json:"type"`
	Call CallRecord `json:"call"`
}

// CallConfirmed is the reply to the reception session that confirmed a call.
type CallConfirmed struct {
	Type   string `json:"type"`
	CallID int    `json:"call_id"`
}

// AttendanceConfirmed is pushed asynchronously to the doctor whose call was
// confirmed, signalling that the next patient can be summoned.
type AttendanceConfirmed struct {
	Type    string `json:"type"`
	CallID  int    `json:"call_id"`
	Patient string `json:"patient"`
	Room    int    `json:"room"`
}

// CallRemoved confirms an unconditional queue removal.
type CallRemoved struct {
	Type   string `json:"type"`
	CallID int    `json:"call_id"`
}

// ErrorMessage is recoverable feedback to a peer; it never signals that the
// connection should be dropped.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
