// Package server implements the protocol handlers. Every handler runs with
// the hub mutex held for its full duration, so registry and queue mutations
// are serialized across all connection workers.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/espectrx/chamada-hospitalar/internal/protocol"
)

func normalizeRole(clientType string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(clientType)) {
	case "doctor", "medico":
		return RoleDoctor, true
	case "reception", "recepcao":
		return RoleReception, true
	default:
		return RoleUnassigned, false
	}
}

// handleRegister resolves the declared role and, for reception sessions,
// immediately pushes the full queue and room roster so a late joiner never
// starts blind.
func (h *Hub) handleRegister(s *Session, line []byte) {
	var req protocol.RegisterRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.trySend(errorPayload("invalid register message"))
		return
	}

	role, ok := normalizeRole(req.ClientType)
	if !ok {
		s.trySend(errorPayload(fmt.Sprintf("unknown client type: %s", req.ClientType)))
		return
	}

	s.role = role
	if role == RoleReception {
		h.reception[s] = true
		s.trySend(h.queueSnapshotPayloadLocked())
		s.trySend(h.roomsSnapshotPayloadLocked())
	}

	s.trySend(mustEncode(protocol.RegisterAck{Type: protocol.TypeRegisterAck, Role: string(role)}))
	log.Printf("Session %s registered as %s", s.id, role)
}

// handleLoginRoom binds the sender to a room. A room bound to any live
// session, including the sender itself, is reported as taken. A session that
// never sent register is registered as a doctor implicitly.
func (h *Hub) handleLoginRoom(s *Session, line []byte) {
	var req protocol.LoginRoomRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.trySend(errorPayload("invalid login_room message"))
		return
	}

	if !req.Room.OK || req.Room.Value <= 0 {
		s.trySend(mustEncode(protocol.LoginAck{
			Type:    protocol.TypeLoginAck,
			OK:      false,
			Message: "room must be a valid positive number",
		}))
		return
	}
	room := req.Room.Value

	if _, taken := h.rooms[room]; taken {
		log.Printf("Session %s denied login: room %d already connected", s.id, room)
		s.trySend(mustEncode(protocol.LoginAck{
			Type:    protocol.TypeLoginAck,
			OK:      false,
			Message: fmt.Sprintf("room %d is already connected", room),
		}))
		return
	}

	if s.role == RoleUnassigned {
		s.role = RoleDoctor
		log.Printf("Session %s implicitly registered as doctor on login", s.id)
	}

	// Moving to a new room releases the previous binding.
	if s.room != 0 && h.rooms[s.room] == s {
		delete(h.rooms, s.room)
	}

	s.room = room
	s.name = req.Name
	h.rooms[room] = s

	s.trySend(mustEncode(protocol.LoginAck{
		Type:    protocol.TypeLoginAck,
		OK:      true,
		Room:    room,
		Message: fmt.Sprintf("logged into room %d", room),
	}))

	h.broadcastToReceptionLocked(mustEncode(protocol.DoctorConnected{
		Type: protocol.TypeDoctorConnected,
		Room: room,
		Name: req.Name,
	}))
	h.broadcastToReceptionLocked(h.roomsSnapshotPayloadLocked())
	log.Printf("Doctor %q logged into room %d (session %s)", req.Name, room, s.id)
}

// handleCallPatient queues a call for the sender's room and notifies
// reception of both the new call and the resulting queue.
func (h *Hub) handleCallPatient(s *Session, line []byte) {
	var req protocol.CallPatientRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.trySend(errorPayload("invalid call_patient message"))
		return
	}

	if s.room == 0 {
		s.trySend(errorPayload("not logged into any room"))
		return
	}

	patient := strings.TrimSpace(req.Patient)
	if patient == "" {
		s.trySend(errorPayload("patient name must not be empty"))
		return
	}

	record := h.calls.Add(s.room, patient, req.Color)

	s.trySend(mustEncode(protocol.CallAck{Type: protocol.TypeCallAck, Patient: patient}))
	h.broadcastToReceptionLocked(mustEncode(protocol.NewCall{Type: protocol.TypeNewCall, Call: record}))
	h.broadcastToReceptionLocked(h.queueSnapshotPayloadLocked())
	log.Printf("Patient %q called to room %d (call %d)", patient, s.room, record.ID)
}

// handleConfirmCall attends the called record with the given id, moving it
// to history and nudging the owning doctor to summon the next patient.
func (h *Hub) handleConfirmCall(s *Session, line []byte) {
	var req protocol.ConfirmCallRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.trySend(errorPayload("invalid confirm_call message"))
		return
	}
	if !req.CallID.OK {
		s.trySend(errorPayload("invalid call id"))
		return
	}

	record, ok := h.calls.ConfirmByID(req.CallID.Value)
	if !ok {
		s.trySend(errorPayload("call not found or already attended"))
		return
	}

	h.finishConfirmLocked(s, record)
}

// handleConfirmRoom is the legacy confirm path: it attends the oldest called
// record in the given room, first-match by insertion order.
func (h *Hub) handleConfirmRoom(s *Session, line []byte) {
	var req protocol.ConfirmRoomRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.trySend(errorPayload("invalid confirm_room message"))
		return
	}
	if !req.Room.OK {
		s.trySend(errorPayload("invalid room number"))
		return
	}

	record, ok := h.calls.ConfirmByRoom(req.Room.Value)
	if !ok {
		s.trySend(errorPayload("call not found or already attended"))
		return
	}

	h.finishConfirmLocked(s, record)
}

func (h *Hub) finishConfirmLocked(s *Session, record protocol.CallRecord) {
	if doctor, connected := h.rooms[record.Room]; connected {
		doctor.trySend(mustEncode(protocol.AttendanceConfirmed{
			Type:    protocol.TypeAttendanceConfirmed,
			CallID:  record.ID,
			Patient: record.Patient,
			Room:    record.Room,
		}))
	}

	s.trySend(mustEncode(protocol.CallConfirmed{Type: protocol.TypeCallConfirmed, CallID: record.ID}))
	h.broadcastToReceptionLocked(h.queueSnapshotPayloadLocked())
	log.Printf("Attendance confirmed for call %d (room %d)", record.ID, record.Room)
}

// handleRemoveCall deletes a call outright without historizing it.
func (h *Hub) handleRemoveCall(s *Session, line []byte) {
	var req protocol.RemoveCallRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.trySend(errorPayload("invalid remove_call message"))
		return
	}
	if !req.CallID.OK {
		s.trySend(errorPayload("invalid call id"))
		return
	}

	if !h.calls.Remove(req.CallID.Value) {
		s.trySend(errorPayload("call not found"))
		return
	}

	s.trySend(mustEncode(protocol.CallRemoved{Type: protocol.TypeCallRemoved, CallID: req.CallID.Value}))
	h.broadcastToReceptionLocked(h.queueSnapshotPayloadLocked())
	log.Printf("Call %d removed from queue", req.CallID.Value)
}

// handleGetQueue replies to the requester only; it never broadcasts.
func (h *Hub) handleGetQueue(s *Session) {
	s.trySend(h.queueSnapshotPayloadLocked())
}

// handleGetRooms replies to the requester only; it never broadcasts.
func (h *Hub) handleGetRooms(s *Session) {
	s.trySend(h.roomsSnapshotPayloadLocked())
}
