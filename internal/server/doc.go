// Package server implements the core of the patient-call system: the TCP
// listener, the WebSocket bridge, the session registry, the protocol
// dispatcher, and the reception broadcaster.
//
// The implementation is organized into specialized files for the hub,
// sessions, handlers, transports, and the HTTP surface to keep the codebase
// maintainable and testable as the project grows.
package server
