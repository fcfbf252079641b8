// Package testhelpers provides common utilities for exercising the call
// protocol over real TCP connections in integration tests.
//
// The helpers speak the wire contract directly: one JSON object per line,
// LF-terminated, and decode replies into generic maps so tests can assert on
// individual fields without depending on internal types.
package testhelpers

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"
)

// ReadTimeout bounds every read a test client performs.
const ReadTimeout = 2 * time.Second

// ProtoClient is a minimal protocol peer for tests.
type ProtoClient struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

// Dial connects a test client to the given TCP address and registers a
// cleanup that closes the connection when the test finishes.
func Dial(t *testing.T, addr string) *ProtoClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &ProtoClient{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

// Send marshals the message and writes it as one LF-terminated line.
func (c *ProtoClient) Send(v any) {
	c.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("Failed to marshal %v: %v", v, err)
	}
	if _, err := c.conn.Write(append(data, '\n')); err != nil {
		c.t.Fatalf("Failed to send message: %v", err)
	}
}

// SendRaw writes bytes verbatim, for malformed-input tests.
func (c *ProtoClient) SendRaw(raw string) {
	c.t.Helper()
	if _, err := c.conn.Write([]byte(raw)); err != nil {
		c.t.Fatalf("Failed to send raw bytes: %v", err)
	}
}

// Read returns the next decoded message, failing the test on timeout.
func (c *ProtoClient) Read() map[string]any {
	c.t.Helper()
	if err := c.conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		c.t.Fatalf("Failed to set read deadline: %v", err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		c.t.Fatalf("Failed to read message: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		c.t.Fatalf("Failed to decode %q: %v", line, err)
	}
	return msg
}

// ReadType reads the next message and asserts its type discriminator.
func (c *ProtoClient) ReadType(want string) map[string]any {
	c.t.Helper()
	msg := c.Read()
	if msg["type"] != want {
		c.t.Fatalf("Expected message type %q, got %v", want, msg)
	}
	return msg
}

// ExpectClosed asserts the server side has closed the connection.
func (c *ProtoClient) ExpectClosed() {
	c.t.Helper()
	if err := c.conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		c.t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, err := c.reader.ReadString('\n'); err == nil {
		c.t.Fatal("Expected connection to be closed, but a read succeeded")
	}
}

// Close shuts the client connection down immediately.
func (c *ProtoClient) Close() {
	_ = c.conn.Close()
}
