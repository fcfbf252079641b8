package integration

import (
	"net"
	"testing"
	"time"

	"github.com/espectrx/chamada-hospitalar/internal/config"
	"github.com/espectrx/chamada-hospitalar/internal/server"
	"github.com/espectrx/chamada-hospitalar/test/testhelpers"
)

// TestGracefulShutdownClosesActiveConnections verifies that shutdown
// terminates live sessions and completes within its timeout.
func TestGracefulShutdownClosesActiveConnections(t *testing.T) {
	hub := server.NewHub(config.Default())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	go func() {
		_ = hub.ServeTCP(ln)
	}()

	client := testhelpers.Dial(t, ln.Addr().String())
	client.Send(map[string]any{"type": "register", "client_type": "reception"})
	client.ReadType("queue_snapshot")
	client.ReadType("rooms_snapshot")
	client.ReadType("register_ack")

	if err := ln.Close(); err != nil {
		t.Fatalf("Failed to close listener: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- hub.Shutdown(3 * time.Second) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not complete in time")
	}

	client.ExpectClosed()
}

// TestShutdownWithNoSessions verifies an idle hub shuts down immediately.
func TestShutdownWithNoSessions(t *testing.T) {
	hub := server.NewHub(config.Default())

	start := time.Now()
	if err := hub.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Idle shutdown took %s, expected near-immediate return", elapsed)
	}
}
