package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/espectrx/chamada-hospitalar/internal/config"
	"github.com/espectrx/chamada-hospitalar/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting Chamada Hospitalar server...")

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment overrides from .env")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	hub := server.NewHub(cfg)

	ln, err := net.Listen("tcp", cfg.Server.TCPAddress)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Server.TCPAddress, err)
	}
	go func() {
		if err := hub.ServeTCP(ln); err != nil {
			log.Fatalf("TCP listener error: %v", err)
		}
	}()

	httpServer := server.CreateServer(cfg.Server.HTTPAddress, hub.Router())
	go func() {
		log.Printf("HTTP server listening on %s", cfg.Server.HTTPAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	if err := ln.Close(); err != nil {
		log.Printf("Error closing TCP listener: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := hub.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
