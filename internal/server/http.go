// Package server exposes the HTTP surface: health check, read-only snapshot
// endpoints for operational tooling, and the WebSocket bridge upgrade.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Router builds the gin engine serving the HTTP front end. All snapshot
// endpoints are read-only and take point-in-time copies under the hub lock;
// none of them mutates queue or registry state.
func (h *Hub) Router() *gin.Engine {
	if h.cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"sessions":     h.SessionCount(),
			"active_calls": len(h.QueueSnapshot()),
		})
	})

	r.GET("/ws", func(c *gin.Context) {
		h.HandleWebSocket(c.Writer, c.Request)
	})

	api := r.Group("/api")
	{
		api.GET("/queue", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"queue": h.QueueSnapshot()})
		})
		api.GET("/rooms", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"rooms": h.RoomsSnapshot()})
		})
		api.GET("/history", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"history": h.HistorySnapshot()})
		})
	}

	return r
}

// requestLogger tags each request with a short id and logs method, path,
// status, and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()[:8]
		c.Set("request_id", id)
		start := time.Now()

		c.Next()

		log.Printf("[%s] %s %s -> %d (%s)",
			id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// CreateServer creates and configures the HTTP server hosting the bridge and
// snapshot API, with timeout values suitable for production use.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
