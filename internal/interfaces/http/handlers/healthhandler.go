package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	backend string
	ping    Pinger
}

func NewHealthHandler(backend string, ping Pinger) *HealthHandler {
	return &HealthHandler{backend: backend, ping: ping}
}

func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "store": h.backend}
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
