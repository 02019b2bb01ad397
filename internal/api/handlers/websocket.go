package handlers

import (
	"net/http"
	"strings"

	"sladash-backend/internal/bus"
	"sladash-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WebSocketHandler struct {
	hub *bus.Hub
}

func NewWebSocketHandler(hub *bus.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// HandleConnection upgrades the request and registers the client on the
// invalidation bus. Clients may scope delivery with a comma-separated
// ?keys= list; no list means every event is delivered.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.hub.Upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return
	}

	var keys []string
	if raw := c.Query("keys"); raw != "" {
		for _, key := range strings.Split(raw, ",") {
			if key = strings.TrimSpace(key); key != "" {
				keys = append(keys, key)
			}
		}
	}

	clientID := uuid.New().String()
	if err := h.hub.RegisterClient(clientID, conn, keys); err != nil {
		conn.Close()
		return
	}
}

// GetStats reports connected client counts for the bus
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "WebSocket stats retrieved successfully", h.hub.Stats())
}
