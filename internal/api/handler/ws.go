package handler

import (
	"collegemate/backend/internal/hub"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(h.AllowedOrigins) == 0 || origin == "" || slices.Contains(h.AllowedOrigins, origin)
		},
	}
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket і реєструє клієнта в Hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := hub.NewWebSocketClient(conn, h.Hub, sessionOf(c))
	h.Hub.Register(client)
}
