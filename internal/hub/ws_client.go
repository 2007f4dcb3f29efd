package hub

import (
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/session"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// WebSocketClient реалізує інтерфейс hub.Client
type WebSocketClient struct {
	ID      string
	Conn    *websocket.Conn
	Hub     *Manager
	Session *session.Session
	Send    chan models.StreamEvent
	logger  *zap.Logger
}

func NewWebSocketClient(conn *websocket.Conn, h *Manager, s *session.Session) *WebSocketClient {
	id := uuid.NewString()
	return &WebSocketClient{
		ID:      id,
		Conn:    conn,
		Hub:     h,
		Session: s,
		Send:    make(chan models.StreamEvent, sendBuffer),
		logger:  h.logger.With(zap.String("client_id", id), zap.String("session_id", s.ID)),
	}
}

func (c *WebSocketClient) GetID() string                             { return c.ID }
func (c *WebSocketClient) GetSession() *session.Session              { return c.Session }
func (c *WebSocketClient) GetSendChannel() chan<- models.StreamEvent { return c.Send }

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	close(c.Send)
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Info("websocket read failed", zap.Error(err))
			}
			return
		}

		var req models.StreamRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.logger.Debug("bad stream request", zap.Error(err))
			continue
		}
		c.Hub.Submit(Request{Client: c, StreamRequest: req})
	}
}

// writePump читає події з каналу Send і записує їх у WebSocket, по одній на кадр.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
