package hub

import (
	"collegemate/backend/internal/models"
	"collegemate/backend/internal/session"
)

// Client is any live-stream consumer (a websocket, a Telegram watch). The hub
// owns its send channel once registered and closes it through Close.
type Client interface {
	// GetID returns a unique id for the connection.
	GetID() string
	// GetSession returns the API session whose queries the client follows.
	GetSession() *session.Session
	// GetSendChannel returns the channel the hub pushes events to. Sends never
	// block: a client whose buffer is full is dropped.
	GetSendChannel() chan<- models.StreamEvent

	Run()
	Close()
}
