package models

import "encoding/json"

// StreamRequest is what a live-stream client sends.
type StreamRequest struct {
	Action   string          `json:"action"` // "subscribe" | "unsubscribe"
	Endpoint string          `json:"endpoint"`
	Arg      json.RawMessage `json:"arg,omitempty"`
}

// StreamEvent is what the hub pushes to a live-stream client.
type StreamEvent struct {
	Type     string   `json:"type"` // "query" | "invalidated" | "error"
	Endpoint string   `json:"endpoint,omitempty"`
	Arg      string   `json:"arg,omitempty"`
	Status   string   `json:"status,omitempty"`
	Data     any      `json:"data,omitempty"`
	Error    string   `json:"error,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// InvalidationEvent travels between gateway instances over Redis.
type InvalidationEvent struct {
	Origin string   `json:"origin"`
	Tags   []string `json:"tags"`
}
