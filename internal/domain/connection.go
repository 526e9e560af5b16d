// Package domain holds the relay identifiers and the websocket event wire
// format: envelopes, payloads and the outbound message texts.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConnectionID string

// Connection is the transport-level identity of one live client.
// Client is the session token of the browser that opened it and is only
// used as a log label.
type Connection struct {
	ID          ConnectionID `json:"id"`
	Client      string       `json:"client,omitempty"`
	ConnectedAt time.Time    `json:"connected_at"`
}

// NewConnection allocates a process-unique identity.
func NewConnection(client string) *Connection {
	return &Connection{
		ID:          ConnectionID(uuid.NewString()),
		Client:      client,
		ConnectedAt: time.Now(),
	}
}
