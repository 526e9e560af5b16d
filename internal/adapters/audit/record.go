// Package audit exports relay activity to an external stream. Export is
// best effort and the relay never reads it back.
package audit

import (
	"context"
	"time"

	"github.com/upe-portal/interview-relay/internal/app"
	"github.com/upe-portal/interview-relay/internal/domain"
)

type Record struct {
	Type         app.ActivityKind    `json:"type"`
	RoomID       domain.RoomID       `json:"room_id,omitempty"`
	ConnectionID domain.ConnectionID `json:"connection_id"`
	ProblemKey   string              `json:"problem_key,omitempty"`
	At           time.Time           `json:"at"`
}

func RecordOf(a app.Activity) Record {
	return Record{
		Type:         a.Kind,
		RoomID:       a.Room,
		ConnectionID: a.Connection,
		ProblemKey:   a.ProblemKey,
		At:           a.At.UTC(),
	}
}

// Publisher writes one record to the backing stream.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
	Close() error
}
