package core

import (
	"github.com/upe-portal/interview-relay/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the relay.
type PublishResult struct {
	SentTo  int
	Dropped []domain.ConnectionID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID     domain.ConnectionID `json:"id"`
	Client string              `json:"client,omitempty"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	MemberCount() int
	Has(id domain.ConnectionID) bool
	MembersSnapshot() []MemberDTO

	AddMember(ms MemberSession) bool
	RemoveMember(id domain.ConnectionID) bool
	Broadcast(from domain.ConnectionID, data Frame) PublishResult
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

// RoomTable maps room ids to their member sets. Rooms appear on the first
// Join and disappear when the last member leaves.
type RoomTable interface {
	Join(room domain.RoomID, ms MemberSession) RoomService
	Leave(room domain.RoomID, id domain.ConnectionID) bool
	Get(room domain.RoomID) (RoomService, bool)
	List() []RoomInfo
}
