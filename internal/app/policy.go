package app

import (
	"fmt"

	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose send buffer is full.
// The frame itself is always lost.
type Policy interface {
	OnBackPressure(room core.RoomService, id domain.ConnectionID) BackpressureAction
}

type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.RoomService, domain.ConnectionID) BackpressureAction {
	return DropFrame
}

type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.RoomService, domain.ConnectionID) BackpressureAction {
	return KickMember
}

// PolicyByName maps the relay.slow_consumer setting to a Policy.
func PolicyByName(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown slow consumer policy %q", name)
	}
}
