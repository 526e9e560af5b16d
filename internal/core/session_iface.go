package core

import "github.com/upe-portal/interview-relay/internal/domain"

// MemberSession binds domain.Connection and its transport endpoint.
// This is what a room stores and fans out to.
type MemberSession interface {
	Meta() *domain.Connection
	Signal() SignalConnection
}
