package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

type sessionEntry struct {
	Room    domain.RoomID
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry tracks live connections and the room each one is joined to.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnectionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnectionID]*sessionEntry),
	}
}

func (r *Registry) Bind(sess core.MemberSession, cancel context.CancelFunc) {
	id := sess.Meta().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Str("client", sess.Meta().Client).Msg("bound connection")
}

func (r *Registry) GetSession(id domain.ConnectionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[id]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind forgets the connection and reports the room it was joined to.
func (r *Registry) Unbind(id domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	delete(r.sessions, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbind connection")
	return e.Room, true
}

func (r *Registry) RoomOf(id domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) UpdateRoom(id domain.ConnectionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	e.Room = room
	return true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel stops the pumps of one connection.
func (r *Registry) Cancel(id domain.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}

// IDs returns every bound connection id.
func (r *Registry) IDs() []domain.ConnectionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnectionID, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}
