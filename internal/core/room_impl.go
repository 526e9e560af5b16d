package core

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/upe-portal/interview-relay/internal/domain"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id      domain.RoomID
	mu      sync.RWMutex
	members map[domain.ConnectionID]MemberSession
}

func NewRoomService(id domain.RoomID) RoomService {
	return &roomImpl{
		id:      id,
		members: make(map[domain.ConnectionID]MemberSession),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) Has(id domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[id]
	return ok
}

// AddMember reports false when the connection was already a member.
func (r *roomImpl) AddMember(ms MemberSession) bool {
	id := ms.Meta().ID
	r.mu.Lock()
	defer r.mu.Unlock()
	_, existed := r.members[id]
	r.members[id] = ms
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Bool("rejoin", existed).Msg("member added")
	return !existed
}

func (r *roomImpl) RemoveMember(id domain.ConnectionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return false
	}
	delete(r.members, id)
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("conn", string(id)).Msg("member removed")
	return true
}

// Broadcast hands data to every member except from. A failed TrySend is
// reported in Dropped and never retried.
func (r *roomImpl) Broadcast(from domain.ConnectionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.members {
		if id == from {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	out := lo.MapToSlice(r.members, func(id domain.ConnectionID, ms MemberSession) MemberDTO {
		return MemberDTO{ID: id, Client: ms.Meta().Client}
	})
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
