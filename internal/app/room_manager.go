package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

// RoomTableImpl is the in-process membership table. Join and Leave run under
// the write lock so an emptied room is never collected while a member is
// being added to it.
type RoomTableImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomTable() core.RoomTable {
	return &RoomTableImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

func (t *RoomTableImpl) Join(id domain.RoomID, ms core.MemberSession) core.RoomService {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[id]
	if !ok {
		room = core.NewRoomService(id)
		t.rooms[id] = room
		log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("room opened")
	}
	room.AddMember(ms)
	return room
}

func (t *RoomTableImpl) Leave(id domain.RoomID, conn domain.ConnectionID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.rooms[id]
	if !ok {
		return false
	}
	removed := room.RemoveMember(conn)
	if room.MemberCount() == 0 {
		delete(t.rooms, id)
		log.Debug().Str("module", "app.rooms").Str("room", string(id)).Msg("room emptied")
	}
	return removed
}

func (t *RoomTableImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	room, ok := t.rooms[id]
	return room, ok
}

func (t *RoomTableImpl) List() []core.RoomInfo {
	t.mu.RLock()
	out := make([]core.RoomInfo, 0, len(t.rooms))
	for id, r := range t.rooms {
		out = append(out, core.RoomInfo{ID: id, MemberCount: r.MemberCount()})
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
