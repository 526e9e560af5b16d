package core

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/upe-portal/interview-relay/internal/domain"
)

var errFull = errors.New("full")

type recorder struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
}

func (r *recorder) TrySend(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return errFull
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) Close() {}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func member(id string) (MemberSession, *recorder) {
	rec := &recorder{}
	meta := &domain.Connection{ID: domain.ConnectionID(id), Client: "client-" + id}
	return NewMemberSession(meta, rec), rec
}

func TestRoom_AddMember_IsIdempotent(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("abc123")
	a, _ := member("a")

	req.True(room.AddMember(a))
	req.False(room.AddMember(a))
	req.Equal(1, room.MemberCount())
	req.True(room.Has("a"))
}

func TestRoom_RemoveMember(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("abc123")
	a, _ := member("a")
	room.AddMember(a)

	req.True(room.RemoveMember("a"))
	req.False(room.RemoveMember("a"))
	req.Zero(room.MemberCount())
}

func TestRoom_Broadcast_ExcludesSender(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("abc123")
	a, recA := member("a")
	b, recB := member("b")
	c, recC := member("c")
	room.AddMember(a)
	room.AddMember(b)
	room.AddMember(c)

	res := room.Broadcast("a", Frame("hello"))

	req.Equal(2, res.SentTo)
	req.Empty(res.Dropped)
	req.Zero(recA.count())
	req.Equal(1, recB.count())
	req.Equal(1, recC.count())
}

func TestRoom_Broadcast_ReportsDropped(t *testing.T) {
	req := require.New(t)
	room := NewRoomService("abc123")
	a, _ := member("a")
	b, recB := member("b")
	recB.full = true
	room.AddMember(a)
	room.AddMember(b)

	res := room.Broadcast("a", Frame("hello"))

	req.Zero(res.SentTo)
	req.Equal([]domain.ConnectionID{"b"}, res.Dropped)
}

func TestRoom_Broadcast_FromNonMember(t *testing.T) {
	room := NewRoomService("abc123")
	a, recA := member("a")
	room.AddMember(a)

	res := room.Broadcast("outsider", Frame("hello"))

	require.Equal(t, 1, res.SentTo)
	require.Equal(t, 1, recA.count())
}

func TestRoom_MembersSnapshot_Sorted(t *testing.T) {
	room := NewRoomService("abc123")
	b, _ := member("b")
	a, _ := member("a")
	room.AddMember(b)
	room.AddMember(a)

	require.Equal(t, []MemberDTO{
		{ID: "a", Client: "client-a"},
		{ID: "b", Client: "client-b"},
	}, room.MembersSnapshot())
}
