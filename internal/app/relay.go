package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

type ActivityKind string

const (
	ActivityJoined          ActivityKind = "joined"
	ActivityProblemChanged  ActivityKind = "problem_changed"
	ActivityInterviewClosed ActivityKind = "interview_closed"
	ActivityDisconnected    ActivityKind = "disconnected"
)

// Activity is a copy of one relay event handed to the Observer.
type Activity struct {
	Kind       ActivityKind
	Room       domain.RoomID
	Connection domain.ConnectionID
	ProblemKey string
	At         time.Time
}

// Observer must not block; the relay calls it inline.
type Observer interface {
	Observe(Activity)
}

// Relay owns the connection registry and the room membership table and
// forwards interview events between room peers. Delivery is best effort:
// nothing is queued for absent peers and nothing is retried.
type Relay struct {
	Registry *Registry
	Rooms    core.RoomTable
	Policy   Policy
	Observer Observer

	// serializes membership changes; broadcasts do not take it
	mu sync.Mutex
}

func NewRelay(policy Policy, observer Observer) *Relay {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Relay{
		Registry: NewRegistry(),
		Rooms:    NewRoomTable(),
		Policy:   policy,
		Observer: observer,
	}
}

// Connect registers a new connection. cancel stops its pumps and may be nil.
func (r *Relay) Connect(meta *domain.Connection, sig core.SignalConnection, cancel context.CancelFunc) core.MemberSession {
	sess := core.NewMemberSession(meta, sig)
	r.Registry.Bind(sess, cancel)
	return sess
}

// Join puts the connection into room, leaving any other room first.
// Re-joining the same room re-sends the confirmation and the peer
// notification.
func (r *Relay) Join(id domain.ConnectionID, room domain.RoomID) {
	r.mu.Lock()
	sess, ok := r.Registry.GetSession(id)
	if !ok {
		r.mu.Unlock()
		log.Warn().Str("module", "app.relay").Str("conn", string(id)).Msg("join from unknown connection")
		return
	}
	if prev, ok := r.Registry.RoomOf(id); ok && prev != room {
		r.Rooms.Leave(prev, id)
		log.Info().Str("module", "app.relay").Str("conn", string(id)).Str("from_room", string(prev)).Msg("left previous room")
	}
	// queued before the member becomes visible to broadcasts, so no room
	// event can overtake it
	r.sendTo(sess, domain.EventJoinConfirmation, domain.JoinConfirmation(room))
	r.Rooms.Join(room, sess)
	r.Registry.UpdateRoom(id, room)
	r.mu.Unlock()

	log.Info().Str("module", "app.relay").Str("conn", string(id)).Str("room", string(room)).Msg("joined room")
	r.broadcast(room, id, domain.EventJoinNotification, domain.JoinNotification(id, room))
	r.observe(Activity{Kind: ActivityJoined, Room: room, Connection: id})
}

// ProblemChange forwards problemKey to the other members of room. The
// sender does not have to be a member.
func (r *Relay) ProblemChange(from domain.ConnectionID, room domain.RoomID, problemKey string) {
	r.broadcast(room, from, domain.EventProblemChange, problemKey)
	r.observe(Activity{Kind: ActivityProblemChanged, Room: room, Connection: from, ProblemKey: problemKey})
}

// InterviewClosed tells the other members of room that the interview is
// over. The relay keeps no closed flag.
func (r *Relay) InterviewClosed(from domain.ConnectionID, room domain.RoomID) {
	r.broadcast(room, from, domain.EventInterviewClosed, true)
	r.observe(Activity{Kind: ActivityInterviewClosed, Room: room, Connection: from})
}

// Disconnect releases the connection and its membership. Peers are not
// notified. Safe to call more than once.
func (r *Relay) Disconnect(id domain.ConnectionID) {
	r.mu.Lock()
	room, joined := r.Registry.RoomOf(id)
	if joined {
		r.Rooms.Leave(room, id)
	}
	_, ok := r.Registry.Unbind(id)
	r.mu.Unlock()
	if !ok {
		return
	}
	log.Info().Str("module", "app.relay").Str("conn", string(id)).Str("room", string(room)).Msg("disconnected")
	r.observe(Activity{Kind: ActivityDisconnected, Room: room, Connection: id})
}

// WhoAmI describes the connection as seen by the relay.
func (r *Relay) WhoAmI(id domain.ConnectionID) (domain.WhoAmI, bool) {
	if _, ok := r.Registry.GetSession(id); !ok {
		return domain.WhoAmI{}, false
	}
	room, _ := r.Registry.RoomOf(id)
	return domain.WhoAmI{ConnectionID: id, RoomID: room}, true
}

// Shutdown cancels every live connection and waits until their pumps have
// disconnected them, or until ctx is done.
func (r *Relay) Shutdown(ctx context.Context) error {
	for _, id := range r.Registry.IDs() {
		r.Registry.Cancel(id)
	}
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for r.Registry.Count() > 0 {
		select {
		case <-ctx.Done():
			log.Warn().Str("module", "app.relay").Int("remaining", r.Registry.Count()).Msg("shutdown timed out")
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (r *Relay) sendTo(sess core.MemberSession, t domain.EventType, data any) {
	frame, err := domain.Encode(t, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("type", string(t)).Msg("encode")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("conn", string(sess.Meta().ID)).Str("type", string(t)).Msg("direct send dropped")
	}
}

func (r *Relay) broadcast(room domain.RoomID, from domain.ConnectionID, t domain.EventType, data any) {
	rs, ok := r.Rooms.Get(room)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("room", string(room)).Str("type", string(t)).Msg("no members, dropped")
		return
	}
	frame, err := domain.Encode(t, data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.relay").Str("type", string(t)).Msg("encode")
		return
	}
	res := rs.Broadcast(from, frame)
	for _, slow := range res.Dropped {
		switch r.Policy.OnBackPressure(rs, slow) {
		case KickMember:
			log.Warn().Str("module", "app.relay").Str("room", string(room)).Str("conn", string(slow)).Msg("kicking slow member")
			r.kick(slow)
		case DropFrame, NoAction:
			log.Debug().Str("module", "app.relay").Str("room", string(room)).Str("conn", string(slow)).Str("type", string(t)).Msg("frame dropped")
		}
	}
}

func (r *Relay) kick(id domain.ConnectionID) {
	sess, ok := r.Registry.GetSession(id)
	r.Registry.Cancel(id)
	r.Disconnect(id)
	if ok {
		sess.Signal().Close()
	}
}

func (r *Relay) observe(a Activity) {
	if r.Observer == nil {
		return
	}
	if a.At.IsZero() {
		a.At = time.Now()
	}
	r.Observer.Observe(a)
}
