package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/domain"
)

// Room ids are opaque; any JSON string is accepted, the empty one included.
// Their size is bounded by the connection read limit.
func (ctl *SignalWSController) roomID(id domain.ConnectionID, raw json.RawMessage) (domain.RoomID, bool) {
	room, err := domain.DecodeRoomID(raw)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad room payload")
		return "", false
	}
	return room, true
}

func (ctl *SignalWSController) handleJoin(id domain.ConnectionID, raw json.RawMessage) {
	room, ok := ctl.roomID(id, raw)
	if !ok {
		return
	}
	ctl.Relay.Join(id, room)
}

func (ctl *SignalWSController) handleProblemChange(id domain.ConnectionID, raw json.RawMessage) {
	var p domain.ProblemChange
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad problemChange payload")
		return
	}
	ctl.Relay.ProblemChange(id, p.Room(), p.ProblemKey)
}

func (ctl *SignalWSController) handleInterviewClosed(id domain.ConnectionID, raw json.RawMessage) {
	room, ok := ctl.roomID(id, raw)
	if !ok {
		return
	}
	ctl.Relay.InterviewClosed(id, room)
}
