package signal

import (
	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

func (ctl *SignalWSController) handleWhoAmI(id domain.ConnectionID, conn core.SignalConnection) {
	who, ok := ctl.Relay.WhoAmI(id)
	if !ok {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("whoami: no session")
		return
	}
	ctl.sendJSON(conn, domain.EventWhoAmI, who)
}
