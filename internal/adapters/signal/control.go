package signal

import (
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

func (ctl *SignalWSController) handlePing(conn core.SignalConnection) {
	ctl.sendJSON(conn, domain.EventPong, nil)
}
