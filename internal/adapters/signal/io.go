package signal

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnectionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		cancel()
		ctl.Relay.Disconnect(id)
		if ctl.limiter != nil {
			ctl.limiter.Forget(id)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
				}
				return
			}
			ctl.handleSignal(id, c, data)
		}
	}
}

func (ctl *SignalWSController) handleSignal(id domain.ConnectionID, c core.SignalConnection, data []byte) {
	env, err := domain.DecodeEnvelope(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("bad frame")
		return
	}
	if ctl.limiter != nil && !ctl.limiter.Allow(id) {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Str("type", string(env.Type)).Msg("rate limited")
		return
	}

	switch env.Type {
	case domain.EventJoinInterview:
		ctl.handleJoin(id, env.Data)
	case domain.EventProblemChange:
		ctl.handleProblemChange(id, env.Data)
	case domain.EventInterviewClosed:
		ctl.handleInterviewClosed(id, env.Data)
	case domain.EventPing:
		ctl.handlePing(c)
	case domain.EventWhoAmI:
		ctl.handleWhoAmI(id, c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(env.Type)).Msg("unknown signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, t domain.EventType, data any) {
	b, err := domain.Encode(t, data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil && !errors.Is(err, ErrConnectionClosed) {
		log.Warn().Err(err).Str("module", "signal").Str("type", string(t)).Msg("sendJSON dropped")
	}
}
