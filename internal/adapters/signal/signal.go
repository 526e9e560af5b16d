package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/upe-portal/interview-relay/internal/app"
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

var (
	ErrBackpressure     = errors.New("backpressure")
	ErrConnectionClosed = errors.New("connection closed")
)

// Options tunes the websocket transport.
type Options struct {
	ReadLimit      int64
	SendBuffer     int
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	RateLimit      int
	RateInterval   time.Duration
	AllowedOrigins []string
}

func DefaultOptions() Options {
	return Options{
		ReadLimit:      32768,
		SendBuffer:     32,
		PingPeriod:     54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

type SignalWSController struct {
	Relay *app.Relay

	opts     Options
	upgrader websocket.Upgrader
	limiter  *ConnRateLimiter
}

func NewSignalWSController(relay *app.Relay, opts Options) *SignalWSController {
	ctl := &SignalWSController{
		Relay: relay,
		opts:  opts,
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: originChecker(opts.AllowedOrigins)}
	if opts.RateLimit > 0 {
		ctl.limiter = NewConnRateLimiter(opts.RateLimit, opts.RateInterval)
	}
	return ctl
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || lo.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || lo.Contains(allowed, origin)
	}
}

// WsSignalConn is the websocket endpoint of one connection. Frames are
// queued on send and written by writePump only.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	client := c.GetString("client_token")

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("client", client).Msg("ws upgrade")
		return
	}

	conn := newWsSignalConn(ws, ctl.opts.SendBuffer)
	meta := domain.NewConnection(client)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Relay.Connect(meta, conn, cancel)
	log.Info().Str("module", "signal").Str("conn", string(meta.ID)).Str("client", client).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, meta.ID, conn)
}
