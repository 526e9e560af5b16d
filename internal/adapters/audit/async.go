package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/app"
)

// Async adapts a Publisher to app.Observer. Observe never blocks: records
// that do not fit in the buffer are dropped.
type Async struct {
	pub     Publisher
	ch      chan Record
	timeout time.Duration
	wg      sync.WaitGroup
	dropped atomic.Int64
}

func NewAsync(pub Publisher, buffer int, timeout time.Duration) *Async {
	return &Async{
		pub:     pub,
		ch:      make(chan Record, buffer),
		timeout: timeout,
	}
}

func (a *Async) Observe(act app.Activity) {
	select {
	case a.ch <- RecordOf(act):
	default:
		n := a.dropped.Add(1)
		log.Warn().Str("module", "audit").Str("type", string(act.Kind)).Int64("dropped_total", n).Msg("audit buffer full, record dropped")
	}
}

// Dropped reports how many records were lost to a full buffer.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Start runs the publishing worker until ctx is done. Records still buffered
// at that point are flushed within one timeout before the worker exits.
func (a *Async) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(ctx)
	}()
}

func (a *Async) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "audit").Msg("run ctx done")
			a.flush()
			return
		case rec := <-a.ch:
			if ctx.Err() != nil {
				a.flush(rec)
				return
			}
			pctx, cancel := context.WithTimeout(ctx, a.timeout)
			a.publish(pctx, rec)
			cancel()
		}
	}
}

// flush publishes pending and whatever is left in the buffer under a fresh
// deadline, since the worker context is already canceled.
func (a *Async) flush(pending ...Record) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	for _, rec := range pending {
		a.publish(ctx, rec)
	}
	for {
		select {
		case rec := <-a.ch:
			if ctx.Err() != nil {
				n := a.dropped.Add(1)
				log.Warn().Str("module", "audit").Str("type", string(rec.Type)).Int64("dropped_total", n).Msg("flush timed out, record dropped")
				continue
			}
			a.publish(ctx, rec)
		default:
			return
		}
	}
}

func (a *Async) publish(ctx context.Context, rec Record) {
	if err := a.pub.Publish(ctx, rec); err != nil {
		log.Error().Err(err).Str("module", "audit").Str("type", string(rec.Type)).Str("room", string(rec.RoomID)).Msg("publish")
	}
}

// Close waits for the worker to finish and closes the publisher. Cancel the
// context given to Start first.
func (a *Async) Close() error {
	a.wg.Wait()
	return a.pub.Close()
}
