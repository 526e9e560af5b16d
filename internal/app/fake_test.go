package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/upe-portal/interview-relay/internal/core"
	"github.com/upe-portal/interview-relay/internal/domain"
)

var errFakeFull = errors.New("fake buffer full")

// fakeSignal records frames instead of writing them to a socket.
type fakeSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
	onSend func(core.Frame)
}

func (f *fakeSignal) TrySend(fr core.Frame) error {
	if f.onSend != nil {
		f.onSend(fr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	if f.full {
		return errFakeFull
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSignal) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSignal) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type received struct {
	Type domain.EventType
	Data json.RawMessage
}

// drain returns and forgets the frames received so far.
func (f *fakeSignal) drain(t *testing.T) []received {
	t.Helper()
	f.mu.Lock()
	frames := f.frames
	f.frames = nil
	f.mu.Unlock()

	out := make([]received, 0, len(frames))
	for _, fr := range frames {
		var env domain.Envelope
		require.NoError(t, json.Unmarshal(fr, &env))
		out = append(out, received{Type: env.Type, Data: env.Data})
	}
	return out
}

type client struct {
	id  domain.ConnectionID
	sig *fakeSignal
}

func connect(r *Relay, name string) client {
	sig := &fakeSignal{}
	meta := domain.NewConnection(name)
	r.Connect(meta, sig, nil)
	return client{id: meta.ID, sig: sig}
}

func stringData(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

type activityLog struct {
	mu  sync.Mutex
	all []Activity
}

func (l *activityLog) Observe(a Activity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, a)
}

func (l *activityLog) kinds() []ActivityKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActivityKind, 0, len(l.all))
	for _, a := range l.all {
		out = append(out, a.Kind)
	}
	return out
}
