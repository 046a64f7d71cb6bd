package client

import (
	"sync"
	"testing"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
	"github.com/stretchr/testify/require"
)

// fakeConn records outgoing frames and lets tests inject transport events.
type fakeConn struct {
	t      *testing.T
	mu     sync.Mutex
	frames [][]byte
	events chan Event
}

func newFakeConn(t *testing.T) *fakeConn {
	return &fakeConn{t: t, events: make(chan Event, 64)}
}

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Events() <-chan Event {
	return f.events
}

func (f *fakeConn) connect() {
	f.events <- Event{Kind: EventConnected}
}

func (f *fakeConn) disconnect() {
	f.events <- Event{Kind: EventDisconnected}
}

func (f *fakeConn) push(ev protocol.ServerEvent) {
	data, err := protocol.Encode(ev)
	require.NoError(f.t, err)
	f.events <- Event{Kind: EventMessage, Data: data}
}

func (f *fakeConn) sent() []protocol.ClientEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]protocol.ClientEvent, 0, len(f.frames))
	for _, frame := range f.frames {
		ev, err := protocol.DecodeClient(frame)
		require.NoError(f.t, err)
		out = append(out, ev)
	}
	return out
}

func (f *fakeConn) count(typ protocol.EventType) int {
	n := 0
	for _, ev := range f.sent() {
		if ev.Type() == typ {
			n++
		}
	}
	return n
}

func (f *fakeConn) draws() []drawing.Action {
	var out []drawing.Action
	for _, ev := range f.sent() {
		if d, ok := ev.(protocol.DrawAction); ok {
			out = append(out, d.Action)
		}
	}
	return out
}
