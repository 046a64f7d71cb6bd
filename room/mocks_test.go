package room

import (
	"sync"
	"testing"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Close(code string) {
	m.Called(code)
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

// --- Sender ---

type MockSender struct {
	mock.Mock
}

func (m *MockSender) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSender) SendReliable(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockSender) SendBestEffort(data []byte) bool {
	args := m.Called(data)
	return args.Bool(0)
}

func (m *MockSender) Close(code string) {
	m.Called(code)
}

// --- recording sender ---

type delivery struct {
	event    protocol.ServerEvent
	reliable bool
}

// recorder is a Sender that keeps every frame it is handed, decoded.
type recorder struct {
	t  *testing.T
	id string

	mu        sync.Mutex
	delivered []delivery
	closed    []string
}

func newRecorder(t *testing.T, id string) *recorder {
	return &recorder{t: t, id: id}
}

func (r *recorder) ID() string { return r.id }

func (r *recorder) SendReliable(data []byte) error {
	r.record(data, true)
	return nil
}

func (r *recorder) SendBestEffort(data []byte) bool {
	r.record(data, false)
	return true
}

func (r *recorder) Close(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, code)
}

func (r *recorder) record(data []byte, reliable bool) {
	ev, err := protocol.DecodeServer(data)
	require.NoError(r.t, err, "server sent an undecodable frame: %s", data)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, delivery{event: ev, reliable: reliable})
}

func (r *recorder) events() []protocol.ServerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.ServerEvent, len(r.delivered))
	for i, d := range r.delivered {
		out[i] = d.event
	}
	return out
}

func (r *recorder) types() []protocol.EventType {
	evs := r.events()
	out := make([]protocol.EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type()
	}
	return out
}

func (r *recorder) ofType(t protocol.EventType) []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []delivery
	for _, d := range r.delivered {
		if d.event.Type() == t {
			out = append(out, d)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = nil
}
