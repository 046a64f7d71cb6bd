package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
	DefaultOutbox     = 256
	readLimit         = 4 << 20
)

var ErrOutboxFull = errors.New("outbox-full")

type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventMessage:
		return "message"
	}
	return "unknown"
}

// Event is emitted by a transport in the order things happened on the wire.
type Event struct {
	Kind EventKind
	Data []byte
	Err  error
}

// Conn is what a Session needs from the network.
type Conn interface {
	Send(data []byte) error
	Events() <-chan Event
}

// Transport keeps a websocket connection to the relay alive, redialing with
// exponential backoff whenever it drops.
type Transport struct {
	url        string
	header     http.Header
	minBackoff time.Duration
	maxBackoff time.Duration
	outbox     chan []byte
	events     chan Event
}

type TransportOption func(*Transport)

// WithOrigin sets the Origin header; the server rejects upgrades from origins
// outside its allow-list.
func WithOrigin(origin string) TransportOption {
	return func(t *Transport) {
		if origin != "" {
			t.header.Set("Origin", origin)
		}
	}
}

func WithBackoff(initial, limit time.Duration) TransportOption {
	return func(t *Transport) {
		t.minBackoff = initial
		t.maxBackoff = limit
	}
}

func WithOutbox(size int) TransportOption {
	return func(t *Transport) {
		t.outbox = make(chan []byte, size)
	}
}

func NewTransport(url string, opts ...TransportOption) *Transport {
	t := &Transport{
		url:        url,
		header:     http.Header{},
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		outbox:     make(chan []byte, DefaultOutbox),
		events:     make(chan Event, DefaultOutbox),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) Events() <-chan Event {
	return t.events
}

// Send queues a text frame without blocking. Frames queued while
// disconnected are discarded on the next successful dial.
func (t *Transport) Send(data []byte) error {
	select {
	case t.outbox <- data:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Run dials and redials until ctx is cancelled. The events channel is closed
// when Run returns.
func (t *Transport) Run(ctx context.Context) error {
	defer close(t.events)

	backoff := t.minBackoff
	for {
		connected, err := t.connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = t.minBackoff
		}

		log.Warn().Err(err).Str("url", t.url).Dur("retry_in", backoff).Msg("relay connection lost")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff = min(backoff*2, t.maxBackoff)
	}
}

func (t *Transport) connect(ctx context.Context) (bool, error) {
	conn, _, err := websocket.Dial(ctx, t.url, &websocket.DialOptions{HTTPHeader: t.header})
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", t.url, err)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(readLimit)

	t.drain()
	if !t.emit(ctx, Event{Kind: EventConnected}) {
		return true, ctx.Err()
	}
	log.Info().Str("url", t.url).Msg("connected to relay")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			var frame json.RawMessage
			if err := wsjson.Read(gctx, conn, &frame); err != nil {
				return fmt.Errorf("read: %w", err)
			}
			if !t.emit(gctx, Event{Kind: EventMessage, Data: frame}) {
				return gctx.Err()
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case data := <-t.outbox:
				if err := conn.Write(gctx, websocket.MessageText, data); err != nil {
					return fmt.Errorf("write: %w", err)
				}
			}
		}
	})

	err = g.Wait()
	t.emit(ctx, Event{Kind: EventDisconnected, Err: err})
	return true, err
}

func (t *Transport) emit(ctx context.Context, ev Event) bool {
	select {
	case t.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *Transport) drain() {
	for {
		select {
		case <-t.outbox:
		default:
			return
		}
	}
}
