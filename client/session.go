package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/render"
	"github.com/rs/zerolog/log"
)

const DefaultFrameInterval = 16 * time.Millisecond

var (
	ErrRejected      = errors.New("room-full")
	ErrSessionClosed = errors.New("session-closed")
	ErrNotJoined     = errors.New("not-joined")
)

type State int

const (
	StateDisconnected State = iota
	StateJoining
	StateJoined
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// View is a copy of the session state handed to renderers and callers.
type View struct {
	State     State
	SelfID    string
	Color     string
	Actions   []drawing.Action
	Users     []protocol.User
	Cursors   []protocol.CursorBroadcast
	Info      protocol.RoomInfo
	Rejection string
	CanUndo   bool
	CanRedo   bool
}

type SessionConfig struct {
	RoomID         string
	Username       string
	Width          int
	Height         int
	FrameInterval  time.Duration
	CursorInterval time.Duration

	// OnRender runs on the event loop after a coalesced redraw. The canvas
	// is only valid for the duration of the call.
	OnRender func(View, *render.Canvas)
	OnChat   func(protocol.ChatMessage)
}

// Session is one client's membership in a room. All state is owned by the
// goroutine running Run; the exported methods hand work to it.
type Session struct {
	config    SessionConfig
	conn      Conn
	timeline  *Timeline
	scheduler *Scheduler
	cursor    *CursorThrottle
	commands  chan func()
	done      chan struct{}
	joined    atomic.Bool

	state      State
	color      string
	rejection  string
	everJoined bool
	users      []protocol.User
	cursors    map[string]protocol.CursorBroadcast
	info       protocol.RoomInfo

	canvas     *render.Canvas
	scratch    *render.Scratch
	rendered   uint64
	inProgress *drawing.Action
}

func NewSession(conn Conn, config SessionConfig) *Session {
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}
	if config.CursorInterval <= 0 {
		config.CursorInterval = DefaultCursorInterval
	}

	s := &Session{
		config:   config,
		conn:     conn,
		timeline: NewTimeline(),
		commands: make(chan func(), 64),
		done:     make(chan struct{}),
		cursors:  make(map[string]protocol.CursorBroadcast),
	}
	s.scheduler = NewScheduler(s.redraw)
	s.cursor = NewCursorThrottle(config.CursorInterval, s.sendCursor)
	return s
}

// Run drives the session until ctx is cancelled, the transport closes its
// event stream, or the room rejects us.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.cursor.Stop()
	defer s.closeCanvas()

	ticker := time.NewTicker(s.config.FrameInterval)
	defer ticker.Stop()

	events := s.conn.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.handleTransport(ev); err != nil {
				s.scheduler.Tick()
				return err
			}
		case cmd := <-s.commands:
			cmd()
		case <-ticker.C:
			s.scheduler.Tick()
		}
	}
}

// Draw commits a finished action. Malformed actions are rejected here and
// never reach the network.
func (s *Session) Draw(a drawing.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	a = a.Clone()
	return s.do(func() {
		if err := s.timeline.RecordLocal(a); err != nil {
			log.Warn().Err(err).Msg("dropping local action")
			return
		}
		s.inProgress = nil
		s.sendDraw(a)
		s.scheduler.MarkDirty()
	})
}

// Preview shows an unfinished stroke on top of the committed canvas without
// recording it.
func (s *Session) Preview(stroke drawing.Action) error {
	stroke = stroke.Clone()
	return s.do(func() {
		s.inProgress = &stroke
		s.scheduler.MarkDirty()
	})
}

// Undo retracts this client's most recent action locally.
func (s *Session) Undo() error {
	return s.do(func() {
		if _, ok := s.timeline.Undo(); ok {
			s.scheduler.MarkDirty()
		}
	})
}

// Redo restores the most recently undone action and sends it again.
func (s *Session) Redo() error {
	return s.do(func() {
		a, ok := s.timeline.Redo()
		if !ok {
			return
		}
		s.sendDraw(a)
		s.scheduler.MarkDirty()
	})
}

// Clear wipes the canvas for everyone in the room. Outside the joined
// state it returns ErrNotJoined and leaves the local canvas alone.
func (s *Session) Clear() error {
	return s.call(func() error {
		if s.state != StateJoined {
			return ErrNotJoined
		}
		s.timeline.OnCanvasClear()
		s.inProgress = nil
		s.send(protocol.ClearCanvas{RoomID: s.config.RoomID})
		s.scheduler.MarkDirty()
		return nil
	})
}

// SendChat posts message to the room chat. It returns ErrNotJoined unless
// the session is joined.
func (s *Session) SendChat(message string) error {
	message = strings.TrimSpace(message)
	if message == "" || utf8.RuneCountInString(message) > protocol.MaxMessageRunes {
		return fmt.Errorf("%w: message must be 1..%d characters", protocol.ErrInvalidPayload, protocol.MaxMessageRunes)
	}
	return s.call(func() error {
		if s.state != StateJoined {
			return ErrNotJoined
		}
		s.send(protocol.SendMessage{RoomID: s.config.RoomID, Message: message})
		return nil
	})
}

// Sync asks the relay for the authoritative log and merges it in.
func (s *Session) Sync() error {
	return s.do(func() {
		if s.state == StateJoined {
			s.send(protocol.RequestCanvasState{RoomID: s.config.RoomID})
		}
	})
}

// Leave announces departure. The session stays connected but stops sending
// until the next reconnect.
func (s *Session) Leave() error {
	return s.do(func() {
		if s.state != StateJoined {
			return
		}
		s.send(protocol.LeaveRoom{RoomID: s.config.RoomID})
		s.setState(StateDisconnected)
		s.users = nil
		clear(s.cursors)
		s.scheduler.MarkDirty()
	})
}

// MoveCursor never blocks; positions are throttled.
func (s *Session) MoveCursor(x, y float64) {
	s.cursor.Move(x, y)
}

func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := s.do(func() { reply <- s.view() }); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return View{}, ErrSessionClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (s *Session) do(fn func()) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.commands <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// call runs fn on the event loop and waits for its result.
func (s *Session) call(fn func() error) error {
	reply := make(chan error, 1)
	if err := s.do(func() { reply <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) handleTransport(ev Event) error {
	switch ev.Kind {
	case EventConnected:
		if s.state == StateRejected {
			return nil
		}
		s.setState(StateJoining)
		s.send(protocol.JoinRoom{RoomID: s.config.RoomID, Username: s.config.Username})
	case EventDisconnected:
		if s.state == StateRejected {
			return nil
		}
		log.Info().Err(ev.Err).Str("room", s.config.RoomID).Msg("disconnected from room")
		s.setState(StateDisconnected)
		clear(s.cursors)
		s.scheduler.MarkDirty()
	case EventMessage:
		msg, err := protocol.DecodeServer(ev.Data)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring undecodable server frame")
			return nil
		}
		return s.handleServer(msg)
	}
	return nil
}

func (s *Session) handleServer(ev protocol.ServerEvent) error {
	switch e := ev.(type) {
	case protocol.Joined:
		s.onJoined(e)
	case protocol.RoomFull:
		s.setState(StateRejected)
		s.rejection = e.Message
		s.scheduler.MarkDirty()
		return fmt.Errorf("%w: %s", ErrRejected, e.Message)
	case protocol.UserJoined:
		log.Debug().Str("user", e.UserID).Str("name", e.Username).Msg("user joined")
	case protocol.UserLeft:
		delete(s.cursors, e.UserID)
		s.scheduler.MarkDirty()
	case protocol.UsersList:
		s.users = append([]protocol.User(nil), e...)
		s.scheduler.MarkDirty()
	case protocol.DrawBroadcast:
		if s.timeline.ReceiveRemote(e.UserID, e.Action) {
			s.scheduler.MarkDirty()
		}
	case protocol.CursorBroadcast:
		if e.UserID == s.timeline.Self() {
			return nil
		}
		s.cursors[e.UserID] = e
		s.scheduler.MarkDirty()
	case protocol.ChatMessage:
		if s.config.OnChat != nil {
			s.config.OnChat(e)
		}
	case protocol.CanvasClear:
		s.timeline.OnCanvasClear()
		s.inProgress = nil
		s.scheduler.MarkDirty()
	case protocol.CanvasState:
		s.timeline.MergeSnapshot(e.Actions)
		s.scheduler.MarkDirty()
	case protocol.RoomInfo:
		s.info = e
		s.scheduler.MarkDirty()
	case protocol.Error:
		log.Warn().Str("code", e.Code).Str("message", e.Message).Msg("relay rejected an event")
	}
	return nil
}

// onJoined merges the join snapshot and replays local actions the relay has
// not seen, such as strokes drawn while offline or a log lost when the room
// emptied during a reconnect.
func (s *Session) onJoined(e protocol.Joined) {
	s.timeline.SetSelf(e.UserID)
	s.color = e.Color
	s.timeline.MergeSnapshot(e.Actions)
	s.setState(StateJoined)

	for _, a := range s.timeline.Unacknowledged(e.Actions) {
		s.sendDraw(a)
	}
	if s.everJoined {
		s.send(protocol.RequestCanvasState{RoomID: s.config.RoomID})
	}
	s.everJoined = true

	log.Info().Str("room", s.config.RoomID).Str("user", e.UserID).Int("actions", len(e.Actions)).Msg("joined room")
	s.scheduler.MarkDirty()
}

func (s *Session) setState(state State) {
	s.state = state
	s.joined.Store(state == StateJoined)
}

func (s *Session) sendDraw(a drawing.Action) {
	if s.state != StateJoined {
		return
	}
	s.send(protocol.DrawAction{RoomID: s.config.RoomID, Action: a})
}

// sendCursor runs on the throttle's timer goroutine.
func (s *Session) sendCursor(x, y float64) {
	if !s.joined.Load() {
		return
	}
	s.send(protocol.CursorMove{RoomID: s.config.RoomID, X: x, Y: y})
}

func (s *Session) send(ev protocol.ClientEvent) {
	data, err := protocol.Encode(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type())).Msg("failed to encode event")
		return
	}
	if err := s.conn.Send(data); err != nil {
		log.Warn().Err(err).Str("type", string(ev.Type())).Msg("failed to queue event")
	}
}

func (s *Session) view() View {
	v := View{
		State:     s.state,
		SelfID:    s.timeline.Self(),
		Color:     s.color,
		Actions:   s.timeline.Merged(),
		Users:     append([]protocol.User(nil), s.users...),
		Info:      s.info,
		Rejection: s.rejection,
		CanUndo:   s.timeline.CanUndo(),
		CanRedo:   s.timeline.CanRedo(),
	}
	for _, c := range s.cursors {
		v.Cursors = append(v.Cursors, c)
	}
	return v
}

func (s *Session) redraw() {
	if s.config.OnRender == nil || s.config.Width <= 0 || s.config.Height <= 0 {
		return
	}

	if s.canvas == nil || s.rendered != s.timeline.Version() {
		s.canvas = render.Render(s.config.Width, s.config.Height, s.timeline.Merged())
		s.rendered = s.timeline.Version()
		if s.scratch == nil {
			s.scratch = render.NewScratch(s.canvas)
		} else {
			s.scratch.Rebase(s.canvas)
		}
	}

	frame := s.canvas
	if s.inProgress != nil {
		preview, err := s.scratch.Draw(*s.inProgress)
		if err != nil {
			log.Debug().Err(err).Msg("in-progress stroke not drawable yet")
		}
		frame = preview
	}
	s.config.OnRender(s.view(), frame)
}

func (s *Session) closeCanvas() {
	if s.scratch != nil {
		s.scratch.Close()
	}
}
