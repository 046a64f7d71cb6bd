package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 2 * time.Millisecond
)

func startSession(t *testing.T, config SessionConfig) (*Session, *fakeConn, <-chan error) {
	t.Helper()
	if config.RoomID == "" {
		config.RoomID = "r1"
	}
	if config.Username == "" {
		config.Username = "Ada"
	}
	config.FrameInterval = time.Millisecond

	conn := newFakeConn(t)
	s := NewSession(conn, config)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.done
	})
	return s, conn, errc
}

func view(t *testing.T, s *Session) View {
	t.Helper()
	v, err := s.View(context.Background())
	require.NoError(t, err)
	return v
}

func waitState(t *testing.T, s *Session, state State) {
	t.Helper()
	require.Eventually(t, func() bool { return view(t, s).State == state }, waitFor, tick)
}

func joinSession(t *testing.T, s *Session, conn *fakeConn, userID string, actions ...drawing.Action) {
	t.Helper()
	conn.connect()
	require.Eventually(t, func() bool { return conn.count(protocol.TypeJoinRoom) > 0 }, waitFor, tick)
	conn.push(protocol.MakePacketJoined(userID, "#EF4444", actions))
	waitState(t, s, StateJoined)
}

func TestSessionJoin(t *testing.T) {
	t.Parallel()
	s, conn, _ := startSession(t, SessionConfig{})

	assert.Equal(t, StateDisconnected, view(t, s).State)

	joinSession(t, s, conn, "u1", stroke(1))

	assert.Equal(t, protocol.JoinRoom{RoomID: "r1", Username: "Ada"}, conn.sent()[0])
	v := view(t, s)
	assert.Equal(t, "u1", v.SelfID)
	assert.Equal(t, "#EF4444", v.Color)
	assert.Equal(t, []drawing.Action{stroke(1)}, v.Actions)
	assert.Equal(t, 0, conn.count(protocol.TypeRequestCanvasState), "first join already carries the snapshot")
}

func TestSessionDraw(t *testing.T) {
	t.Parallel()
	s, conn, _ := startSession(t, SessionConfig{})
	joinSession(t, s, conn, "u1")

	require.NoError(t, s.Draw(stroke(1)))
	require.Eventually(t, func() bool { return len(conn.draws()) == 1 }, waitFor, tick)
	assert.Equal(t, stroke(1), conn.draws()[0])

	bad := stroke(2)
	bad.Color = "red"
	assert.ErrorIs(t, s.Draw(bad), drawing.ErrMalformedAction)

	// own echo with an action we never drew must still be ignored
	conn.push(protocol.MakePacketDrawAction("u1", stroke(5)))
	conn.push(protocol.MakePacketDrawAction("u2", stroke(6)))
	require.Eventually(t, func() bool { return len(view(t, s).Actions) == 2 }, waitFor, tick)
	assert.Equal(t, []drawing.Action{stroke(1), stroke(6)}, view(t, s).Actions)
	assert.Len(t, conn.draws(), 1)
}

func TestSessionUndoRedo(t *testing.T) {
	t.Parallel()
	s, conn, _ := startSession(t, SessionConfig{})
	joinSession(t, s, conn, "u1")

	a, b := stroke(1), stroke(2)
	require.NoError(t, s.Draw(a))
	require.NoError(t, s.Draw(b))
	require.NoError(t, s.Undo())

	v := view(t, s)
	assert.Equal(t, []drawing.Action{a}, v.Actions)
	assert.True(t, v.CanRedo)

	require.NoError(t, s.Redo())
	v = view(t, s)
	assert.Equal(t, []drawing.Action{a, b}, v.Actions)
	assert.False(t, v.CanRedo)

	require.Eventually(t, func() bool { return len(conn.draws()) == 3 }, waitFor, tick)
	assert.Equal(t, []drawing.Action{a, b, b}, conn.draws(), "redo re-sends the action")
}

func TestSessionCanvasClear(t *testing.T) {
	t.Parallel()

	t.Run("remote clear wipes local work", func(t *testing.T) {
		t.Parallel()
		s, conn, _ := startSession(t, SessionConfig{})
		joinSession(t, s, conn, "u1", stroke(3))
		require.NoError(t, s.Draw(stroke(1)))
		require.Len(t, view(t, s).Actions, 2)

		conn.push(protocol.MakePacketCanvasClear())
		require.Eventually(t, func() bool { return len(view(t, s).Actions) == 0 }, waitFor, tick)
		assert.False(t, view(t, s).CanUndo)
	})

	t.Run("local clear is broadcast", func(t *testing.T) {
		t.Parallel()
		s, conn, _ := startSession(t, SessionConfig{})
		joinSession(t, s, conn, "u1", stroke(3))
		require.NoError(t, s.Draw(stroke(1)))
		require.NoError(t, s.Clear())

		assert.Empty(t, view(t, s).Actions)
		require.Eventually(t, func() bool { return conn.count(protocol.TypeClearCanvas) == 1 }, waitFor, tick)
	})

	t.Run("offline clear is refused", func(t *testing.T) {
		t.Parallel()
		s, conn, _ := startSession(t, SessionConfig{})
		assert.ErrorIs(t, s.Clear(), ErrNotJoined)

		joinSession(t, s, conn, "u1", stroke(3))
		require.NoError(t, s.Draw(stroke(1)))
		require.Len(t, view(t, s).Actions, 2)

		conn.disconnect()
		waitState(t, s, StateDisconnected)
		assert.ErrorIs(t, s.Clear(), ErrNotJoined)

		v := view(t, s)
		assert.Len(t, v.Actions, 2)
		assert.True(t, v.CanUndo)
		assert.Zero(t, conn.count(protocol.TypeClearCanvas))

		joinSession(t, s, conn, "u2", stroke(3))
		assert.ElementsMatch(t, []drawing.Action{stroke(1), stroke(3)}, view(t, s).Actions)
		assert.Zero(t, conn.count(protocol.TypeClearCanvas))
	})

	t.Run("empty snapshot keeps local work", func(t *testing.T) {
		t.Parallel()
		s, conn, _ := startSession(t, SessionConfig{})
		joinSession(t, s, conn, "u1")
		require.NoError(t, s.Draw(stroke(1)))

		conn.push(protocol.MakePacketCanvasState(nil))
		require.NoError(t, s.Sync())
		require.Eventually(t, func() bool { return conn.count(protocol.TypeRequestCanvasState) == 1 }, waitFor, tick)
		assert.Equal(t, []drawing.Action{stroke(1)}, view(t, s).Actions)
	})
}

func TestSessionReconnect(t *testing.T) {
	t.Parallel()
	s, conn, _ := startSession(t, SessionConfig{})
	joinSession(t, s, conn, "u1", stroke(9))
	require.NoError(t, s.Draw(stroke(1)))
	require.Eventually(t, func() bool { return len(conn.draws()) == 1 }, waitFor, tick)

	conn.disconnect()
	waitState(t, s, StateDisconnected)

	require.NoError(t, s.Draw(stroke(2)))
	require.Len(t, view(t, s).Actions, 3)
	assert.Len(t, conn.draws(), 1, "nothing is sent while offline")

	// the room emptied while we were away, so the relay lost our strokes
	joinSession(t, s, conn, "u2")

	require.Eventually(t, func() bool { return len(conn.draws()) == 3 }, waitFor, tick)
	assert.Equal(t, []drawing.Action{stroke(1), stroke(1), stroke(2)}, conn.draws())
	assert.Equal(t, 2, conn.count(protocol.TypeJoinRoom))
	assert.Equal(t, 1, conn.count(protocol.TypeRequestCanvasState))

	v := view(t, s)
	assert.Equal(t, "u2", v.SelfID)
	assert.Equal(t, []drawing.Action{stroke(1), stroke(2), stroke(9)}, v.Actions)
}

func TestSessionRoomFull(t *testing.T) {
	t.Parallel()
	s, conn, errc := startSession(t, SessionConfig{})

	conn.connect()
	conn.push(protocol.MakePacketRoomFull(5))

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrRejected)
		assert.ErrorContains(t, err, "Room is full. Maximum 5 users allowed.")
	case <-time.After(waitFor):
		t.Fatal("session did not stop after rejection")
	}

	assert.ErrorIs(t, s.Draw(stroke(1)), ErrSessionClosed)
	_, err := s.View(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionPresence(t *testing.T) {
	t.Parallel()
	s, conn, _ := startSession(t, SessionConfig{})
	joinSession(t, s, conn, "u1")

	users := []protocol.User{
		{ID: "u1", Username: "Ada", Color: "#EF4444", IsOnline: true},
		{ID: "u2", Username: "Bob", Color: "#F59E0B", IsOnline: true},
	}
	conn.push(protocol.MakePacketUsersList(users))
	conn.push(protocol.MakePacketRoomInfo(5, 2))
	conn.push(protocol.MakePacketCursorMove("u2", 10, 20, "Bob", "#F59E0B"))
	conn.push(protocol.MakePacketCursorMove("u1", 1, 1, "Ada", "#EF4444"))

	require.Eventually(t, func() bool { return len(view(t, s).Cursors) == 1 }, waitFor, tick)
	v := view(t, s)
	assert.Equal(t, users, v.Users)
	assert.Equal(t, protocol.RoomInfo{MaxUsers: 5, CurrentUsers: 2}, v.Info)
	assert.Equal(t, "u2", v.Cursors[0].UserID)

	conn.push(protocol.MakePacketUserLeft("u2"))
	require.Eventually(t, func() bool { return len(view(t, s).Cursors) == 0 }, waitFor, tick)
}

func TestSessionChat(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var got []protocol.ChatMessage
	s, conn, _ := startSession(t, SessionConfig{OnChat: func(m protocol.ChatMessage) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m)
	}})
	assert.ErrorIs(t, s.SendChat("too early"), ErrNotJoined)
	joinSession(t, s, conn, "u1")

	assert.ErrorIs(t, s.SendChat("   "), protocol.ErrInvalidPayload)
	require.NoError(t, s.SendChat("  hello  "))
	require.Eventually(t, func() bool { return conn.count(protocol.TypeSendMessage) == 1 }, waitFor, tick)

	sent := conn.sent()
	assert.Equal(t, protocol.SendMessage{RoomID: "r1", Message: "hello"}, sent[len(sent)-1])

	msg := protocol.MakePacketChatMessage("m1", "u2", "Bob", "#F59E0B", "hi", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	conn.push(msg)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, waitFor, tick)
	assert.Equal(t, msg, got[0])
}

func TestSessionCursorThrottled(t *testing.T) {
	t.Parallel()
	s, conn, _ := startSession(t, SessionConfig{CursorInterval: 20 * time.Millisecond})

	s.MoveCursor(1, 1)
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, conn.count(protocol.TypeCursorMove), "cursor is not sent before joining")

	joinSession(t, s, conn, "u1")
	for i := range 10 {
		s.MoveCursor(float64(i), float64(i))
	}

	require.Eventually(t, func() bool { return conn.count(protocol.TypeCursorMove) >= 1 }, waitFor, tick)
	time.Sleep(60 * time.Millisecond)

	var last protocol.CursorMove
	for _, ev := range conn.sent() {
		if c, ok := ev.(protocol.CursorMove); ok {
			last = c
		}
	}
	assert.LessOrEqual(t, conn.count(protocol.TypeCursorMove), 2)
	assert.Equal(t, protocol.CursorMove{RoomID: "r1", X: 9, Y: 9}, last)
}

func TestSessionRender(t *testing.T) {
	t.Parallel()

	type frame struct {
		view   View
		center [4]uint8
	}
	var mu sync.Mutex
	var frames []frame

	s, conn, _ := startSession(t, SessionConfig{
		Width:  40,
		Height: 40,
		OnRender: func(v View, c *render.Canvas) {
			px := c.At(20, 20)
			mu.Lock()
			defer mu.Unlock()
			frames = append(frames, frame{view: v, center: [4]uint8{px.R, px.G, px.B, px.A}})
		},
	})
	last := func() (frame, bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(frames) == 0 {
			return frame{}, false
		}
		return frames[len(frames)-1], true
	}

	joinSession(t, s, conn, "u1")
	conn.push(protocol.MakePacketDrawAction("u2", drawing.NewFill("#10B981", 1, drawing.Point{X: 1, Y: 1})))

	require.Eventually(t, func() bool {
		f, ok := last()
		return ok && f.center == [4]uint8{0x10, 0xB9, 0x81, 0xFF}
	}, waitFor, tick)

	preview := drawing.NewStroke(drawing.ToolBrush, "#3B82F6", 8, drawing.Point{X: 20, Y: 20})
	require.NoError(t, s.Preview(preview))
	require.Eventually(t, func() bool {
		f, ok := last()
		return ok && f.center == [4]uint8{0x3B, 0x82, 0xF6, 0xFF}
	}, waitFor, tick)
	assert.Len(t, view(t, s).Actions, 1, "preview is not recorded")

	require.NoError(t, s.Draw(preview))
	require.Eventually(t, func() bool {
		f, ok := last()
		return ok && len(f.view.Actions) == 2
	}, waitFor, tick)
}
