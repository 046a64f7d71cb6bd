package room

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/protocol"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *Relay) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	relay := NewRelay(NewRegistry(DefaultCapacity))
	handler := NewHandler(relay, HandlerConfig{
		SendBuffer:   64,
		PingInterval: time.Second,
		CanvasWidth:  64,
		CanvasHeight: 48,
	})
	router := gin.New()
	handler.RegisterRoutes(router)
	handler.RegisterExportRoutes(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, relay
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, ev protocol.ClientEvent) {
	t.Helper()
	data, err := protocol.Encode(ev)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// await reads until an event of type want arrives.
func await(t *testing.T, conn *websocket.Conn, want protocol.EventType) protocol.ServerEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		ev, err := protocol.DecodeServer(data)
		require.NoError(t, err)
		if ev.Type() == want {
			return ev
		}
	}
}

func TestWebsocketHandlerEndToEnd(t *testing.T) {
	t.Parallel()
	server, relay := newTestServer(t)

	a := dial(t, server)
	send(t, a, protocol.JoinRoom{RoomID: "r1", Username: "Alice"})
	joinedA := await(t, a, protocol.TypeJoined).(protocol.Joined)
	assert.NotEmpty(t, joinedA.UserID)
	assert.Equal(t, Palette[0], joinedA.Color)

	b := dial(t, server)
	send(t, b, protocol.JoinRoom{RoomID: "r1", Username: "Bob"})
	await(t, b, protocol.TypeJoined)
	userJoined := await(t, a, protocol.TypeUserJoined).(protocol.UserJoined)
	assert.Equal(t, "Bob", userJoined.Username)

	s := drawing.NewStroke(drawing.ToolBrush, "#3B82F6", 5, drawing.Point{X: 10, Y: 10}, drawing.Point{X: 20, Y: 20})
	send(t, a, protocol.DrawAction{RoomID: "r1", Action: s})
	got := await(t, b, protocol.TypeDrawAction).(protocol.DrawBroadcast)
	assert.Equal(t, joinedA.UserID, got.UserID)
	assert.True(t, s.Equal(got.Action))

	send(t, b, protocol.RequestCanvasState{RoomID: "r1"})
	state := await(t, b, protocol.TypeCanvasState).(protocol.CanvasState)
	require.Len(t, state.Actions, 1)

	b.Close()
	left := await(t, a, protocol.TypeUserLeft).(protocol.UserLeft)
	assert.NotEqual(t, joinedA.UserID, left.UserID)

	assert.Eventually(t, func() bool {
		return relay.Registry().Stats() == Stats{Rooms: 1, Members: 1}
	}, time.Second, 10*time.Millisecond)
}

func TestWebsocketHandlerRejectsGarbage(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	conn := dial(t, server)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	ev := await(t, conn, protocol.TypeError).(protocol.Error)
	assert.Equal(t, "invalid-payload", ev.Code)
}

func TestRoomInfoHandler(t *testing.T) {
	t.Parallel()
	server, relay := newTestServer(t)
	relay.Registry().Join("r1", "a", "A")
	relay.Registry().Append("r1", stroke(1))

	testCases := []struct {
		name         string
		path         string
		expectedCode int
		expectedBody string
	}{
		{
			name:         "existing room",
			path:         "/rooms/r1",
			expectedCode: http.StatusOK,
			expectedBody: `{"roomId":"r1","maxUsers":5,"currentUsers":1,"actions":1}`,
		},
		{
			name:         "unknown room",
			path:         "/rooms/nope",
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"room-not-found"}`,
		},
		{
			name:         "stats",
			path:         "/rooms",
			expectedCode: http.StatusOK,
			expectedBody: `{"rooms":1,"members":1}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tc.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedCode, resp.StatusCode)
			var body json.RawMessage
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.JSONEq(t, tc.expectedBody, string(body))
		})
	}
}

func TestExportHandlers(t *testing.T) {
	t.Parallel()
	server, relay := newTestServer(t)
	relay.Registry().Join("r1", "a", "A")
	relay.Registry().Append("r1", drawing.NewFill("#FF0000", 5, drawing.Point{X: 1, Y: 1}))

	testCases := []struct {
		path        string
		code        int
		contentType string
	}{
		{"/rooms/r1/export.png", http.StatusOK, "image/png"},
		{"/rooms/r1/export.pdf", http.StatusOK, "application/pdf"},
		{"/rooms/nope/export.png", http.StatusNotFound, "application/json; charset=utf-8"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tc.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.code, resp.StatusCode)
			assert.Equal(t, tc.contentType, resp.Header.Get("Content-Type"))
		})
	}
}

func TestGorillaWebSocketWrapper(t *testing.T) {
	t.Parallel()

	t.Run("write and read", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			upgrader := websocket.Upgrader{
				CheckOrigin: func(r *http.Request) bool { return true },
			}
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			wrapper := NewGorillaWebSocketWrapper(conn, time.Second)
			data, err := wrapper.Read()
			if err != nil {
				return
			}
			wrapper.Write(data)
			wrapper.Close("done")
		}))
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("echo")))
		typ, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, typ)
		assert.Equal(t, []byte("echo"), msg)

		_, _, err = conn.ReadMessage()
		var closeErr *websocket.CloseError
		require.ErrorAs(t, err, &closeErr)
		assert.Equal(t, "done", closeErr.Text)
	})
}
