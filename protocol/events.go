package protocol

import "github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"

type EventType string

// Client -> server
const (
	TypeJoinRoom           EventType = "join-room"
	TypeLeaveRoom          EventType = "leave-room"
	TypeDrawAction         EventType = "draw-action"
	TypeCursorMove         EventType = "cursor-move"
	TypeSendMessage        EventType = "send-message"
	TypeClearCanvas        EventType = "clear-canvas"
	TypeRequestCanvasState EventType = "request-canvas-state"
)

// Server -> client. draw-action and cursor-move are shared with the client set.
const (
	TypeJoined      EventType = "joined"
	TypeRoomFull    EventType = "room-full"
	TypeUserJoined  EventType = "user-joined"
	TypeUserLeft    EventType = "user-left"
	TypeUsersList   EventType = "users-list"
	TypeChatMessage EventType = "chat-message"
	TypeCanvasClear EventType = "canvas-clear"
	TypeCanvasState EventType = "canvas-state"
	TypeRoomInfo    EventType = "room-info"
	TypeError       EventType = "error"
)

type Event interface {
	Type() EventType
}

// ClientEvent is the closed set of events a client may send.
type ClientEvent interface {
	Event
	Room() string
	clientEvent()
}

// ServerEvent is the closed set of events the server may send.
type ServerEvent interface {
	Event
	serverEvent()
}

// --- client events ---

type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

type DrawAction struct {
	RoomID string         `json:"roomId"`
	Action drawing.Action `json:"action"`
}

type CursorMove struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type SendMessage struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type ClearCanvas struct {
	RoomID string `json:"roomId"`
}

type RequestCanvasState struct {
	RoomID string `json:"roomId"`
}

func (JoinRoom) Type() EventType           { return TypeJoinRoom }
func (LeaveRoom) Type() EventType          { return TypeLeaveRoom }
func (DrawAction) Type() EventType         { return TypeDrawAction }
func (CursorMove) Type() EventType         { return TypeCursorMove }
func (SendMessage) Type() EventType        { return TypeSendMessage }
func (ClearCanvas) Type() EventType        { return TypeClearCanvas }
func (RequestCanvasState) Type() EventType { return TypeRequestCanvasState }

func (e JoinRoom) Room() string           { return e.RoomID }
func (e LeaveRoom) Room() string          { return e.RoomID }
func (e DrawAction) Room() string         { return e.RoomID }
func (e CursorMove) Room() string         { return e.RoomID }
func (e SendMessage) Room() string        { return e.RoomID }
func (e ClearCanvas) Room() string        { return e.RoomID }
func (e RequestCanvasState) Room() string { return e.RoomID }

func (JoinRoom) clientEvent()           {}
func (LeaveRoom) clientEvent()          {}
func (DrawAction) clientEvent()         {}
func (CursorMove) clientEvent()         {}
func (SendMessage) clientEvent()        {}
func (ClearCanvas) clientEvent()        {}
func (RequestCanvasState) clientEvent() {}

// --- server events ---

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Color    string `json:"color"`
	IsOnline bool   `json:"isOnline"`
}

type Joined struct {
	UserID  string           `json:"userId"`
	Color   string           `json:"color"`
	Actions []drawing.Action `json:"actions"`
}

type RoomFull struct {
	Message string `json:"message"`
}

type UserJoined struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

type UserLeft struct {
	UserID string `json:"userId"`
}

// UsersList is sent as a bare JSON array.
type UsersList []User

type DrawBroadcast struct {
	UserID string         `json:"userId"`
	Action drawing.Action `json:"action"`
}

type CursorBroadcast struct {
	UserID   string  `json:"userId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Username string  `json:"username"`
	Color    string  `json:"color"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	UserColor string `json:"userColor"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type CanvasClear struct{}

type CanvasState struct {
	Actions []drawing.Action `json:"actions"`
}

type RoomInfo struct {
	MaxUsers     int `json:"maxUsers"`
	CurrentUsers int `json:"currentUsers"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Joined) Type() EventType          { return TypeJoined }
func (RoomFull) Type() EventType        { return TypeRoomFull }
func (UserJoined) Type() EventType      { return TypeUserJoined }
func (UserLeft) Type() EventType        { return TypeUserLeft }
func (UsersList) Type() EventType       { return TypeUsersList }
func (DrawBroadcast) Type() EventType   { return TypeDrawAction }
func (CursorBroadcast) Type() EventType { return TypeCursorMove }
func (ChatMessage) Type() EventType     { return TypeChatMessage }
func (CanvasClear) Type() EventType     { return TypeCanvasClear }
func (CanvasState) Type() EventType     { return TypeCanvasState }
func (RoomInfo) Type() EventType        { return TypeRoomInfo }
func (Error) Type() EventType           { return TypeError }

func (Joined) serverEvent()          {}
func (RoomFull) serverEvent()        {}
func (UserJoined) serverEvent()      {}
func (UserLeft) serverEvent()        {}
func (UsersList) serverEvent()       {}
func (DrawBroadcast) serverEvent()   {}
func (CursorBroadcast) serverEvent() {}
func (ChatMessage) serverEvent()     {}
func (CanvasClear) serverEvent()     {}
func (CanvasState) serverEvent()     {}
func (RoomInfo) serverEvent()        {}
func (Error) serverEvent()           {}
