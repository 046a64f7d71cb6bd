package protocol

import (
	"fmt"
	"time"

	"github.com/LasyaDevara/Real-Time-Collaborative-Drawing-Canvas/drawing"
)

// ISO-8601 with milliseconds, always UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func RoomFullMessage(capacity int) string {
	return fmt.Sprintf("Room is full. Maximum %d users allowed.", capacity)
}

func MakePacketJoined(userID, color string, actions []drawing.Action) Joined {
	if actions == nil {
		actions = []drawing.Action{}
	}
	return Joined{UserID: userID, Color: color, Actions: actions}
}

func MakePacketRoomFull(capacity int) RoomFull {
	return RoomFull{Message: RoomFullMessage(capacity)}
}

func MakePacketUserJoined(userID, username, color string) UserJoined {
	return UserJoined{UserID: userID, Username: username, Color: color}
}

func MakePacketUserLeft(userID string) UserLeft {
	return UserLeft{UserID: userID}
}

func MakePacketUsersList(users []User) UsersList {
	if users == nil {
		users = []User{}
	}
	return UsersList(users)
}

func MakePacketDrawAction(userID string, action drawing.Action) DrawBroadcast {
	return DrawBroadcast{UserID: userID, Action: action}
}

func MakePacketCursorMove(userID string, x, y float64, username, color string) CursorBroadcast {
	return CursorBroadcast{UserID: userID, X: x, Y: y, Username: username, Color: color}
}

func MakePacketChatMessage(id, userID, username, userColor, message string, at time.Time) ChatMessage {
	return ChatMessage{
		ID:        id,
		UserID:    userID,
		Username:  username,
		UserColor: userColor,
		Message:   message,
		Timestamp: Timestamp(at),
	}
}

func MakePacketCanvasClear() CanvasClear {
	return CanvasClear{}
}

func MakePacketCanvasState(actions []drawing.Action) CanvasState {
	if actions == nil {
		actions = []drawing.Action{}
	}
	return CanvasState{Actions: actions}
}

func MakePacketRoomInfo(maxUsers, currentUsers int) RoomInfo {
	return RoomInfo{MaxUsers: maxUsers, CurrentUsers: currentUsers}
}

func MakePacketError(code, message string) Error {
	return Error{Code: code, Message: message}
}
