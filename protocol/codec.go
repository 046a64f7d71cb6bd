package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxRoomIDLength = 64
	MaxMessageRunes = 500
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ValidRoomID reports whether id can name a room: non-empty, URL-safe and
// at most MaxRoomIDLength bytes.
func ValidRoomID(id string) bool {
	return len(id) > 0 && len(id) <= MaxRoomIDLength && roomIDPattern.MatchString(id)
}

// Encode wraps an event in its {"type", "data"} envelope.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return json.Marshal(envelope{Type: ev.Type(), Data: data})
}

func DecodeClient(raw []byte) (ClientEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var ev ClientEvent
	var err error
	switch env.Type {
	case TypeJoinRoom:
		ev, err = decodeInto[JoinRoom](env.Data)
	case TypeLeaveRoom:
		ev, err = decodeInto[LeaveRoom](env.Data)
	case TypeDrawAction:
		ev, err = decodeInto[DrawAction](env.Data)
	case TypeCursorMove:
		ev, err = decodeInto[CursorMove](env.Data)
	case TypeSendMessage:
		ev, err = decodeInto[SendMessage](env.Data)
	case TypeClearCanvas:
		ev, err = decodeInto[ClearCanvas](env.Data)
	case TypeRequestCanvasState:
		ev, err = decodeInto[RequestCanvasState](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := validateClient(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func validateClient(ev ClientEvent) error {
	if !ValidRoomID(ev.Room()) {
		return fmt.Errorf("%w: %s: bad roomId", ErrInvalidPayload, ev.Type())
	}

	switch e := ev.(type) {
	case DrawAction:
		if err := e.Action.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	case CursorMove:
		if !finite(e.X) || !finite(e.Y) {
			return fmt.Errorf("%w: cursor-move: non-finite coordinate", ErrInvalidPayload)
		}
	case SendMessage:
		msg := strings.TrimSpace(e.Message)
		if msg == "" || utf8.RuneCountInString(msg) > MaxMessageRunes {
			return fmt.Errorf("%w: send-message: length outside 1..%d", ErrInvalidPayload, MaxMessageRunes)
		}
	}
	return nil
}

// DecodeServer is the client-side mirror of DecodeClient.
func DecodeServer(raw []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch env.Type {
	case TypeJoined:
		return decodeServerEvent[Joined](env.Data)
	case TypeRoomFull:
		return decodeServerEvent[RoomFull](env.Data)
	case TypeUserJoined:
		return decodeServerEvent[UserJoined](env.Data)
	case TypeUserLeft:
		return decodeServerEvent[UserLeft](env.Data)
	case TypeUsersList:
		return decodeServerEvent[UsersList](env.Data)
	case TypeDrawAction:
		ev, err := decodeInto[DrawBroadcast](env.Data)
		if err != nil {
			return nil, err
		}
		if err := ev.Action.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		return ev, nil
	case TypeCursorMove:
		return decodeServerEvent[CursorBroadcast](env.Data)
	case TypeChatMessage:
		return decodeServerEvent[ChatMessage](env.Data)
	case TypeCanvasClear:
		return CanvasClear{}, nil
	case TypeCanvasState:
		return decodeServerEvent[CanvasState](env.Data)
	case TypeRoomInfo:
		return decodeServerEvent[RoomInfo](env.Data)
	case TypeError:
		return decodeServerEvent[Error](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

func decodeInto[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return v, nil
}

func decodeServerEvent[T ServerEvent](data json.RawMessage) (ServerEvent, error) {
	v, err := decodeInto[T](data)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
