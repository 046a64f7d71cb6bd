package room

import "errors"

var (
	ErrAtCapacity       = errors.New("room-full")
	ErrRoomNotFound     = errors.New("room-not-found")
	ErrSendBufferFull   = errors.New("send-buffer-full")
	ErrConnectionClosed = errors.New("connection-closed")
)
