package protocol

import "errors"

var (
	ErrUnknownEvent   = errors.New("unknown-event")
	ErrInvalidPayload = errors.New("invalid-payload")
)
