package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrParse            = errors.New("malformed venue message")
	ErrWSDisconnect     = errors.New("websocket disconnected")
	ErrRetriesExhausted = errors.New("reconnect attempts exhausted")
)
