package widget

import "errors"

var (
	ErrNoWidget        = errors.New("no DMX widget detected")
	ErrNotStarted      = errors.New("device not started")
	ErrAlreadyStarted  = errors.New("device already started")
	ErrMessageTooLarge = errors.New("widget message too large")
	ErrBadMessage      = errors.New("malformed widget message")
	ErrInvalidConfig   = errors.New("invalid widget configuration")
)
