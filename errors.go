package dmx

import "errors"

var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrInvalidUniverse  = errors.New("invalid universe id")
	ErrInvalidMergeMode = errors.New("invalid merge mode")

	// Port errors returned by drivers
	ErrNotReadable = errors.New("port is not readable")
	ErrNotWritable = errors.New("port is not writable")
	ErrPortClosed  = errors.New("port is closed")
)
