package mqtt

import "errors"

var (
	// ErrTransport is returned when a message could not be published.
	ErrTransport = errors.New("mqtt transport failure")
	// ErrReplyTimeout is returned when no reply arrives before the deadline.
	ErrReplyTimeout = errors.New("timeout waiting for reply")
	// ErrRemote is returned when the peer answered with a failure status.
	ErrRemote = errors.New("remote call failed")
)
