package channel

import (
	"errors"
	"fmt"
)

// Sentinel errors reported by Manager and Operation.
var (
	// ErrDecode marks an inbound frame that could not be decoded. The
	// operation is aborted locally and no further frames are processed.
	ErrDecode = errors.New("channel: protocol decode error")

	// ErrChannel marks a transport-level failure of the channel.
	ErrChannel = errors.New("channel: channel error")

	// ErrAmbiguousClosure is reported when the channel closed before any
	// terminal frame was observed and the close policy does not treat that
	// as success.
	ErrAmbiguousClosure = errors.New("channel: closed without a terminal frame")

	// ErrFirstFrameTimeout is reported when no frame arrived within the
	// configured window after the request was sent.
	ErrFirstFrameTimeout = errors.New("channel: no status received")

	// ErrFormBusy is returned by Begin when the form already has an
	// operation in flight.
	ErrFormBusy = errors.New("channel: form busy")

	// ErrAbandoned is reported when the hosting view was torn down before
	// the operation concluded.
	ErrAbandoned = errors.New("channel: operation abandoned")

	// ErrInvalidForm is returned by Begin for a form without a gate or view.
	ErrInvalidForm = errors.New("channel: invalid form")

	// ErrInvalidAction is returned when the form action cannot be turned
	// into a channel URL.
	ErrInvalidAction = errors.New("channel: invalid form action")

	// ErrManagerClosed is returned by Begin after Close.
	ErrManagerClosed = errors.New("channel: manager closed")
)

// ServerError is a failure reported by the server in an error frame. It is
// recoverable: the form is released and the user may resubmit.
type ServerError struct {
	Message string
}

// Error returns the server's message.
func (e *ServerError) Error() string {
	return fmt.Sprintf("channel: server error: %s", e.Message)
}

// IsServerError reports whether err carries a server-reported failure.
func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}
