package room

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected   = errors.New("not connected to room")
	ErrMediaDenied    = errors.New("media capture unavailable")
	ErrSignalingError = errors.New("signaling server error")
	ErrInvalidDice    = errors.New("invalid dice size")
)

// RoomError wraps a failure with the operation that produced it.
type RoomError struct {
	Op      string
	Err     error
	Details string
}

func (e *RoomError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RoomError) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *RoomError {
	return &RoomError{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *RoomError {
	return &RoomError{Op: op, Err: err, Details: details}
}
