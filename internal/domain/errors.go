package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrLinkUnavailable is returned when the target link was never connected
	// or has already been closed.
	ErrLinkUnavailable = errors.New("link unavailable")
	ErrLinkClosed      = errors.New("link closed")
)

type ConnectError struct {
	Role    Role
	Locator string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting %s on %s: %v", e.Role, e.Locator, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

type SendError struct {
	Role    Role
	Payload string
	Err     error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sending %q to %s: %v", e.Payload, e.Role, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }
