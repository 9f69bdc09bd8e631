package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned by send operations before Configure.
	ErrNotConfigured = errors.New("node not configured")
	// ErrMissingAddress is returned by Ping without a destination address.
	ErrMissingAddress = errors.New("missing address")
	// ErrMissingType is returned by Send for an envelope without a type.
	ErrMissingType = errors.New("missing message type")
	// ErrInvalidArgument reports a malformed registration or payload.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed is returned by Configure after Close.
	ErrClosed = errors.New("node closed")
)

// DecodeError reports an inbound datagram that is not a valid envelope.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
