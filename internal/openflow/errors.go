package openflow

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrShortHeader        = errors.New("openflow: short header")
	ErrInvalidLength      = errors.New("openflow: invalid length")
	ErrMessageTooLarge    = errors.New("openflow: message too large")
	ErrUnknownMessage     = errors.New("openflow: unknown message type")
	ErrMalformed          = errors.New("openflow: malformed message body")
	ErrUnsupportedVersion = errors.New("openflow: unsupported version")
	ErrHandshakeTimeout   = errors.New("openflow: handshake timeout")
	ErrSwitchClosed       = errors.New("openflow: switch connection closed")
)

// ParseError is a well-framed message whose body did not decode. The stream
// stays usable.
type ParseError struct {
	Type uint8
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("openflow: parse message type %d: %v", e.Type, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
