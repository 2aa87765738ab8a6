package fec

import (
	"errors"
	"fmt"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

var (
	ErrOutOfRange         = errors.New("command parameter out of range")
	ErrCommandOutstanding = errors.New("a command is already awaiting its status page")
	ErrAbandoned          = errors.New("command abandoned before its status page arrived")
	ErrProtocolViolation  = errors.New("trainer protocol violation")
)

// ProtocolViolationError reports a command status page that cannot be
// explained by anything sent on this connection
type ProtocolViolationError struct {
	LastCommand uint8
	Outstanding codec.Optional[uint8]
	Reason      string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("trainer protocol violation: status for page %d (outstanding %s): %s", e.LastCommand, e.Outstanding, e.Reason)
}

func (e *ProtocolViolationError) Is(target error) bool {
	return target == ErrProtocolViolation
}

func outOfRange(field string, value any, lo, hi any) error {
	return fmt.Errorf("%w: %s %v not in [%v, %v]", ErrOutOfRange, field, value, lo, hi)
}
