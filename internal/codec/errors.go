package codec

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNonIntegralArray  = errors.New("array length is not a whole number of samples")
	ErrInconsistentFlags = errors.New("inconsistent flags")
	ErrBadChecksum       = errors.New("checksum mismatch")
	ErrMalformed         = errors.New("malformed frame")
)

// DecodeError describes why a frame could not be decoded.
// Cause is one of the sentinel errors above so callers can use errors.Is.
type DecodeError struct {
	Field  string
	Offset int
	Need   int
	Have   int
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Need > 0 {
		return fmt.Sprintf("decode %s at offset %d: %v (need %d bytes, have %d)", e.Field, e.Offset, e.Cause, e.Need, e.Have)
	}
	return fmt.Sprintf("decode %s at offset %d: %v", e.Field, e.Offset, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// NewDecodeError builds a DecodeError that is not about running out of bytes
func NewDecodeError(field string, offset int, cause error) *DecodeError {
	return &DecodeError{Field: field, Offset: offset, Cause: cause}
}
