package gatt

import (
	"fmt"

	"github.com/google/uuid"
)

// NoPage marks a frame that is not addressed by a page number
const NoPage = -1

// Origin identifies where a frame came from. Page is set by page-addressed
// protocols once the page number has been read from the payload.
type Origin struct {
	Characteristic uuid.UUID
	Page           int
}

// RawFrame is one notification or read value as delivered by the transport.
// Decoders must treat Data as read-only.
type RawFrame struct {
	Origin Origin
	Data   []byte
}

// NewFrame tags data with the characteristic it arrived on
func NewFrame(ch uuid.UUID, data []byte) RawFrame {
	return RawFrame{Origin: Origin{Characteristic: ch, Page: NoPage}, Data: data}
}

// WithPage returns a copy of f addressed to page
func (f RawFrame) WithPage(page int, data []byte) RawFrame {
	return RawFrame{Origin: Origin{Characteristic: f.Origin.Characteristic, Page: page}, Data: data}
}

// Transport is implemented outside the core: connection, discovery and the
// actual GATT operations belong to the transport.
type Transport interface {
	Write(ch Characteristic, data []byte) error
	Subscribe(ch Characteristic, onFrame func(RawFrame)) error
	Unsubscribe(ch Characteristic) error
	ReadOnce(ch Characteristic) (RawFrame, error)
}

// TransportError is returned by transports. The core hands it back to its
// callers without interpreting it.
type TransportError struct {
	Op             string
	Characteristic Characteristic
	Err            error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Characteristic, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
