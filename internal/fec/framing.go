package fec

import (
	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// ANT message constants used by FE-C over BLE
const (
	syncByte           = 0xA4
	messageLength      = 0x09 // channel byte + 8 page bytes
	msgIDBroadcastData = 0x4E
	msgIDAcknowledged  = 0x4F
	channelNumber      = 0x05
	pageSize           = 8
)

// Page is the 8-byte application payload of an ANT data message. Byte 0 is
// the page number.
type Page [pageSize]byte

func (p Page) Number() uint8 {
	return p[0]
}

// Message is a decoded ANT message
type Message struct {
	ID      uint8
	Channel uint8
	Payload []byte
}

func checksum(b []byte) byte {
	var c byte
	for _, v := range b {
		c ^= v
	}
	return c
}

// EncodeMessage frames a page as an acknowledged data message:
// A4 09 4F 05 <page> <checksum>
func EncodeMessage(p Page) []byte {
	w := codec.NewWriter(4 + messageLength).
		PutUint8(syncByte).
		PutUint8(messageLength).
		PutUint8(msgIDAcknowledged).
		PutUint8(channelNumber)
	for _, b := range p {
		w.PutUint8(b)
	}
	out := w.Bytes()
	return append(out, checksum(out))
}

// DecodeMessage validates sync byte, length and checksum and returns the
// payload. The length byte counts the channel byte plus the payload.
// Bytes after the checksum are ignored.
func DecodeMessage(data []byte) (Message, error) {
	r := codec.NewReader(data)
	sync, err := r.Uint8("sync")
	if err != nil {
		return Message{}, err
	}
	if sync != syncByte {
		return Message{}, codec.NewDecodeError("sync", 0, codec.ErrMalformed)
	}
	length, err := r.Uint8("message length")
	if err != nil {
		return Message{}, err
	}
	if length < 2 {
		return Message{}, codec.NewDecodeError("message length", 1, codec.ErrMalformed)
	}
	id, err := r.Uint8("message id")
	if err != nil {
		return Message{}, err
	}
	channel, err := r.Uint8("channel")
	if err != nil {
		return Message{}, err
	}
	payload, err := r.Bytes("payload", int(length)-1)
	if err != nil {
		return Message{}, err
	}
	sum, err := r.Uint8("checksum")
	if err != nil {
		return Message{}, err
	}
	if sum != checksum(data[:r.Offset()-1]) {
		return Message{}, codec.NewDecodeError("checksum", r.Offset()-1, codec.ErrBadChecksum)
	}
	return Message{ID: id, Channel: channel, Payload: payload}, nil
}
