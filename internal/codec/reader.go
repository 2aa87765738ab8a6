package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader walks a little-endian byte buffer field by field.
// A failed read leaves the cursor where it was.
type Reader struct {
	buf []byte
	off int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the cursor position in bytes
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(field string, n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, &DecodeError{
			Field:  field,
			Offset: r.off,
			Need:   n,
			Have:   r.Remaining(),
			Cause:  ErrInsufficientData,
		}
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) Uint8(field string) (uint8, error) {
	b, err := r.take(field, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Uint16(field string) (uint16, error) {
	b, err := r.take(field, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) Uint24(field string) (uint32, error) {
	b, err := r.take(field, 3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

func (r *Reader) Uint32(field string) (uint32, error) {
	b, err := r.take(field, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Int8(field string) (int8, error) {
	v, err := r.Uint8(field)
	return int8(v), err
}

func (r *Reader) Int16(field string) (int16, error) {
	v, err := r.Uint16(field)
	return int16(v), err
}

// Uint reads an unsigned little-endian integer of 8, 16, 24 or 32 bits
func (r *Reader) Uint(field string, bits int) (uint32, error) {
	switch bits {
	case 8:
		v, err := r.Uint8(field)
		return uint32(v), err
	case 16:
		v, err := r.Uint16(field)
		return uint32(v), err
	case 24:
		return r.Uint24(field)
	case 32:
		return r.Uint32(field)
	default:
		panic(fmt.Sprintf("codec: unsupported integer width %d", bits))
	}
}

// Int reads a two's-complement little-endian integer of 8, 16, 24 or 32 bits
func (r *Reader) Int(field string, bits int) (int32, error) {
	v, err := r.Uint(field, bits)
	if err != nil {
		return 0, err
	}
	return SignExtend(v, bits), nil
}

func (r *Reader) Float32(field string) (float32, error) {
	v, err := r.Uint32(field)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Bytes returns the next n bytes. The slice aliases the frame.
func (r *Reader) Bytes(field string, n int) ([]byte, error) {
	return r.take(field, n)
}

func (r *Reader) Skip(field string, n int) error {
	_, err := r.take(field, n)
	return err
}

// Rest consumes and returns every unread byte
func (r *Reader) Rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}

// Int16Array consumes the rest of the buffer as sint16 samples.
// A trailing odd byte fails with ErrNonIntegralArray and consumes nothing.
func (r *Reader) Int16Array(field string) ([]int16, error) {
	if r.Remaining()%2 != 0 {
		return nil, &DecodeError{Field: field, Offset: r.off, Have: r.Remaining(), Cause: ErrNonIntegralArray}
	}
	out := make([]int16, 0, r.Remaining()/2)
	for r.Remaining() > 0 {
		v, err := r.Int16(field)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Uint16Array is Int16Array for unsigned samples
func (r *Reader) Uint16Array(field string) ([]uint16, error) {
	if r.Remaining()%2 != 0 {
		return nil, &DecodeError{Field: field, Offset: r.off, Have: r.Remaining(), Cause: ErrNonIntegralArray}
	}
	out := make([]uint16, 0, r.Remaining()/2)
	for r.Remaining() > 0 {
		v, err := r.Uint16(field)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Field extracts width bits starting at bit pos (LSB = 0) from word
func Field(word uint32, pos, width uint) uint32 {
	if width >= 32 {
		return word >> pos
	}
	return (word >> pos) & (1<<width - 1)
}

// SignExtend interprets the low width bits of v as a two's-complement number
func SignExtend(v uint32, width int) int32 {
	if width <= 0 || width >= 32 {
		return int32(v)
	}
	shift := 32 - width
	return int32(v<<shift) >> shift
}
