package codec

import "encoding/binary"

// Writer builds little-endian buffers for outgoing commands
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) PutUint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) PutUint16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) PutUint24(v uint32) *Writer {
	w.buf = append(w.buf, byte(v), byte(v>>8), byte(v>>16))
	return w
}

func (w *Writer) PutUint32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) PutInt8(v int8) *Writer {
	return w.PutUint8(uint8(v))
}

func (w *Writer) PutInt16(v int16) *Writer {
	return w.PutUint16(uint16(v))
}

// Fill appends n copies of b
func (w *Writer) Fill(b byte, n int) *Writer {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, b)
	}
	return w
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}
