package codec

// Flags8, Flags16 and Flags32 are flags words addressed by bit position.
// Each protocol keeps its own table of positions next to its decoder.
type Flags8 uint8

type Flags16 uint16

type Flags32 uint32

func (f Flags8) Has(bit uint) bool {
	return f&(1<<bit) != 0
}

func (f Flags8) Field(pos, width uint) uint8 {
	return uint8(Field(uint32(f), pos, width))
}

func (f Flags8) With(bit uint, set bool) Flags8 {
	if set {
		return f | 1<<bit
	}
	return f &^ (1 << bit)
}

func (f Flags16) Has(bit uint) bool {
	return f&(1<<bit) != 0
}

func (f Flags16) Field(pos, width uint) uint16 {
	return uint16(Field(uint32(f), pos, width))
}

func (f Flags16) With(bit uint, set bool) Flags16 {
	if set {
		return f | 1<<bit
	}
	return f &^ (1 << bit)
}

func (f Flags32) Has(bit uint) bool {
	return f&(1<<bit) != 0
}

func (f Flags32) Field(pos, width uint) uint32 {
	return Field(uint32(f), pos, width)
}

func (f Flags32) With(bit uint, set bool) Flags32 {
	if set {
		return f | 1<<bit
	}
	return f &^ (1 << bit)
}

func (r *Reader) Flags8(field string) (Flags8, error) {
	v, err := r.Uint8(field)
	return Flags8(v), err
}

func (r *Reader) Flags16(field string) (Flags16, error) {
	v, err := r.Uint16(field)
	return Flags16(v), err
}

func (r *Reader) Flags32(field string) (Flags32, error) {
	v, err := r.Uint32(field)
	return Flags32(v), err
}
