package strict

// Hash32 is a 32-byte value written without a prefix.
type Hash32 [32]byte

// StrictEncode writes the array.
func (h Hash32) StrictEncode(w *Writer) { w.Array32(h) }

// U8 is a single byte value.
type U8 uint8

// StrictEncode writes the byte.
func (v U8) StrictEncode(w *Writer) { w.U8(uint8(v)) }

// U16 is a little-endian uint16 value.
type U16 uint16

// StrictEncode writes the value.
func (v U16) StrictEncode(w *Writer) { w.U16(uint16(v)) }

// Bool is a boolean value.
type Bool bool

// StrictEncode writes the value as a single byte.
func (v Bool) StrictEncode(w *Writer) { w.Bool(bool(v)) }

// Blob is a byte string with a u16 length prefix.
type Blob []byte

// StrictEncode writes the prefixed bytes.
func (b Blob) StrictEncode(w *Writer) { w.Bytes16(b) }

// Func adapts a plain function to Encodable.
type Func func(w *Writer)

// StrictEncode calls f.
func (f Func) StrictEncode(w *Writer) { f(w) }
