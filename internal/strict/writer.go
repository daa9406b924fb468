package strict

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrSizeLimit is returned when a collection or byte string exceeds its bound.
var ErrSizeLimit = errors.New("size limit exceeded")

// Bound is the confinement of a length-prefixed collection.
// It defines both the maximum element count and the width of the prefix.
type Bound uint8

const (
	// Tiny collections hold at most 255 elements (u8 prefix).
	Tiny Bound = iota

	// Small collections hold at most 65535 elements (u16 prefix).
	Small

	// Medium collections hold at most 2^24-1 elements (u24 prefix).
	Medium

	// Large collections hold at most 2^32-1 elements (u32 prefix).
	Large
)

// Max returns the maximum number of elements allowed by the bound.
func (b Bound) Max() uint64 {
	return 1<<(8*b.PrefixLen()) - 1
}

// PrefixLen returns the width of the length prefix in bytes.
func (b Bound) PrefixLen() int {
	return int(b) + 1
}

// Check returns ErrSizeLimit if n exceeds the bound.
func (b Bound) Check(n int) error {
	if n < 0 || uint64(n) > b.Max() {
		return fmt.Errorf("%w: %d > %d", ErrSizeLimit, n, b.Max())
	}

	return nil
}

// String returns the bound name.
func (b Bound) String() string {
	switch b {
	case Tiny:
		return "tiny"
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return "unknown"
	}
}

// Encodable is implemented by every type taking part in a commitment.
type Encodable interface {
	// StrictEncode appends the canonical binary form to w.
	StrictEncode(w *Writer)
}

// Writer accumulates the canonical little-endian serialization of values.
// The first error is sticky: later writes are ignored once it is set.
type Writer struct {
	buf []byte // buf holds the serialized bytes
	err error  // err is the first bound violation
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 128)}
}

// Bytes returns the serialized bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Err returns the first error recorded by the writer.
func (w *Writer) Err() error {
	return w.err
}

// Fail records err unless an earlier error is already set.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// U8 writes a single byte.
func (w *Writer) U8(v uint8) {
	if w.err != nil {
		return
	}

	w.buf = append(w.buf, v)
}

// Bool writes 0x01 for true and 0x00 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

// U16 writes a little-endian uint16.
func (w *Writer) U16(v uint16) {
	if w.err != nil {
		return
	}

	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 writes a little-endian uint32.
func (w *Writer) U32(v uint32) {
	if w.err != nil {
		return
	}

	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// U64 writes a little-endian uint64.
func (w *Writer) U64(v uint64) {
	if w.err != nil {
		return
	}

	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// I64 writes a little-endian two's complement int64.
func (w *Writer) I64(v int64) {
	w.U64(uint64(v))
}

// Array32 writes a fixed 32-byte array without a prefix.
func (w *Writer) Array32(v [32]byte) {
	if w.err != nil {
		return
	}

	w.buf = append(w.buf, v[:]...)
}

// Raw appends bytes as-is.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}

	w.buf = append(w.buf, b...)
}

// Len writes a collection length with the prefix width of the bound.
func (w *Writer) Len(n int, bound Bound) {
	if w.err != nil {
		return
	}

	if err := bound.Check(n); err != nil {
		w.err = err
		return
	}

	v := uint64(n)
	for i := 0; i < bound.PrefixLen(); i++ {
		w.buf = append(w.buf, byte(v>>(8*i)))
	}
}

// Bytes16 writes a byte string with a u16 length prefix.
func (w *Writer) Bytes16(b []byte) {
	w.Len(len(b), Small)
	w.Raw(b)
}

// Bytes32 writes a byte string with a u32 length prefix.
func (w *Writer) Bytes32(b []byte) {
	w.Len(len(b), Large)
	w.Raw(b)
}

// String8 writes an ASCII/UTF-8 string with a u8 length prefix.
func (w *Writer) String8(s string) {
	w.Len(len(s), Tiny)
	w.Raw([]byte(s))
}

// Serialize returns the canonical serialization of v.
func Serialize(v Encodable) ([]byte, error) {
	w := NewWriter()
	v.StrictEncode(w)

	if w.err != nil {
		return nil, w.err
	}

	return w.buf, nil
}
