package strict

import (
	"bytes"
	"errors"
	"testing"
)

// TestWriterLittleEndian checks the fixed-width encodings.
func TestWriterLittleEndian(t *testing.T) {
	w := NewWriter()
	w.U8(0x01)
	w.U16(0x0302)
	w.U32(0x07060504)
	w.Bool(true)
	w.I64(-1)

	want := []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x01,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}

	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("bytes: got %x, want %x", w.Bytes(), want)
	}
}

// TestLenPrefixWidth checks that each bound writes its own prefix width.
func TestLenPrefixWidth(t *testing.T) {
	tests := []struct {
		bound Bound
		want  []byte
	}{
		{Tiny, []byte{0x05}},
		{Small, []byte{0x05, 0x00}},
		{Medium, []byte{0x05, 0x00, 0x00}},
		{Large, []byte{0x05, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		w := NewWriter()
		w.Len(5, tt.bound)

		if !bytes.Equal(w.Bytes(), tt.want) {
			t.Errorf("%s: got %x, want %x", tt.bound, w.Bytes(), tt.want)
		}
	}
}

// TestSizeLimitSticky checks that an oversized value fails and later writes are ignored.
func TestSizeLimitSticky(t *testing.T) {
	w := NewWriter()
	w.String8(string(make([]byte, 256)))
	w.U8(1)

	if !errors.Is(w.Err(), ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", w.Err())
	}

	if len(w.Bytes()) != 0 {
		t.Fatalf("writer kept %d bytes after failure", len(w.Bytes()))
	}

	w.Fail(errors.New("later"))
	if !errors.Is(w.Err(), ErrSizeLimit) {
		t.Fatal("first error must stay")
	}
}

// TestBoundMax checks the maximum element counts.
func TestBoundMax(t *testing.T) {
	if Tiny.Max() != 255 || Small.Max() != 65535 || Medium.Max() != 1<<24-1 || Large.Max() != 1<<32-1 {
		t.Fatal("unexpected bound maxima")
	}

	if err := Tiny.Check(255); err != nil {
		t.Fatalf("255 should fit tiny: %v", err)
	}

	if err := Tiny.Check(256); !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("256 should not fit tiny: %v", err)
	}
}

// TestSerialize checks the helper on adapters.
func TestSerialize(t *testing.T) {
	data, err := Serialize(Blob{0xaa, 0xbb})
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	if !bytes.Equal(data, []byte{0x02, 0x00, 0xaa, 0xbb}) {
		t.Fatalf("blob: got %x", data)
	}

	if _, err := Serialize(Blob(make([]byte, 1<<16))); !errors.Is(err, ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
}
