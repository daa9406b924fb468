package codec

import (
	"bytes"
	"errors"
	"testing"

	"RGBStd/internal/containers/containerstest"
	"RGBStd/internal/rgb"
)

var opts = containerstest.Options{Bundles: 2, PerBundle: 3, Extensions: 1, Attachments: 2, Seed: 42}

// TestRoundTrip tests that decoding an encoded container keeps the transfer id.
func TestRoundTrip(t *testing.T) {
	c := containerstest.Sample(opts)
	c.Signatures[rgb.ContentID{Kind: rgb.ContentGenesis, ID: c.Genesis.ID()}] = rgb.ContentSigs{
		{PublicKey: []byte{1, 2}, Signature: []byte{3, 4}},
	}

	want, err := c.TransferID()
	if err != nil {
		t.Fatalf("transfer id: %v", err)
	}

	data, err := Encode(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, err := decoded.TransferID()
	if err != nil {
		t.Fatalf("transfer id after decode: %v", err)
	}

	if got != want {
		t.Fatalf("transfer id changed: %s vs %s", got, want)
	}

	if len(decoded.Attachments) != opts.Attachments || len(decoded.Signatures) != 1 {
		t.Fatal("maps lost in round trip")
	}
}

// TestEncodeDeterministic tests that equal consignments encode to equal bytes.
func TestEncodeDeterministic(t *testing.T) {
	a, err := Encode(containerstest.Sample(opts))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	b, err := Encode(containerstest.Sample(opts))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if !bytes.Equal(a, b) {
		t.Fatal("encoding is not deterministic")
	}
}

// TestDecodeErrors tests the header checks.
func TestDecodeErrors(t *testing.T) {
	data, err := Encode(containerstest.Sample(opts))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	badMagic := bytes.Clone(data)
	badMagic[0] = 'X'

	badVersion := bytes.Clone(data)
	badVersion[4] = 9

	badSum := bytes.Clone(data)
	badSum[5] ^= 0xff

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", data[:3], ErrBadMagic},
		{"magic", badMagic, ErrBadMagic},
		{"version", badVersion, ErrUnsupportedVersion},
		{"checksum", badSum, ErrChecksumMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
