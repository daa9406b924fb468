// Package codec reads and writes consignment container files.
//
// File layout:
//
//	magic "RGBC" | version u8 | blake3(body) 32 bytes | zstd(body)
//
// where body is the core deterministic CBOR encoding of the consignment.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"RGBStd/internal/containers"
	"RGBStd/internal/rgb"
)

const (
	// FormatVersion is the container file version written by Encode.
	FormatVersion uint8 = 1

	// checksumSize is the size of the body checksum.
	checksumSize = 32

	// maxBodySize caps the decompressed body.
	maxBodySize = 256 << 20
)

// magic starts every container file.
var magic = []byte("RGBC")

var (
	// ErrBadMagic is returned when data does not start with the container magic.
	ErrBadMagic = errors.New("not a consignment container")

	// ErrUnsupportedVersion is returned for an unknown file format version.
	ErrUnsupportedVersion = errors.New("unsupported container format version")

	// ErrChecksumMismatch is returned when the body does not match its checksum.
	ErrChecksumMismatch = errors.New("container checksum mismatch")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		MaxArrayElements: 1 << 24,
		MaxMapPairs:      1 << 24,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes a consignment into a container file.
func Encode(c *containers.Consignment) ([]byte, error) {
	body, err := encMode.Marshal(toWire(c))
	if err != nil {
		return nil, fmt.Errorf("marshal consignment:\n%w", err)
	}

	compressed, err := compress(body)
	if err != nil {
		return nil, fmt.Errorf("compress body:\n%w", err)
	}

	sum := blake3.Sum256(body)

	out := make([]byte, 0, len(magic)+1+checksumSize+len(compressed))
	out = append(out, magic...)
	out = append(out, FormatVersion)
	out = append(out, sum[:]...)
	out = append(out, compressed...)

	return out, nil
}

// Decode parses a container file and validates the consignment it holds.
func Decode(data []byte) (*containers.Consignment, error) {
	header := len(magic) + 1 + checksumSize

	if len(data) < header || !bytes.Equal(data[:len(magic)], magic) {
		return nil, ErrBadMagic
	}

	if v := data[len(magic)]; v != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	body, err := decompress(data[header:])
	if err != nil {
		return nil, fmt.Errorf("decompress body:\n%w", err)
	}

	sum := blake3.Sum256(body)
	if !bytes.Equal(sum[:], data[len(magic)+1:header]) {
		return nil, ErrChecksumMismatch
	}

	var w wireConsignment
	if err := decMode.Unmarshal(body, &w); err != nil {
		return nil, fmt.Errorf("unmarshal consignment:\n%w", err)
	}

	c, err := containers.New(w.consignment())
	if err != nil {
		return nil, fmt.Errorf("validate consignment:\n%w", err)
	}

	return c, nil
}

// compress compresses data using zstd.
func compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// decompress decompresses zstd data, refusing bodies above maxBodySize.
func decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

// wireConsignment is the CBOR form of a consignment. Maps keyed by
// 32-byte ids are carried as entry lists.
type wireConsignment struct {
	Version     uint8                               `cbor:"1,keyasint"`
	Transfer    bool                                `cbor:"2,keyasint"`
	Schema      rgb.Schema                          `cbor:"3,keyasint"`
	Ifaces      []rgb.IfacePair                     `cbor:"4,keyasint,omitempty"`
	Supplements []rgb.Supplement                    `cbor:"5,keyasint,omitempty"`
	AssetTags   map[rgb.AssignmentType]rgb.AssetTag `cbor:"6,keyasint,omitempty"`
	Genesis     rgb.Genesis                         `cbor:"7,keyasint"`
	Terminals   []wireTerminal                      `cbor:"8,keyasint,omitempty"`
	Bundles     []rgb.AnchoredBundle                `cbor:"9,keyasint,omitempty"`
	Extensions  []rgb.Extension                     `cbor:"10,keyasint,omitempty"`
	Attachments []wireAttachment                    `cbor:"11,keyasint,omitempty"`
	Signatures  []wireSignatures                    `cbor:"12,keyasint,omitempty"`
	Types       rgb.TypeSystem                      `cbor:"13,keyasint"`
	Scripts     []rgb.Lib                           `cbor:"14,keyasint,omitempty"`
}

type wireTerminal struct {
	Bundle rgb.BundleID     `cbor:"1,keyasint"`
	Seals  []rgb.XChainSeal `cbor:"2,keyasint"`
}

type wireAttachment struct {
	ID   rgb.AttachID `cbor:"1,keyasint"`
	Data []byte       `cbor:"2,keyasint"`
}

type wireSignatures struct {
	Content rgb.ContentID   `cbor:"1,keyasint"`
	Sigs    rgb.ContentSigs `cbor:"2,keyasint"`
}

// toWire converts a consignment to its CBOR form. Entry lists are emitted in
// key order so equal consignments encode to equal bytes.
func toWire(c *containers.Consignment) *wireConsignment {
	w := &wireConsignment{
		Version:     c.Version,
		Transfer:    c.Transfer,
		Schema:      c.Schema,
		Ifaces:      c.Ifaces,
		Supplements: c.Supplements,
		AssetTags:   c.AssetTags,
		Genesis:     c.Genesis,
		Bundles:     c.Bundles,
		Extensions:  c.Extensions,
		Types:       c.Types,
		Scripts:     c.Scripts,
	}

	for _, id := range sortedKeys(c.Terminals) {
		w.Terminals = append(w.Terminals, wireTerminal{Bundle: id, Seals: c.Terminals[id].Seals})
	}

	for _, id := range sortedKeys(c.Attachments) {
		w.Attachments = append(w.Attachments, wireAttachment{ID: id, Data: c.Attachments[id]})
	}

	for _, id := range sortedContentIDs(c.Signatures) {
		w.Signatures = append(w.Signatures, wireSignatures{Content: id, Sigs: c.Signatures[id]})
	}

	return w
}

// consignment converts the CBOR form back. Duplicate entries collapse and the
// last one wins.
func (w *wireConsignment) consignment() containers.Consignment {
	c := containers.Consignment{
		Version:     w.Version,
		Transfer:    w.Transfer,
		Schema:      w.Schema,
		Ifaces:      w.Ifaces,
		Supplements: w.Supplements,
		AssetTags:   w.AssetTags,
		Genesis:     w.Genesis,
		Terminals:   make(map[rgb.BundleID]rgb.Terminal, len(w.Terminals)),
		Bundles:     w.Bundles,
		Extensions:  w.Extensions,
		Attachments: make(map[rgb.AttachID][]byte, len(w.Attachments)),
		Signatures:  make(map[rgb.ContentID]rgb.ContentSigs, len(w.Signatures)),
		Types:       w.Types,
		Scripts:     w.Scripts,
	}

	for _, t := range w.Terminals {
		c.Terminals[t.Bundle] = rgb.Terminal{Seals: t.Seals}
	}

	for _, a := range w.Attachments {
		c.Attachments[a.ID] = a.Data
	}

	for _, s := range w.Signatures {
		c.Signatures[s.Content] = s.Sigs
	}

	return c
}

// sortedKeys returns the keys of a map keyed by 32-byte ids in byte order.
func sortedKeys[K ~[32]byte, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b K) int {
		return bytes.Compare(a[:], b[:])
	})

	return keys
}

// sortedContentIDs returns the content ids of a signature map in serialized order.
func sortedContentIDs(m map[rgb.ContentID]rgb.ContentSigs) []rgb.ContentID {
	keys := make([]rgb.ContentID, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b rgb.ContentID) int {
		return bytes.Compare(a.Bytes(), b.Bytes())
	})

	return keys
}
