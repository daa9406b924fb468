// Package baid58 renders 32-byte identifiers as chunked, checksummed base58
// strings of the form "<hri>:<chunk>-<chunk>-...#<checksum>".
package baid58

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

const (
	// PayloadSize is the size of an encoded identifier.
	PayloadSize = 32

	// checksumSize is the number of checksum bytes kept from the keyed hash.
	checksumSize = 4

	// hriSeparator separates the human-readable identifier from the payload.
	hriSeparator = ':'

	// checksumSeparator separates the payload from the checksum.
	checksumSeparator = '#'

	// alphabet is the bitcoin base58 alphabet.
	alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
)

var (
	// ErrInvalidHRI is returned when the human-readable prefix is missing or wrong.
	ErrInvalidHRI = errors.New("invalid human-readable identifier")

	// ErrInvalidChunking is returned when chunk separators are misplaced.
	ErrInvalidChunking = errors.New("invalid chunk separators")

	// ErrInvalidCharacter is returned when the string has non-base58 characters.
	ErrInvalidCharacter = errors.New("invalid base58 character")

	// ErrInvalidLength is returned when the decoded payload is not 32 bytes.
	ErrInvalidLength = errors.New("invalid payload length")

	// ErrChecksumMismatch is returned when the checksum does not match the payload.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Chunking describes how the payload is split into dash-separated groups.
type Chunking struct {
	First int  // First is the length of the leading chunk
	Rest  int  // Rest is the length of every following chunk
	Sep   byte // Sep is the chunk separator
}

// Chunking32 is the chunking used for 32-byte identifiers.
var Chunking32 = Chunking{First: 6, Rest: 8, Sep: '-'}

// Format renders payload with the given human-readable identifier.
func Format(hri string, payload [PayloadSize]byte, chunking Chunking) string {
	encoded := base58.Encode(payload[:])
	sum := Checksum(hri, payload)

	var b strings.Builder
	b.WriteString(hri)
	b.WriteByte(hriSeparator)
	b.WriteString(chunk(encoded, chunking))
	b.WriteByte(checksumSeparator)
	b.WriteString(base58.Encode(sum[:]))

	return b.String()
}

// Parse decodes a string produced by Format.
// Errors wrap one of the package sentinels so callers can tell them apart.
func Parse(hri string, s string, chunking Chunking) ([PayloadSize]byte, error) {
	var payload [PayloadSize]byte

	prefix := hri + string(hriSeparator)
	if !strings.HasPrefix(s, prefix) {
		return payload, fmt.Errorf("%w: want prefix %q", ErrInvalidHRI, prefix)
	}

	body, sumText, found := strings.Cut(s[len(prefix):], string(checksumSeparator))
	if !found {
		return payload, fmt.Errorf("%w: missing %q before checksum", ErrInvalidChunking, checksumSeparator)
	}

	if err := checkCharacters(body, chunking.Sep); err != nil {
		return payload, err
	}

	if err := checkCharacters(sumText, 0); err != nil {
		return payload, err
	}

	joined := strings.ReplaceAll(body, string(chunking.Sep), "")
	if joined == "" || chunk(joined, chunking) != body {
		return payload, fmt.Errorf("%w: %q", ErrInvalidChunking, body)
	}

	data, err := base58.Decode(joined)
	if err != nil {
		return payload, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}

	if len(data) != PayloadSize {
		return payload, fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(data), PayloadSize)
	}

	copy(payload[:], data)

	if sumText == "" {
		return payload, fmt.Errorf("%w: empty checksum", ErrChecksumMismatch)
	}

	gotSum, err := base58.Decode(sumText)
	if err != nil {
		return payload, fmt.Errorf("%w: %v", ErrInvalidCharacter, err)
	}

	wantSum := Checksum(hri, payload)
	if string(gotSum) != string(wantSum[:]) {
		return payload, fmt.Errorf("%w: got %x, want %x", ErrChecksumMismatch, gotSum, wantSum)
	}

	return payload, nil
}

// Checksum returns the first four bytes of blake3 keyed by blake3(hri) over payload.
func Checksum(hri string, payload [PayloadSize]byte) [checksumSize]byte {
	key := blake3.Sum256([]byte(hri))

	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		// The key is always 32 bytes.
		panic("baid58: keyed hasher: " + err.Error())
	}

	h.Write(payload[:])

	var digest [32]byte
	h.Sum(digest[:0])

	var sum [checksumSize]byte
	copy(sum[:], digest[:checksumSize])

	return sum
}

// chunk inserts separators into s following the chunking layout.
func chunk(s string, c Chunking) string {
	if c.First <= 0 || c.Rest <= 0 || len(s) <= c.First {
		return s
	}

	var b strings.Builder
	b.WriteString(s[:c.First])

	for rest := s[c.First:]; len(rest) > 0; {
		n := min(c.Rest, len(rest))

		b.WriteByte(c.Sep)
		b.WriteString(rest[:n])
		rest = rest[n:]
	}

	return b.String()
}

// checkCharacters verifies every character is base58 or the chunk separator.
func checkCharacters(s string, sep byte) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if sep != 0 && c == sep {
			continue
		}

		if strings.IndexByte(alphabet, c) < 0 {
			return fmt.Errorf("%w: %q at offset %d", ErrInvalidCharacter, c, i)
		}
	}

	return nil
}
