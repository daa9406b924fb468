// Package commit implements the tagged hash engine behind every
// content-addressed identifier of the library.
//
// A commitment is a BIP-340 style tagged SHA-256: the engine is primed with
// sha256(tag) twice, so identifiers minted under different tags live in
// disjoint spaces. Collections are committed in canonical order, which makes
// the result independent of how a caller happened to build them.
package commit

import (
	"bytes"
	"errors"
	"fmt"
	"hash"
	"sort"

	sha256 "github.com/minio/sha256-simd"

	"RGBStd/internal/strict"
)

// ErrSizeLimit is returned when a committed collection exceeds its bound.
var ErrSizeLimit = strict.ErrSizeLimit

// Engine feeds canonical serializations into a tagged SHA-256.
type Engine struct {
	hasher hash.Hash // hasher is the primed SHA-256 state
	err    error     // err is the first failure, sticky
}

// NewEngine creates an engine primed with the given domain tag.
func NewEngine(tag string) *Engine {
	tagHash := sha256.Sum256([]byte(tag))

	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])

	return &Engine{hasher: h}
}

// Err returns the first error recorded by the engine.
func (e *Engine) Err() error {
	return e.err
}

// CommitToSerialized feeds the strict serialization of v.
func (e *Engine) CommitToSerialized(v strict.Encodable) {
	if e.err != nil {
		return
	}

	data, err := strict.Serialize(v)
	if err != nil {
		e.err = err
		return
	}

	e.hasher.Write(data)
}

// CommitToSet feeds an order-independent commitment to a set.
// Members are serialized, sorted by their bytes and deduplicated, then written
// after a count prefix whose width is given by the bound.
func (e *Engine) CommitToSet(name string, bound strict.Bound, items []strict.Encodable) {
	if e.err != nil {
		return
	}

	data, err := CanonicalSet(bound, items)
	if err != nil {
		e.err = fmt.Errorf("%s:\n%w", name, err)
		return
	}

	e.hasher.Write(data)
}

// CommitToMap feeds an order-independent commitment to a map.
// Entries are ordered by the serialized key; keys must be unique.
func (e *Engine) CommitToMap(name string, bound strict.Bound, entries []Entry) {
	if e.err != nil {
		return
	}

	data, err := CanonicalMap(bound, entries)
	if err != nil {
		e.err = fmt.Errorf("%s:\n%w", name, err)
		return
	}

	e.hasher.Write(data)
}

// Finish returns the digest, or the first error recorded while committing.
func (e *Engine) Finish() ([32]byte, error) {
	if e.err != nil {
		return [32]byte{}, e.err
	}

	var out [32]byte
	e.hasher.Sum(out[:0])

	return out, nil
}

// Tagged computes the tagged hash of a single value.
func Tagged(tag string, v strict.Encodable) ([32]byte, error) {
	e := NewEngine(tag)
	e.CommitToSerialized(v)

	return e.Finish()
}

// MustTagged is Tagged for values whose serialization cannot exceed a bound.
func MustTagged(tag string, v strict.Encodable) [32]byte {
	out, err := Tagged(tag, v)
	if err != nil {
		panic("commit: " + tag + ": " + err.Error())
	}

	return out
}

// Entry is a single map entry taking part in a map commitment.
type Entry struct {
	Key   strict.Encodable // Key determines the entry order
	Value strict.Encodable // Value is written right after its key
}

// ErrDuplicateKey is returned when two map entries serialize to the same key.
var ErrDuplicateKey = errors.New("duplicate map key")

// CanonicalSet returns the canonical serialization of a set.
func CanonicalSet(bound strict.Bound, items []strict.Encodable) ([]byte, error) {
	members := make([][]byte, 0, len(items))

	for _, item := range items {
		data, err := strict.Serialize(item)
		if err != nil {
			return nil, err
		}

		members = append(members, data)
	}

	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i], members[j]) < 0
	})

	members = dedup(members)

	w := strict.NewWriter()
	w.Len(len(members), bound)

	for _, m := range members {
		w.Raw(m)
	}

	if err := w.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// CanonicalMap returns the canonical serialization of a map.
func CanonicalMap(bound strict.Bound, entries []Entry) ([]byte, error) {
	type pair struct {
		key   []byte
		value []byte
	}

	pairs := make([]pair, 0, len(entries))

	for _, entry := range entries {
		key, err := strict.Serialize(entry.Key)
		if err != nil {
			return nil, err
		}

		value, err := strict.Serialize(entry.Value)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, pair{key: key, value: value})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].key, pairs[j].key) < 0
	})

	for i := 1; i < len(pairs); i++ {
		if bytes.Equal(pairs[i-1].key, pairs[i].key) {
			return nil, fmt.Errorf("%w: %x", ErrDuplicateKey, pairs[i].key)
		}
	}

	w := strict.NewWriter()
	w.Len(len(pairs), bound)

	for _, p := range pairs {
		w.Raw(p.key)
		w.Raw(p.value)
	}

	if err := w.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// dedup removes adjacent equal members from a sorted slice.
func dedup(sorted [][]byte) [][]byte {
	if len(sorted) < 2 {
		return sorted
	}

	out := sorted[:1]
	for _, m := range sorted[1:] {
		if !bytes.Equal(m, out[len(out)-1]) {
			out = append(out, m)
		}
	}

	return out
}
