// Package stash persists received transfers.
//
// Keys:
//
//	t:<transfer id>                 container file
//	c:<contract id><transfer id>    empty, secondary index by contract
package stash

import (
	"bytes"
	"errors"
	"fmt"

	"RGBStd/internal/codec"
	"RGBStd/internal/containers"
	"RGBStd/internal/logger"
	"RGBStd/internal/rgb"
)

var (
	prefixTransfer = []byte("t:")
	prefixContract = []byte("c:")
)

var (
	// ErrNotFound is returned when a transfer is not in the stash.
	ErrNotFound = errors.New("transfer not found")

	// ErrNotTransfer is returned when storing a consignment without the transfer flag.
	ErrNotTransfer = errors.New("consignment is not a transfer")
)

// Stash is a Pebble-backed store of transfers. It is safe for concurrent use.
type Stash struct {
	db *db
}

// Open opens or creates a stash in dir.
func Open(dir string) (*Stash, error) {
	d, err := openDB(dir)
	if err != nil {
		return nil, err
	}

	return &Stash{db: d}, nil
}

// Put stores a transfer under its id and indexes it by contract.
// Storing the same transfer twice is a no-op.
func (s *Stash) Put(c *containers.Consignment) (containers.TransferID, error) {
	if !c.Transfer {
		return containers.TransferID{}, ErrNotTransfer
	}

	id, err := c.TransferID()
	if err != nil {
		return id, fmt.Errorf("compute transfer id:\n%w", err)
	}

	exists, err := s.db.has(transferKey(id))
	if err != nil {
		return id, fmt.Errorf("check transfer %s:\n%w", id, err)
	}
	if exists {
		return id, nil
	}

	data, err := codec.Encode(c)
	if err != nil {
		return id, fmt.Errorf("encode transfer %s:\n%w", id, err)
	}

	if err := s.db.write(
		[2][]byte{transferKey(id), data},
		[2][]byte{contractKey(c.ContractID(), id), nil},
	); err != nil {
		return id, fmt.Errorf("write transfer %s:\n%w", id, err)
	}

	logger.Debug("transfer stored", "id", id, "contract", c.ContractID(), "size", len(data))

	return id, nil
}

// Get loads and decodes a transfer.
func (s *Stash) Get(id containers.TransferID) (*containers.Consignment, error) {
	data, err := s.db.get(transferKey(id))
	if err != nil {
		return nil, fmt.Errorf("read transfer %s:\n%w", id, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	c, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode transfer %s:\n%w", id, err)
	}

	return c, nil
}

// Has reports whether a transfer is stored.
func (s *Stash) Has(id containers.TransferID) (bool, error) {
	return s.db.has(transferKey(id))
}

// ByContract returns the ids of the transfers of a contract in byte order.
func (s *Stash) ByContract(contract rgb.ContractID) ([]containers.TransferID, error) {
	prefix := contractKey(contract, containers.TransferID{})[:len(prefixContract)+len(contract)]

	var ids []containers.TransferID

	err := s.db.scanPrefix(prefix, func(key, _ []byte) error {
		rest := key[len(prefix):]
		if len(rest) != len(containers.TransferID{}) {
			return fmt.Errorf("malformed contract index key %x", key)
		}

		ids = append(ids, containers.TransferID(rest))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan contract %s:\n%w", contract, err)
	}

	return ids, nil
}

// Close flushes and closes the stash.
func (s *Stash) Close() error {
	return s.db.close()
}

func transferKey(id containers.TransferID) []byte {
	return append(bytes.Clone(prefixTransfer), id[:]...)
}

func contractKey(contract rgb.ContractID, id containers.TransferID) []byte {
	key := make([]byte, 0, len(prefixContract)+len(contract)+len(id))
	key = append(key, prefixContract...)
	key = append(key, contract[:]...)

	return append(key, id[:]...)
}
