package stash

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
)

// syncInterval is the interval between background WAL syncs.
const syncInterval = 100 * time.Millisecond

// db wraps Pebble. Writes use NoSync and a background goroutine flushes the
// WAL periodically; Close flushes once more.
type db struct {
	pebble   *pebble.DB    // pebble is the underlying database
	stopSync chan struct{} // stopSync stops the sync goroutine
	wg       sync.WaitGroup
}

// openDB opens or creates a database at path.
func openDB(path string) (*db, error) {
	opts := &pebble.Options{
		Cache:                       pebble.NewCache(16 << 20),
		MemTableSize:                8 << 20,
		MemTableStopWritesThreshold: 2,
	}

	p, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s:\n%w", path, err)
	}

	d := &db{pebble: p, stopSync: make(chan struct{})}
	d.startSyncLoop()

	return d, nil
}

// get returns a copy of the value, or nil when the key is absent.
func (d *db) get(key []byte) ([]byte, error) {
	value, closer, err := d.pebble.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

// has reports whether key is present.
func (d *db) has(key []byte) (bool, error) {
	_, closer, err := d.pebble.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, closer.Close()
}

// write applies every pair atomically.
func (d *db) write(pairs ...[2][]byte) error {
	batch := d.pebble.NewBatch()
	defer batch.Close()

	for _, kv := range pairs {
		if err := batch.Set(kv[0], kv[1], nil); err != nil {
			return err
		}
	}

	return batch.Commit(pebble.NoSync)
}

// scanPrefix calls fn for each key with the given prefix, in key order.
func (d *db) scanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := d.pebble.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// prefixUpperBound returns the exclusive upper bound of a prefix scan,
// or nil when the prefix is all 0xff.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}

// close stops the sync loop, flushes the WAL and closes the database.
func (d *db) close() error {
	close(d.stopSync)
	d.wg.Wait()

	if err := d.pebble.LogData(nil, pebble.Sync); err != nil {
		return fmt.Errorf("sync wal:\n%w", err)
	}

	return d.pebble.Close()
}

func (d *db) startSyncLoop() {
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(syncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_ = d.pebble.LogData(nil, pebble.Sync)
			case <-d.stopSync:
				return
			}
		}
	}()
}
