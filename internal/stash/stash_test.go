package stash

import (
	"errors"
	"path/filepath"
	"testing"

	"RGBStd/internal/containers"
	"RGBStd/internal/containers/containerstest"
)

// newTestStash opens a stash in a temporary directory.
func newTestStash(t *testing.T) *Stash {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "stash"))
	if err != nil {
		t.Fatalf("open stash: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestPutGet(t *testing.T) {
	s := newTestStash(t)
	c := containerstest.Sample(containerstest.Options{Bundles: 2, PerBundle: 1, Seed: 3})

	id, err := s.Put(c)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	want, _ := c.TransferID()
	if id != want {
		t.Fatalf("put returned %s, want %s", id, want)
	}

	got, err := s.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if gotID, _ := got.TransferID(); gotID != id {
		t.Fatal("stored transfer has a different id")
	}

	if ok, err := s.Has(id); err != nil || !ok {
		t.Fatalf("has: %v %v", ok, err)
	}

	if _, err := s.Put(c); err != nil {
		t.Fatalf("second put: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := newTestStash(t)

	if _, err := s.Get(containers.TransferID{1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if ok, _ := s.Has(containers.TransferID{1}); ok {
		t.Fatal("missing transfer reported present")
	}
}

func TestByContract(t *testing.T) {
	s := newTestStash(t)

	a := containerstest.Raw(containerstest.Options{Bundles: 1, PerBundle: 1, Seed: 5})
	b := containerstest.Raw(containerstest.Options{Bundles: 1, PerBundle: 1, Seed: 5})
	b.Attachments[[32]byte{}] = nil

	other := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1, Seed: 6})

	for _, raw := range []containers.Consignment{a, b} {
		c, err := containers.New(raw)
		if err != nil {
			t.Fatalf("new: %v", err)
		}

		if _, err := s.Put(c); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	if _, err := s.Put(other); err != nil {
		t.Fatalf("put other: %v", err)
	}

	ids, err := s.ByContract(a.ContractID())
	if err != nil {
		t.Fatalf("by contract: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("got %d transfers, want 2", len(ids))
	}
}

func TestPutRejectsNonTransfer(t *testing.T) {
	s := newTestStash(t)

	raw := containerstest.Raw(containerstest.Options{Bundles: 1, PerBundle: 1})
	raw.Transfer = false

	c, err := containers.New(raw)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := s.Put(c); !errors.Is(err, ErrNotTransfer) {
		t.Fatalf("expected ErrNotTransfer, got %v", err)
	}
}

func TestPrefixUpperBound(t *testing.T) {
	if got := prefixUpperBound([]byte("c:")); string(got) != "c;" {
		t.Fatalf("got %q", got)
	}

	if got := prefixUpperBound([]byte{0x01, 0xff}); len(got) != 1 || got[0] != 0x02 {
		t.Fatalf("got %x", got)
	}

	if prefixUpperBound([]byte{0xff}) != nil {
		t.Fatal("all 0xff prefix should be unbounded")
	}
}
