package script

import (
	"context"
	"errors"
	"testing"

	"RGBStd/internal/containers"
	"RGBStd/internal/containers/containerstest"
	"RGBStd/internal/rgb"
	"RGBStd/internal/validation"
)

// answerWasm exports "validate", returning the i32 constant 42.
var answerWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x0c, 0x01, 0x08, 'v', 'a', 'l', 'i', 'd', 'a', 't', 'e', 0x00, 0x00,
	0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, 0x2a, 0x0b,
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()

	p := New(context.Background())
	t.Cleanup(func() { p.Close(context.Background()) })

	return p
}

func TestLoadAndCall(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	lib := &rgb.Lib{Code: answerWasm}

	id, err := p.Load(ctx, lib)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if id != lib.ID() || !p.Has(id) {
		t.Fatal("library not registered under its id")
	}

	if again, err := p.Load(ctx, lib); err != nil || again != id {
		t.Fatalf("second load: %v", err)
	}

	results, err := p.Call(ctx, id, "validate")
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	if len(results) != 1 || uint32(results[0]) != 42 {
		t.Fatalf("results: %v", results)
	}

	if _, err := p.Call(ctx, id, "missing"); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("expected ErrNoEntry, got %v", err)
	}

	p.Unload(ctx, id)
	if _, err := p.Call(ctx, id, "validate"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	p := newTestPool(t)

	if _, err := p.Load(context.Background(), &rgb.Lib{Code: []byte("not wasm")}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	p := newTestPool(t)

	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})
	if err := p.Resolve(ctx, containers.NewIndexed(c)); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if !p.Has(c.Schema.Script[0]) {
		t.Fatal("schema library not loaded")
	}

	raw := containerstest.Raw(containerstest.Options{Bundles: 1, PerBundle: 1})
	raw.Scripts = nil

	missing, err := containers.New(raw)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var libErr *validation.MissingLibError
	if err := p.Resolve(ctx, containers.NewIndexed(missing)); !errors.As(err, &libErr) {
		t.Fatalf("expected MissingLibError, got %v", err)
	}
}
