package containers_test

import (
	"errors"
	"testing"

	"RGBStd/internal/containers"
	"RGBStd/internal/containers/containerstest"
	"RGBStd/internal/rgb"
	"RGBStd/internal/validation"
)

// TestBundleIndexSize tests that every known transition is indexed exactly once.
func TestBundleIndexSize(t *testing.T) {
	c := containerstest.Sample(sampleOpts)
	idx := containers.NewBundleIndex(c)

	want := sampleOpts.Bundles * sampleOpts.PerBundle
	if idx.Len() != want {
		t.Fatalf("index size: got %d, want %d", idx.Len(), want)
	}

	for i := range c.Bundles {
		ab := &c.Bundles[i]
		for j := range ab.Bundle.KnownTransitions {
			w, ok := idx.WitnessID(ab.Bundle.KnownTransitions[j].ID())
			if !ok || w != ab.Anchor.Witness {
				t.Fatalf("bundle %d transition %d: witness %v, %v", i, j, w, ok)
			}
		}
	}

	if _, ok := idx.WitnessID(c.Genesis.ID()); ok {
		t.Fatal("genesis should not be indexed")
	}
}

// TestOperationLookup tests genesis, transition, extension and unknown lookups.
func TestOperationLookup(t *testing.T) {
	c := containerstest.Sample(sampleOpts)
	ic := containers.NewIndexed(c)

	op, ok := ic.Operation(c.Genesis.ID())
	if !ok || op.Kind() != rgb.KindGenesis {
		t.Fatal("genesis not found")
	}

	tr := &c.Bundles[1].Bundle.KnownTransitions[1]
	op, ok = ic.Operation(tr.ID())
	if !ok || op.Kind() != rgb.KindTransition || op.ID() != tr.ID() {
		t.Fatal("transition not found")
	}

	ext := &c.Extensions[0]
	op, ok = ic.Operation(ext.ID())
	if !ok || op.Kind() != rgb.KindExtension {
		t.Fatal("extension not found")
	}

	if _, ok := ic.Operation(rgb.OpID{0xde, 0xad}); ok {
		t.Fatal("unknown id should not be found")
	}

	w, ok := ic.OpWitnessID(tr.ID())
	if !ok || w != c.Bundles[1].Anchor.Witness {
		t.Fatal("wrong witness for transition")
	}
}

// TestBundleIDsIterator tests that the iterator yields every bundle once, in
// the order of the consignment's bundles, and cannot be restarted.
func TestBundleIDsIterator(t *testing.T) {
	c := containerstest.Sample(sampleOpts)
	ic := containers.NewIndexed(c)

	it := ic.BundleIDs()

	var got []rgb.BundleID
	for {
		id, ok := it.Next()
		if !ok {
			break
		}

		if _, ok := ic.AnchoredBundle(id); !ok {
			t.Fatalf("bundle %s not resolvable", id)
		}
		got = append(got, id)
	}

	if len(got) != len(c.Bundles) {
		t.Fatalf("yielded %d bundles, want %d", len(got), len(c.Bundles))
	}

	for i := range c.Bundles {
		if want := c.Bundles[i].BundleID(); got[i] != want {
			t.Fatalf("position %d: got %s, want %s", i, got[i], want)
		}
	}

	if _, ok := it.Next(); ok {
		t.Fatal("exhausted iterator yielded again")
	}
}

// TestAnchoredBundleIsCopy tests that returned bundles do not alias the consignment.
func TestAnchoredBundleIsCopy(t *testing.T) {
	c := containerstest.Sample(sampleOpts)
	ic := containers.NewIndexed(c)

	id := c.Bundles[0].BundleID()
	ab, ok := ic.AnchoredBundle(id)
	if !ok {
		t.Fatal("bundle not found")
	}

	ab.Anchor.MPCProof[0] = 0xff
	ab.Bundle.KnownTransitions = nil

	again, _ := ic.AnchoredBundle(id)
	if again.Anchor.MPCProof[0] == 0xff || len(again.Bundle.KnownTransitions) != sampleOpts.PerBundle {
		t.Fatal("modifying a returned bundle changed the consignment")
	}
}

// TestTerminalsConcealed tests that terminals are reported concealed.
func TestTerminalsConcealed(t *testing.T) {
	c := containerstest.Sample(sampleOpts)
	ic := containers.NewIndexed(c)

	terminals := ic.Terminals()
	if len(terminals) != 1 {
		t.Fatalf("terminals: got %d, want 1", len(terminals))
	}

	for bundleID, term := range c.Terminals {
		if terminals[0].Bundle != bundleID || terminals[0].Seal != term.Seals[0].Conceal() {
			t.Fatal("terminal does not match concealed seal")
		}
	}
}

// TestProgramAndTypes tests script and type system resolution.
func TestProgramAndTypes(t *testing.T) {
	c := containerstest.Sample(sampleOpts)
	ic := containers.NewIndexed(c)

	program, err := ic.Program(c.Schema.Script)
	if err != nil {
		t.Fatalf("program: %v", err)
	}

	if len(program.Libs) != 1 || program.Libs[0].ID() != c.Schema.Script[0] {
		t.Fatal("wrong program libraries")
	}

	missing := rgb.LibID{0x01}
	_, err = ic.Program([]rgb.LibID{c.Schema.Script[0], missing})

	var libErr *validation.MissingLibError
	if !errors.As(err, &libErr) || libErr.ID != missing {
		t.Fatalf("expected MissingLibError, got %v", err)
	}

	if ts, ok := ic.TypeSystem(c.Schema.TypeSystem); !ok || ts.ID() != c.Types.ID() {
		t.Fatal("type system not found")
	}

	if _, ok := ic.TypeSystem(rgb.TypeSysID{0x02}); ok {
		t.Fatal("unknown type system found")
	}
}

// TestAssetTagsCopy tests that the returned map can be modified safely.
func TestAssetTagsCopy(t *testing.T) {
	c := containerstest.Sample(sampleOpts)
	ic := containers.NewIndexed(c)

	tags := ic.AssetTags()
	delete(tags, 4000)

	if len(ic.AssetTags()) != 1 {
		t.Fatal("asset tags were modified through the returned map")
	}
}
