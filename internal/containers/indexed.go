package containers

import (
	"maps"
	"slices"
	"time"

	"RGBStd/internal/logger"
	"RGBStd/internal/rgb"
	"RGBStd/internal/validation"
)

// BundleIndex maps every operation known to a consignment's bundles to the
// witness anchoring its bundle. It is derived from the consignment alone and
// never changes after construction.
type BundleIndex struct {
	opWitness map[rgb.OpID]rgb.WitnessID // opWitness maps operation to witness
}

// NewBundleIndex scans the anchored bundles of c once.
func NewBundleIndex(c *Consignment) *BundleIndex {
	idx := &BundleIndex{opWitness: make(map[rgb.OpID]rgb.WitnessID)}

	scanBundles(c, func(ab *rgb.AnchoredBundle, id rgb.OpID, _ *rgb.Transition) {
		idx.insert(id, ab.Anchor.WitnessID())
	})

	return idx
}

// WitnessID returns the witness of the bundle holding the operation.
func (x *BundleIndex) WitnessID(id rgb.OpID) (rgb.WitnessID, bool) {
	w, ok := x.opWitness[id]
	return w, ok
}

// Len returns the number of indexed operations.
func (x *BundleIndex) Len() int {
	return len(x.opWitness)
}

// insert records an operation. An operation belongs to a single bundle, so a
// second witness for the same id is logged and replaces the first.
func (x *BundleIndex) insert(id rgb.OpID, witness rgb.WitnessID) {
	if prev, ok := x.opWitness[id]; ok && prev != witness {
		logger.Warn("operation anchored by several witnesses",
			"opid", id,
			"previous", prev,
			"witness", witness,
		)
	}

	x.opWitness[id] = witness
}

// scanBundles calls fn for every known transition of every anchored bundle.
func scanBundles(c *Consignment, fn func(ab *rgb.AnchoredBundle, id rgb.OpID, t *rgb.Transition)) {
	for i := range c.Bundles {
		ab := &c.Bundles[i]

		for j := range ab.Bundle.KnownTransitions {
			t := &ab.Bundle.KnownTransitions[j]
			fn(ab, t.ID(), t)
		}
	}
}

// IndexedConsignment adapts a consignment to validation.ConsignmentAPI.
// It holds a reference to the consignment and never modifies it.
type IndexedConsignment struct {
	consignment *Consignment // consignment is the indexed source

	index       *BundleIndex                         // index maps operations to witnesses
	genesisID   rgb.OpID                             // genesisID is the cached genesis id
	transitions map[rgb.OpID]*rgb.Transition         // transitions maps id to known transition
	extensions  map[rgb.OpID]*rgb.Extension          // extensions maps id to extension
	bundles     map[rgb.BundleID]*rgb.AnchoredBundle // bundles maps id to anchored bundle
	libs        map[rgb.LibID]*rgb.Lib               // libs maps id to script library
	typeSysID   rgb.TypeSysID                        // typeSysID is the id of the carried type system
}

var _ validation.ConsignmentAPI = (*IndexedConsignment)(nil)

// NewIndexed builds the indexes over c in a single pass over its bundles.
func NewIndexed(c *Consignment) *IndexedConsignment {
	start := time.Now()

	ic := &IndexedConsignment{
		consignment: c,
		index:       &BundleIndex{opWitness: make(map[rgb.OpID]rgb.WitnessID)},
		genesisID:   c.Genesis.ID(),
		transitions: make(map[rgb.OpID]*rgb.Transition),
		extensions:  make(map[rgb.OpID]*rgb.Extension, len(c.Extensions)),
		bundles:     make(map[rgb.BundleID]*rgb.AnchoredBundle, len(c.Bundles)),
		libs:        make(map[rgb.LibID]*rgb.Lib, len(c.Scripts)),
		typeSysID:   c.Types.ID(),
	}

	for i := range c.Bundles {
		ic.bundles[c.Bundles[i].BundleID()] = &c.Bundles[i]
	}

	scanBundles(c, func(ab *rgb.AnchoredBundle, id rgb.OpID, t *rgb.Transition) {
		ic.index.insert(id, ab.Anchor.WitnessID())
		ic.transitions[id] = t
	})

	for i := range c.Extensions {
		ic.extensions[c.Extensions[i].ID()] = &c.Extensions[i]
	}

	for i := range c.Scripts {
		ic.libs[c.Scripts[i].ID()] = &c.Scripts[i]
	}

	logger.Debug("consignment indexed",
		"bundles", len(ic.bundles),
		"operations", ic.index.Len(),
		"extensions", len(ic.extensions),
		logger.Timed(start),
	)

	return ic
}

// Consignment returns the indexed consignment.
func (ic *IndexedConsignment) Consignment() *Consignment {
	return ic.consignment
}

// Index returns the operation to witness index.
func (ic *IndexedConsignment) Index() *BundleIndex {
	return ic.index
}

// Schema returns the schema without copying it.
func (ic *IndexedConsignment) Schema() *rgb.Schema {
	return &ic.consignment.Schema
}

// AssetTags returns a copy of the asset tag map.
func (ic *IndexedConsignment) AssetTags() map[rgb.AssignmentType]rgb.AssetTag {
	return maps.Clone(ic.consignment.AssetTags)
}

// Operation returns the genesis when id is the genesis id, otherwise the
// matching transition, otherwise the matching extension.
func (ic *IndexedConsignment) Operation(id rgb.OpID) (rgb.Operation, bool) {
	if id == ic.genesisID {
		return &ic.consignment.Genesis, true
	}

	if t, ok := ic.transitions[id]; ok {
		return t, true
	}

	if e, ok := ic.extensions[id]; ok {
		return e, true
	}

	return nil, false
}

// Genesis returns the contract genesis.
func (ic *IndexedConsignment) Genesis() *rgb.Genesis {
	return &ic.consignment.Genesis
}

// Terminals returns the terminal seals; every seal is concealed.
func (ic *IndexedConsignment) Terminals() []rgb.SealEndpoint {
	return ic.consignment.TerminalsDisclose()
}

// BundleIDs returns an iterator over a snapshot of the bundles taken now.
func (ic *IndexedConsignment) BundleIDs() validation.BundleIDIterator {
	return &BundleIDIter{snapshot: slices.Clone(ic.consignment.Bundles)}
}

// AnchoredBundle returns a deep copy of the bundle, which stays valid after
// the adapter and the consignment are gone.
func (ic *IndexedConsignment) AnchoredBundle(id rgb.BundleID) (*rgb.AnchoredBundle, bool) {
	ab, ok := ic.bundles[id]
	if !ok {
		return nil, false
	}

	return ab.Clone(), true
}

// OpWitnessID returns the witness anchoring the operation.
func (ic *IndexedConsignment) OpWitnessID(id rgb.OpID) (rgb.WitnessID, bool) {
	return ic.index.WitnessID(id)
}

// Program resolves the libraries from the scripts carried by the consignment.
// The first unknown library is reported as *validation.MissingLibError.
func (ic *IndexedConsignment) Program(libs []rgb.LibID) (*rgb.Program, error) {
	program := &rgb.Program{Libs: make([]*rgb.Lib, 0, len(libs))}

	for _, id := range libs {
		lib, ok := ic.libs[id]
		if !ok {
			return nil, &validation.MissingLibError{ID: id}
		}

		program.Libs = append(program.Libs, lib)
	}

	return program, nil
}

// TypeSystem returns the type system carried by the consignment if its id matches.
func (ic *IndexedConsignment) TypeSystem(id rgb.TypeSysID) (*rgb.TypeSystem, bool) {
	if id != ic.typeSysID {
		return nil, false
	}

	return &ic.consignment.Types, true
}

// BundleIDIter yields the id of every bundle of a snapshot, in snapshot order.
// It is single-pass: once exhausted it keeps returning false.
type BundleIDIter struct {
	snapshot []rgb.AnchoredBundle // snapshot is the copied bundle list
	pos      int                  // pos is the next position to yield
}

// Next returns the next bundle id.
func (it *BundleIDIter) Next() (rgb.BundleID, bool) {
	if it.pos >= len(it.snapshot) {
		it.snapshot = nil
		return rgb.BundleID{}, false
	}

	id := it.snapshot[it.pos].BundleID()
	it.pos++

	return id, true
}
