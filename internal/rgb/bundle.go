package rgb

import (
	"fmt"
	"slices"
	"sort"

	"RGBStd/internal/commit"
	"RGBStd/internal/strict"
)

// TransitionBundle groups the transitions of one contract closed by a single witness.
type TransitionBundle struct {
	InputMap         map[uint32]OpID // InputMap maps witness input index to the transition spending it
	KnownTransitions []Transition    // KnownTransitions are the transitions disclosed in the bundle
}

// BundleID commits to the input map.
func (b *TransitionBundle) BundleID() BundleID {
	return BundleID(commit.MustTagged(TagBundle, inputMap(b.InputMap)))
}

// DiscloseHash commits to the bundle id and the disclosure of every known transition.
func (b *TransitionBundle) DiscloseHash() DiscloseHash {
	e := commit.NewEngine(TagDisclose)
	e.CommitToSerialized(b.BundleID())
	e.CommitToSet("known transitions", strict.Small, b.transitionDisclosures())

	out, err := e.Finish()
	if err != nil {
		panic("rgb: bundle disclosure: " + err.Error())
	}

	return DiscloseHash(out)
}

// Transition returns the known transition with the given id.
func (b *TransitionBundle) Transition(id OpID) (*Transition, bool) {
	for i := range b.KnownTransitions {
		if b.KnownTransitions[i].ID() == id {
			return &b.KnownTransitions[i], true
		}
	}

	return nil, false
}

// Validate checks the bounds of the bundle and of every known transition.
func (b *TransitionBundle) Validate() error {
	if err := strict.Small.Check(len(b.InputMap)); err != nil {
		return fmt.Errorf("input map:\n%w", err)
	}

	if err := strict.Small.Check(len(b.KnownTransitions)); err != nil {
		return fmt.Errorf("known transitions:\n%w", err)
	}

	for i := range b.KnownTransitions {
		if err := Validate(&b.KnownTransitions[i]); err != nil {
			return fmt.Errorf("known transition %d:\n%w", i, err)
		}
	}

	return nil
}

// Clone returns a deep copy of the bundle.
func (b *TransitionBundle) Clone() TransitionBundle {
	out := TransitionBundle{
		InputMap:         make(map[uint32]OpID, len(b.InputMap)),
		KnownTransitions: make([]Transition, len(b.KnownTransitions)),
	}

	for vin, id := range b.InputMap {
		out.InputMap[vin] = id
	}

	for i := range b.KnownTransitions {
		out.KnownTransitions[i] = *b.KnownTransitions[i].Clone()
	}

	return out
}

// transitionDisclosures returns the disclosure hashes of the known transitions.
func (b *TransitionBundle) transitionDisclosures() []strict.Encodable {
	out := make([]strict.Encodable, len(b.KnownTransitions))
	for i := range b.KnownTransitions {
		out[i] = b.KnownTransitions[i].DiscloseHash()
	}

	return out
}

// inputMap serializes an input map ordered by input index.
type inputMap map[uint32]OpID

// StrictEncode writes the entries in ascending input order.
func (m inputMap) StrictEncode(w *strict.Writer) {
	vins := make([]uint32, 0, len(m))
	for vin := range m {
		vins = append(vins, vin)
	}

	sort.Slice(vins, func(i, j int) bool { return vins[i] < vins[j] })

	w.Len(len(vins), strict.Small)
	for _, vin := range vins {
		w.U32(vin)
		w.Array32(m[vin])
	}
}

// Anchor proves that a bundle is committed in a witness transaction.
type Anchor struct {
	Witness  WitnessID // Witness is the anchoring transaction
	MPCProof []byte    // MPCProof is the multi-protocol commitment proof
	DBCProof []byte    // DBCProof is the deterministic bitcoin commitment proof
}

// WitnessID returns the witness id without verifying the proofs.
func (a *Anchor) WitnessID() WitnessID {
	return a.Witness
}

// AnchoredBundle is a transition bundle together with its anchor.
type AnchoredBundle struct {
	Anchor Anchor           // Anchor binds the bundle to a witness
	Bundle TransitionBundle // Bundle holds the transitions
}

// BundleID returns the id of the inner bundle.
func (ab *AnchoredBundle) BundleID() BundleID {
	return ab.Bundle.BundleID()
}

// Clone returns a deep copy, independent of the source consignment.
func (ab *AnchoredBundle) Clone() *AnchoredBundle {
	return &AnchoredBundle{
		Anchor: Anchor{
			Witness:  ab.Anchor.Witness,
			MPCProof: slices.Clone(ab.Anchor.MPCProof),
			DBCProof: slices.Clone(ab.Anchor.DBCProof),
		},
		Bundle: ab.Bundle.Clone(),
	}
}
