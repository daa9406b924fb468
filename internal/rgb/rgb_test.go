package rgb

import (
	"errors"
	"testing"

	"RGBStd/internal/strict"
)

func testSeal(b byte) BlindSeal {
	return BlindSeal{Method: TapretFirst, Txid: Txid{b}, Vout: uint32(b), Blinding: 0xfeed + uint64(b)}
}

func testTransition(revealed bool) *Transition {
	seal := RevealedSeal(Bitcoin, testSeal(1))
	state := StateData{Value: []byte{0x10, 0x27}}

	if !revealed {
		seal = ConcealedSeal(Bitcoin, testSeal(1).Conceal())
		state = StateData{Concealed: true, Commitment: state.Conceal()}
	}

	return &Transition{
		OpBody: OpBody{
			Assignments: []Assignment{{Type: 1, Seal: seal, State: state}},
		},
		Contract:       ContractID{9},
		TransitionType: 10000,
		Inputs:         []Opout{{Op: OpID{7}, Type: 1, No: 0}},
	}
}

// TestSealConcealIdempotent tests that concealing a concealed seal is a no-op.
func TestSealConcealIdempotent(t *testing.T) {
	revealed := RevealedSeal(Liquid, testSeal(2))
	concealed := ConcealedSeal(Liquid, revealed.Conceal().Seal)

	if revealed.Conceal() != concealed.Conceal() {
		t.Fatal("concealing should be idempotent")
	}

	if concealed.IsRevealed() {
		t.Fatal("concealed seal reported as revealed")
	}
}

// TestOpIDIgnoresReveal tests that revealing data keeps the operation id.
func TestOpIDIgnoresReveal(t *testing.T) {
	revealed := testTransition(true)
	concealed := testTransition(false)

	if revealed.ID() != concealed.ID() {
		t.Fatal("operation id changed with revealed data")
	}

	if revealed.DiscloseHash() == concealed.DiscloseHash() {
		t.Fatal("disclose hash should depend on revealed data")
	}
}

// TestOpIDKinds tests that transitions and extensions never share ids.
func TestOpIDKinds(t *testing.T) {
	tr := &Transition{Contract: ContractID{1}, TransitionType: 1}
	ext := &Extension{Contract: ContractID{1}, ExtensionType: 1}

	if tr.ID() == ext.ID() {
		t.Fatal("different kinds should give different ids")
	}

	if tr.Kind().String() == ext.Kind().String() {
		t.Fatal("kinds should print differently")
	}
}

// TestGenesisContractID tests that the contract id is the genesis id.
func TestGenesisContractID(t *testing.T) {
	g := &Genesis{SchemaID: SchemaID{1}, Timestamp: 1700000000, Issuer: "issuer"}

	if [32]byte(g.ContractID()) != [32]byte(g.ID()) {
		t.Fatal("contract id should equal genesis id")
	}
}

// TestValidateSizeLimit tests that oversized fields are reported.
func TestValidateSizeLimit(t *testing.T) {
	g := &Genesis{Issuer: string(make([]byte, 300))}

	if err := Validate(g); !errors.Is(err, strict.ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
}

// TestBundleIDFromInputMap tests that the bundle id only covers the input map.
func TestBundleIDFromInputMap(t *testing.T) {
	a := TransitionBundle{InputMap: map[uint32]OpID{0: {1}, 1: {2}}}
	b := TransitionBundle{InputMap: map[uint32]OpID{1: {2}, 0: {1}}, KnownTransitions: []Transition{*testTransition(true)}}

	if a.BundleID() != b.BundleID() {
		t.Fatal("bundle id should only depend on the input map")
	}

	if a.DiscloseHash() == b.DiscloseHash() {
		t.Fatal("disclose hash should cover known transitions")
	}
}

// TestAnchoredBundleClone tests that clones share no memory with the source.
func TestAnchoredBundleClone(t *testing.T) {
	src := &AnchoredBundle{
		Anchor: Anchor{Witness: WitnessID{Layer: Bitcoin, Txid: Txid{3}}, MPCProof: []byte{1, 2}},
		Bundle: TransitionBundle{
			InputMap:         map[uint32]OpID{0: {1}},
			KnownTransitions: []Transition{*testTransition(true)},
		},
	}

	clone := src.Clone()
	clone.Anchor.MPCProof[0] = 0xff
	clone.Bundle.InputMap[1] = OpID{5}
	clone.Bundle.KnownTransitions[0].Assignments[0].State.Value[0] = 0xff

	if src.Anchor.MPCProof[0] != 1 || len(src.Bundle.InputMap) != 1 {
		t.Fatal("clone shares anchor or input map with source")
	}

	if src.Bundle.KnownTransitions[0].Assignments[0].State.Value[0] != 0x10 {
		t.Fatal("clone shares transitions with source")
	}
}

// TestLibID tests that library ids depend on code only.
func TestLibID(t *testing.T) {
	a := &Lib{Code: []byte("code")}
	b := &Lib{Code: []byte("code")}

	if a.ID() != b.ID() {
		t.Fatal("equal code should give equal ids")
	}
}
