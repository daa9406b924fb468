package rgb

import (
	"fmt"
	"slices"

	"RGBStd/internal/commit"
	"RGBStd/internal/strict"
)

// OpKind distinguishes the three kinds of contract operations.
type OpKind uint8

const (
	KindGenesis    OpKind = 0
	KindTransition OpKind = 1
	KindExtension  OpKind = 2
)

// String returns the kind name.
func (k OpKind) String() string {
	switch k {
	case KindGenesis:
		return "genesis"
	case KindTransition:
		return "transition"
	case KindExtension:
		return "extension"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Operation is implemented by *Genesis, *Transition and *Extension.
type Operation interface {
	// ID returns the content-addressed operation id.
	ID() OpID

	// Kind returns the operation kind.
	Kind() OpKind

	// ContractID returns the contract the operation belongs to.
	ContractID() ContractID

	// DiscloseHash commits to the id and to the data revealed in the operation.
	DiscloseHash() DiscloseHash

	// Body returns the fields shared by every operation kind.
	Body() *OpBody
}

// GlobalState is a single global state value.
type GlobalState struct {
	Type uint16 // Type is the schema global state type
	Data []byte // Data is the serialized value
}

// StateData is owned state which is either revealed or known by its commitment.
type StateData struct {
	Value      []byte   // Value is the revealed state
	Concealed  bool     // Concealed is set when only Commitment is known
	Commitment [32]byte // Commitment is used only when Concealed is set
}

// Conceal returns the commitment to the state.
func (s StateData) Conceal() [32]byte {
	if s.Concealed {
		return s.Commitment
	}

	return commit.MustTagged(TagState, strict.Blob(s.Value))
}

// Assignment binds owned state to a seal.
type Assignment struct {
	Type  AssignmentType // Type is the schema assignment type
	Seal  XChainSeal     // Seal is the seal defining the owner
	State StateData      // State is the assigned state
}

// Opout points to an assignment of a previous operation.
type Opout struct {
	Op   OpID           // Op is the operation holding the assignment
	Type AssignmentType // Type is the assignment type
	No   uint16         // No is the index within the assignments of that type
}

// Redeemed is a valency redeemed by an extension.
type Redeemed struct {
	Valency uint16 // Valency is the valency type
	Op      OpID   // Op is the operation declaring the valency
}

// OpBody holds the fields shared by every operation kind.
type OpBody struct {
	Ffv         uint16        // Ffv is the fast-forward version
	Metadata    []byte        // Metadata is schema-defined metadata
	Globals     []GlobalState // Globals is the global state
	Assignments []Assignment  // Assignments is the owned state
	Valencies   []uint16      // Valencies are the declared valency types
}

// Genesis is the operation creating a contract.
type Genesis struct {
	OpBody

	SchemaID  SchemaID // SchemaID is the schema the contract follows
	Flags     uint8    // Flags are reserved genesis flags
	Timestamp int64    // Timestamp is the issue time in unix seconds
	Issuer    string   // Issuer names the issuing party
	Testnet   bool     // Testnet marks contracts living on test networks
}

// Transition is a state transition spending previous assignments.
type Transition struct {
	OpBody

	Contract       ContractID // Contract is the contract the transition belongs to
	TransitionType uint16     // TransitionType is the schema transition type
	Nonce          uint64     // Nonce disambiguates otherwise equal transitions
	Inputs         []Opout    // Inputs are the spent assignments
}

// Extension is a state extension redeeming valencies.
type Extension struct {
	OpBody

	Contract      ContractID // Contract is the contract the extension belongs to
	ExtensionType uint16     // ExtensionType is the schema extension type
	Nonce         uint64     // Nonce disambiguates otherwise equal extensions
	Redeemed      []Redeemed // Redeemed lists the redeemed valencies
}

// Body returns the shared fields.
func (b *OpBody) Body() *OpBody { return b }

// Kind returns KindGenesis.
func (g *Genesis) Kind() OpKind { return KindGenesis }

// Kind returns KindTransition.
func (t *Transition) Kind() OpKind { return KindTransition }

// Kind returns KindExtension.
func (e *Extension) Kind() OpKind { return KindExtension }

// ContractID returns the contract id, which is the genesis id.
func (g *Genesis) ContractID() ContractID { return ContractID(g.ID()) }

// ContractID returns the contract the transition belongs to.
func (t *Transition) ContractID() ContractID { return t.Contract }

// ContractID returns the contract the extension belongs to.
func (e *Extension) ContractID() ContractID { return e.Contract }

// ID returns the operation id. It panics if a field exceeds its bound;
// containers call Validate before any id is computed.
func (g *Genesis) ID() OpID { return OpID(commit.MustTagged(TagOperation, opCommitment{g})) }

// ID returns the operation id.
func (t *Transition) ID() OpID { return OpID(commit.MustTagged(TagOperation, opCommitment{t})) }

// ID returns the operation id.
func (e *Extension) ID() OpID { return OpID(commit.MustTagged(TagOperation, opCommitment{e})) }

// DiscloseHash returns the disclosure hash.
func (g *Genesis) DiscloseHash() DiscloseHash { return discloseHash(g) }

// DiscloseHash returns the disclosure hash.
func (t *Transition) DiscloseHash() DiscloseHash { return discloseHash(t) }

// DiscloseHash returns the disclosure hash.
func (e *Extension) DiscloseHash() DiscloseHash { return discloseHash(e) }

// Validate checks that every field fits its serialization bound.
func Validate(op Operation) error {
	if _, err := strict.Serialize(opCommitment{op}); err != nil {
		return fmt.Errorf("%s operation:\n%w", op.Kind(), err)
	}

	if _, err := strict.Serialize(opDisclosure{op}); err != nil {
		return fmt.Errorf("%s disclosure:\n%w", op.Kind(), err)
	}

	return nil
}

// opCommitment is the serialization committed into an OpID.
// Seals and state enter only in concealed form.
type opCommitment struct {
	op Operation
}

// StrictEncode writes the operation commitment.
func (c opCommitment) StrictEncode(w *strict.Writer) {
	body := c.op.Body()

	w.U16(body.Ffv)
	w.U8(uint8(c.op.Kind()))

	switch op := c.op.(type) {
	case *Genesis:
		w.Array32(op.SchemaID)
		w.U8(op.Flags)
		w.I64(op.Timestamp)
		w.String8(op.Issuer)
		w.Bool(op.Testnet)
	case *Transition:
		w.Array32(op.Contract)
		w.U16(op.TransitionType)
		w.U64(op.Nonce)
	case *Extension:
		w.Array32(op.Contract)
		w.U16(op.ExtensionType)
		w.U64(op.Nonce)
	}

	w.Bytes16(body.Metadata)

	w.Len(len(body.Globals), strict.Small)
	for _, g := range body.Globals {
		w.U16(g.Type)
		w.Bytes16(g.Data)
	}

	switch op := c.op.(type) {
	case *Transition:
		w.Len(len(op.Inputs), strict.Small)
		for _, in := range op.Inputs {
			w.Array32(in.Op)
			w.U16(uint16(in.Type))
			w.U16(in.No)
		}
	case *Extension:
		w.Len(len(op.Redeemed), strict.Small)
		for _, r := range op.Redeemed {
			w.U16(r.Valency)
			w.Array32(r.Op)
		}
	}

	w.Len(len(body.Assignments), strict.Small)
	for _, a := range body.Assignments {
		w.U16(uint16(a.Type))
		a.Seal.Conceal().StrictEncode(w)
		w.Array32(a.State.Conceal())
	}

	w.Len(len(body.Valencies), strict.Small)
	for _, v := range body.Valencies {
		w.U16(v)
	}
}

// opDisclosure is the serialization committed into a DiscloseHash:
// the operation id, the concealed form of every revealed seal and the
// value of every revealed state.
type opDisclosure struct {
	op Operation
}

// StrictEncode writes the disclosure.
func (d opDisclosure) StrictEncode(w *strict.Writer) {
	body := d.op.Body()

	w.Array32(d.op.ID())

	var seals, states []int
	for i, a := range body.Assignments {
		if a.Seal.IsRevealed() {
			seals = append(seals, i)
		}

		if !a.State.Concealed {
			states = append(states, i)
		}
	}

	w.Len(len(seals), strict.Small)
	for _, i := range seals {
		w.U16(uint16(i))
		body.Assignments[i].Seal.Conceal().StrictEncode(w)
	}

	w.Len(len(states), strict.Small)
	for _, i := range states {
		w.U16(uint16(i))
		w.Bytes16(body.Assignments[i].State.Value)
	}
}

// discloseHash computes the disclosure hash of an operation.
func discloseHash(op Operation) DiscloseHash {
	return DiscloseHash(commit.MustTagged(TagDisclose, opDisclosure{op}))
}

// Clone returns a deep copy of the body.
func (b OpBody) Clone() OpBody {
	out := OpBody{
		Ffv:         b.Ffv,
		Metadata:    slices.Clone(b.Metadata),
		Valencies:   slices.Clone(b.Valencies),
		Globals:     make([]GlobalState, len(b.Globals)),
		Assignments: make([]Assignment, len(b.Assignments)),
	}

	for i, g := range b.Globals {
		out.Globals[i] = GlobalState{Type: g.Type, Data: slices.Clone(g.Data)}
	}

	for i, a := range b.Assignments {
		out.Assignments[i] = a
		out.Assignments[i].State.Value = slices.Clone(a.State.Value)

		if a.Seal.Revealed != nil {
			seal := *a.Seal.Revealed
			out.Assignments[i].Seal.Revealed = &seal
		}
	}

	return out
}

// Clone returns a deep copy of the transition.
func (t *Transition) Clone() *Transition {
	out := *t
	out.OpBody = t.OpBody.Clone()
	out.Inputs = slices.Clone(t.Inputs)

	return &out
}

// Clone returns a deep copy of the extension.
func (e *Extension) Clone() *Extension {
	out := *e
	out.OpBody = e.OpBody.Clone()
	out.Redeemed = slices.Clone(e.Redeemed)

	return &out
}

// Clone returns a deep copy of the genesis.
func (g *Genesis) Clone() *Genesis {
	out := *g
	out.OpBody = g.OpBody.Clone()

	return &out
}
