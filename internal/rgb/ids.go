// Package rgb holds the contract primitives consumed by the container layer:
// identifiers, seals, operations, bundles and anchors. Every identifier is a
// tagged hash over a canonical serialization produced by package strict.
package rgb

import (
	"encoding/hex"
	"fmt"

	"RGBStd/internal/strict"
)

// Commitment tags. Changing any of them mints a disjoint identifier space.
const (
	TagOperation = "urn:lnp-bp:rgb:operation#2024-02-03"
	TagDisclose  = "urn:lnp-bp:rgb:disclose#2024-02-16"
	TagBundle    = "urn:lnp-bp:rgb:bundle#2024-02-03"
	TagSchema    = "urn:lnp-bp:rgb:schema#2024-02-03"
	TagIface     = "urn:lnp-bp:rgb:iface#2024-02-04"
	TagImpl      = "urn:lnp-bp:rgb:iface-impl#2024-02-04"
	TagSuppl     = "urn:lnp-bp:rgb:suppl#2024-02-04"
	TagAttach    = "urn:lnp-bp:rgb:attach#2024-02-12"
	TagTypeSys   = "urn:ubideco:strict-types:sys#2024-02-10"
	TagSeal      = "urn:lnp-bp:seals:secret#2024-02-03"
	TagState     = "urn:lnp-bp:rgb:state-data#2024-02-12"
)

// OpID identifies an operation (genesis, transition or extension).
type OpID [32]byte

// StrictEncode writes the id.
func (id OpID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// String returns the hex form.
func (id OpID) String() string { return hex.EncodeToString(id[:]) }

// ContractID is the identifier of a contract; it equals the genesis OpID.
type ContractID [32]byte

// StrictEncode writes the id.
func (id ContractID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// String returns the hex form.
func (id ContractID) String() string { return hex.EncodeToString(id[:]) }

// BundleID identifies a transition bundle by its input map.
type BundleID [32]byte

// StrictEncode writes the id.
func (id BundleID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// String returns the hex form.
func (id BundleID) String() string { return hex.EncodeToString(id[:]) }

// DiscloseHash commits to an operation or bundle together with the data it reveals.
type DiscloseHash [32]byte

// StrictEncode writes the hash.
func (h DiscloseHash) StrictEncode(w *strict.Writer) { w.Array32(h) }

// String returns the hex form.
func (h DiscloseHash) String() string { return hex.EncodeToString(h[:]) }

// SchemaID identifies a schema.
type SchemaID [32]byte

// StrictEncode writes the id.
func (id SchemaID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// IfaceID identifies an interface.
type IfaceID [32]byte

// StrictEncode writes the id.
func (id IfaceID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// ImplID identifies an interface implementation.
type ImplID [32]byte

// StrictEncode writes the id.
func (id ImplID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// SupplID identifies a supplement.
type SupplID [32]byte

// StrictEncode writes the id.
func (id SupplID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// AttachID identifies an attachment by its content.
type AttachID [32]byte

// StrictEncode writes the id.
func (id AttachID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// LibID identifies a script library; it is the blake3 hash of the code.
type LibID [32]byte

// StrictEncode writes the id.
func (id LibID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// String returns the hex form.
func (id LibID) String() string { return hex.EncodeToString(id[:]) }

// TypeSysID identifies a type system.
type TypeSysID [32]byte

// StrictEncode writes the id.
func (id TypeSysID) StrictEncode(w *strict.Writer) { w.Array32(id) }

// AssetTag is the tag of a fungible assignment type.
type AssetTag [32]byte

// StrictEncode writes the tag.
func (t AssetTag) StrictEncode(w *strict.Writer) { w.Array32(t) }

// AssignmentType is a schema-defined type of owned state.
type AssignmentType uint16

// StrictEncode writes the type.
func (t AssignmentType) StrictEncode(w *strict.Writer) { w.U16(uint16(t)) }

// Layer1 is the blockchain a seal or witness lives on.
type Layer1 uint8

const (
	// Bitcoin is the bitcoin blockchain.
	Bitcoin Layer1 = 0

	// Liquid is the liquid sidechain.
	Liquid Layer1 = 1
)

// String returns the short chain prefix.
func (l Layer1) String() string {
	switch l {
	case Bitcoin:
		return "bc"
	case Liquid:
		return "lq"
	default:
		return fmt.Sprintf("l%d", uint8(l))
	}
}

// Txid is a blockchain transaction id.
type Txid [32]byte

// WitnessID identifies the transaction anchoring a bundle.
type WitnessID struct {
	Layer Layer1 // Layer is the chain holding the transaction
	Txid  Txid   // Txid is the transaction id
}

// StrictEncode writes the layer tag and the txid.
func (id WitnessID) StrictEncode(w *strict.Writer) {
	w.U8(uint8(id.Layer))
	w.Array32(id.Txid)
}

// String returns "<chain>:<txid hex>".
func (id WitnessID) String() string {
	return id.Layer.String() + ":" + hex.EncodeToString(id.Txid[:])
}

// ContentKind tags the kind of identifier a ContentID refers to.
type ContentKind uint8

const (
	ContentSchema    ContentKind = 0
	ContentGenesis   ContentKind = 1
	ContentIface     ContentKind = 2
	ContentIfaceImpl ContentKind = 3
	ContentSuppl     ContentKind = 4
)

// ContentID names a signable piece of contract content.
type ContentID struct {
	Kind ContentKind // Kind selects the identifier space
	ID   [32]byte    // ID is the identifier within that space
}

// StrictEncode writes the kind tag and the id.
func (id ContentID) StrictEncode(w *strict.Writer) {
	w.U8(uint8(id.Kind))
	w.Array32(id.ID)
}

// Bytes returns the 33-byte serialization, used as a signing message.
func (id ContentID) Bytes() []byte {
	out := make([]byte, 0, 33)
	out = append(out, byte(id.Kind))

	return append(out, id.ID[:]...)
}
