package rgb

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/zeebo/blake3"

	"RGBStd/internal/commit"
	"RGBStd/internal/strict"
)

// Schema is the part of a contract schema needed by validation.
type Schema struct {
	Ffv             uint16           // Ffv is the fast-forward version
	Name            string           // Name is the schema name
	GlobalTypes     []uint16         // GlobalTypes are the declared global state types
	OwnedTypes      []AssignmentType // OwnedTypes are the declared assignment types
	ValencyTypes    []uint16         // ValencyTypes are the declared valency types
	TransitionTypes []uint16         // TransitionTypes are the declared transition types
	ExtensionTypes  []uint16         // ExtensionTypes are the declared extension types
	TypeSystem      TypeSysID        // TypeSystem is the type system used by state
	Script          []LibID          // Script lists the libraries run by validation
}

// StrictEncode writes the schema.
func (s *Schema) StrictEncode(w *strict.Writer) {
	w.U16(s.Ffv)
	w.String8(s.Name)
	writeU16s(w, s.GlobalTypes)

	w.Len(len(s.OwnedTypes), strict.Tiny)
	for _, t := range s.OwnedTypes {
		w.U16(uint16(t))
	}

	writeU16s(w, s.ValencyTypes)
	writeU16s(w, s.TransitionTypes)
	writeU16s(w, s.ExtensionTypes)
	w.Array32(s.TypeSystem)

	w.Len(len(s.Script), strict.Tiny)
	for _, id := range s.Script {
		w.Array32(id)
	}
}

// ID returns the schema id.
func (s *Schema) ID() SchemaID {
	return SchemaID(commit.MustTagged(TagSchema, s))
}

// Iface is an interface definition.
type Iface struct {
	Version uint8  // Version is the interface version
	Name    string // Name is the interface name
}

// StrictEncode writes the interface.
func (i Iface) StrictEncode(w *strict.Writer) {
	w.U8(i.Version)
	w.String8(i.Name)
}

// ID returns the interface id.
func (i Iface) ID() IfaceID {
	return IfaceID(commit.MustTagged(TagIface, i))
}

// IfaceImpl binds an interface to a schema.
type IfaceImpl struct {
	Version   uint8    // Version is the implementation version
	SchemaID  SchemaID // SchemaID is the implemented schema
	IfaceID   IfaceID  // IfaceID is the implemented interface
	Timestamp int64    // Timestamp is the creation time
	Developer string   // Developer names the implementation author
	Metadata  []byte   // Metadata is free-form implementation data
}

// StrictEncode writes the implementation.
func (i IfaceImpl) StrictEncode(w *strict.Writer) {
	w.U8(i.Version)
	w.Array32(i.SchemaID)
	w.Array32(i.IfaceID)
	w.I64(i.Timestamp)
	w.String8(i.Developer)
	w.Bytes16(i.Metadata)
}

// ImplID returns the implementation id.
func (i IfaceImpl) ImplID() ImplID {
	return ImplID(commit.MustTagged(TagImpl, i))
}

// IfacePair is an interface together with its implementation for the schema.
type IfacePair struct {
	Iface Iface     // Iface is the interface
	Impl  IfaceImpl // Impl is the implementation
}

// Supplement carries off-chain annotations of some contract content.
type Supplement struct {
	Content     ContentID // Content is the annotated content
	Timestamp   int64     // Timestamp is the creation time
	Creator     string    // Creator names the author
	Annotations []byte    // Annotations is the serialized annotation map
}

// StrictEncode writes the supplement.
func (s Supplement) StrictEncode(w *strict.Writer) {
	s.Content.StrictEncode(w)
	w.I64(s.Timestamp)
	w.String8(s.Creator)
	w.Bytes16(s.Annotations)
}

// ID returns the supplement id.
func (s Supplement) ID() SupplID {
	return SupplID(commit.MustTagged(TagSuppl, s))
}

// IdentitySig is a signature over a ContentID by a single identity.
type IdentitySig struct {
	PublicKey []byte // PublicKey is the compressed signer key
	Signature []byte // Signature is the compressed signature
}

// StrictEncode writes both byte strings with u8 prefixes.
func (s IdentitySig) StrictEncode(w *strict.Writer) {
	w.Len(len(s.PublicKey), strict.Tiny)
	w.Raw(s.PublicKey)
	w.Len(len(s.Signature), strict.Tiny)
	w.Raw(s.Signature)
}

// ContentSigs is the set of signatures over one ContentID.
type ContentSigs []IdentitySig

// StrictEncode writes the signatures as a canonical tiny set.
func (c ContentSigs) StrictEncode(w *strict.Writer) {
	items := make([]strict.Encodable, len(c))
	for i, sig := range c {
		items[i] = sig
	}

	data, err := commit.CanonicalSet(strict.Tiny, items)
	if err != nil {
		w.Fail(err)
		return
	}

	w.Raw(data)
}

// NewAttachID returns the id of attachment data.
func NewAttachID(data []byte) AttachID {
	return AttachID(commit.MustTagged(TagAttach, strict.Func(func(w *strict.Writer) {
		w.Bytes32(data)
	})))
}

// Lib is a script library executed by the validation VM.
type Lib struct {
	Code []byte // Code is the library bytecode
}

// ID returns the blake3 hash of the code.
func (l *Lib) ID() LibID {
	return LibID(blake3.Sum256(l.Code))
}

// Program is the ordered set of libraries resolved for a schema script.
type Program struct {
	Libs []*Lib // Libs are the resolved libraries in request order
}

// TypeLib is one named library of a type system.
type TypeLib struct {
	Name string // Name is the library name
	Data []byte // Data is the serialized library
}

// TypeSystem is the set of type libraries used to interpret state.
type TypeSystem struct {
	Libs []TypeLib // Libs are the type libraries
}

// StrictEncode writes the libraries ordered by name.
func (ts *TypeSystem) StrictEncode(w *strict.Writer) {
	libs := make([]TypeLib, len(ts.Libs))
	copy(libs, ts.Libs)

	sort.Slice(libs, func(i, j int) bool {
		if libs[i].Name != libs[j].Name {
			return libs[i].Name < libs[j].Name
		}
		return bytes.Compare(libs[i].Data, libs[j].Data) < 0
	})

	w.Len(len(libs), strict.Small)
	for _, lib := range libs {
		w.String8(lib.Name)
		w.Bytes32(lib.Data)
	}
}

// ID returns the type system id.
func (ts *TypeSystem) ID() TypeSysID {
	return TypeSysID(commit.MustTagged(TagTypeSys, ts))
}

// Validate checks the bounds of the type system.
func (ts *TypeSystem) Validate() error {
	if _, err := strict.Serialize(ts); err != nil {
		return fmt.Errorf("type system:\n%w", err)
	}

	return nil
}

// Terminal holds the endpoint seals of a bundle known to the receiver.
type Terminal struct {
	Seals []XChainSeal // Seals may be revealed or concealed
}

// writeU16s writes a tiny list of u16 values.
func writeU16s(w *strict.Writer, values []uint16) {
	w.Len(len(values), strict.Tiny)
	for _, v := range values {
		w.U16(v)
	}
}
