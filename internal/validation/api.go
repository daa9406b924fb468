// Package validation defines the read-only view of a consignment consumed by
// the validation engine. The engine never touches consignment internals; this
// interface is the whole contract between the two.
package validation

import (
	"fmt"

	"RGBStd/internal/rgb"
)

// ConsignmentAPI is the query interface a validation engine runs against.
// Implementations must be safe for concurrent readers.
type ConsignmentAPI interface {
	// Schema returns the contract schema.
	Schema() *rgb.Schema

	// AssetTags returns the asset tag of every fungible assignment type.
	AssetTags() map[rgb.AssignmentType]rgb.AssetTag

	// Operation returns the genesis, transition or extension with the given id.
	Operation(id rgb.OpID) (rgb.Operation, bool)

	// Genesis returns the contract genesis.
	Genesis() *rgb.Genesis

	// Terminals returns the terminal seals, always concealed.
	Terminals() []rgb.SealEndpoint

	// BundleIDs returns a single-pass iterator over the anchored bundle ids.
	BundleIDs() BundleIDIterator

	// AnchoredBundle returns a copy of the anchored bundle that the caller owns.
	AnchoredBundle(id rgb.BundleID) (*rgb.AnchoredBundle, bool)

	// OpWitnessID returns the witness anchoring the operation.
	OpWitnessID(id rgb.OpID) (rgb.WitnessID, bool)

	// Program resolves the libraries of a script, in request order.
	Program(libs []rgb.LibID) (*rgb.Program, error)

	// TypeSystem returns the type system with the given id.
	TypeSystem(id rgb.TypeSysID) (*rgb.TypeSystem, bool)
}

// BundleIDIterator yields bundle ids once; it cannot be restarted.
type BundleIDIterator interface {
	// Next returns the next id, or false once the iterator is exhausted.
	Next() (rgb.BundleID, bool)
}

// MissingLibError reports the first library a program needs but that is unknown.
type MissingLibError struct {
	ID rgb.LibID // ID is the missing library
}

// Error implements error.
func (e *MissingLibError) Error() string {
	return fmt.Sprintf("library %s not found", e.ID)
}
