package containers

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"RGBStd/internal/rgb"
	"RGBStd/internal/strict"
)

// ContainerVersion is the only container version understood by this package.
const ContainerVersion uint8 = 2

// Collection bounds. They mirror the prefix widths used when committing.
const (
	ifacesBound      = strict.Tiny
	supplementsBound = strict.Tiny
	assetTagsBound   = strict.Tiny
	signaturesBound  = strict.Tiny
	terminalsBound   = strict.Small
	attachmentsBound = strict.Small
	scriptsBound     = strict.Small
	bundlesBound     = strict.Large
	extensionsBound  = strict.Large
)

var (
	// ErrUnsupportedVersion is returned for an unknown container version.
	ErrUnsupportedVersion = errors.New("unsupported container version")

	// ErrDuplicateBundle is returned when two anchored bundles share a bundle id.
	ErrDuplicateBundle = errors.New("duplicate bundle")

	// ErrForeignOperation is returned when an operation belongs to another contract.
	ErrForeignOperation = errors.New("operation of a different contract")
)

// Consignment is the aggregate of contract data exchanged between parties.
// A consignment with Transfer set is a transfer: it is delivered peer to peer
// and identified by its TransferID.
//
// New copies the operations and every collection of its argument, so the
// caller may reuse its input afterwards. The result is immutable; none of the
// methods in this package modify it, and it may be shared between goroutines.
type Consignment struct {
	Version     uint8                               // Version is the container version
	Transfer    bool                                // Transfer marks the consignment as a transfer
	Schema      rgb.Schema                          // Schema is the contract schema
	Ifaces      []rgb.IfacePair                     // Ifaces are the known interface implementations
	Supplements []rgb.Supplement                    // Supplements are off-chain annotations
	AssetTags   map[rgb.AssignmentType]rgb.AssetTag // AssetTags tag fungible assignment types
	Genesis     rgb.Genesis                         // Genesis is the contract genesis
	Terminals   map[rgb.BundleID]rgb.Terminal       // Terminals are the endpoint seals per bundle
	Bundles     []rgb.AnchoredBundle                // Bundles are ordered by bundle id
	Extensions  []rgb.Extension                     // Extensions are ordered by operation id
	Attachments map[rgb.AttachID][]byte             // Attachments are attached files
	Signatures  map[rgb.ContentID]rgb.ContentSigs   // Signatures sign pieces of content
	Types       rgb.TypeSystem                      // Types is the type system of the contract
	Scripts     []rgb.Lib                           // Scripts are the validation libraries
}

// New validates c and returns it with bundles and extensions in canonical order.
// Every collection is checked against its bound; nothing is ever truncated.
func New(c Consignment) (*Consignment, error) {
	c.detach()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	sortBundles(c.Bundles)
	sortExtensions(c.Extensions)

	return &c, nil
}

// detach replaces every operation and collection of c with a private copy.
// Schema, interface and script contents are immutable values and stay shared.
func (c *Consignment) detach() {
	c.Genesis = *c.Genesis.Clone()
	c.Ifaces = slices.Clone(c.Ifaces)
	c.Supplements = slices.Clone(c.Supplements)
	c.Scripts = slices.Clone(c.Scripts)
	c.AssetTags = maps.Clone(c.AssetTags)

	bundles := make([]rgb.AnchoredBundle, len(c.Bundles))
	for i := range c.Bundles {
		bundles[i] = *c.Bundles[i].Clone()
	}
	c.Bundles = bundles

	extensions := make([]rgb.Extension, len(c.Extensions))
	for i := range c.Extensions {
		extensions[i] = *c.Extensions[i].Clone()
	}
	c.Extensions = extensions

	if c.Terminals != nil {
		terminals := make(map[rgb.BundleID]rgb.Terminal, len(c.Terminals))
		for id, t := range c.Terminals {
			seals := make([]rgb.XChainSeal, len(t.Seals))
			for i, seal := range t.Seals {
				seals[i] = seal.Clone()
			}
			terminals[id] = rgb.Terminal{Seals: seals}
		}
		c.Terminals = terminals
	}

	if c.Attachments != nil {
		attachments := make(map[rgb.AttachID][]byte, len(c.Attachments))
		for id, data := range c.Attachments {
			attachments[id] = slices.Clone(data)
		}
		c.Attachments = attachments
	}

	if c.Signatures != nil {
		signatures := make(map[rgb.ContentID]rgb.ContentSigs, len(c.Signatures))
		for id, sigs := range c.Signatures {
			signatures[id] = slices.Clone(sigs)
		}
		c.Signatures = signatures
	}
}

// Validate checks the version, every collection bound and bundle uniqueness.
func (c *Consignment) Validate() error {
	if c.Version != ContainerVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, c.Version)
	}

	checks := []struct {
		name  string
		n     int
		bound strict.Bound
	}{
		{"ifaces", len(c.Ifaces), ifacesBound},
		{"supplements", len(c.Supplements), supplementsBound},
		{"asset tags", len(c.AssetTags), assetTagsBound},
		{"signatures", len(c.Signatures), signaturesBound},
		{"terminals", len(c.Terminals), terminalsBound},
		{"terminal seals", c.terminalSealCount(), terminalsBound},
		{"attachments", len(c.Attachments), attachmentsBound},
		{"scripts", len(c.Scripts), scriptsBound},
		{"bundles", len(c.Bundles), bundlesBound},
		{"extensions", len(c.Extensions), extensionsBound},
	}

	for _, check := range checks {
		if err := check.bound.Check(check.n); err != nil {
			return fmt.Errorf("%s:\n%w", check.name, err)
		}
	}

	if _, err := strict.Serialize(&c.Schema); err != nil {
		return fmt.Errorf("schema:\n%w", err)
	}

	if err := c.Types.Validate(); err != nil {
		return err
	}

	for i, pair := range c.Ifaces {
		if _, err := strict.Serialize(pair.Impl); err != nil {
			return fmt.Errorf("iface impl %d:\n%w", i, err)
		}

		if _, err := strict.Serialize(pair.Iface); err != nil {
			return fmt.Errorf("iface %d:\n%w", i, err)
		}
	}

	for i, suppl := range c.Supplements {
		if _, err := strict.Serialize(suppl); err != nil {
			return fmt.Errorf("supplement %d:\n%w", i, err)
		}
	}

	for id, sigs := range c.Signatures {
		if _, err := strict.Serialize(sigs); err != nil {
			return fmt.Errorf("signatures of %x:\n%w", id.ID, err)
		}
	}

	if err := rgb.Validate(&c.Genesis); err != nil {
		return fmt.Errorf("genesis:\n%w", err)
	}

	return c.validateOperations()
}

// validateOperations checks bundles and extensions.
func (c *Consignment) validateOperations() error {
	contractID := c.Genesis.ContractID()
	seen := make(map[rgb.BundleID]struct{}, len(c.Bundles))

	for i := range c.Bundles {
		bundle := &c.Bundles[i].Bundle

		if err := bundle.Validate(); err != nil {
			return fmt.Errorf("bundle %d:\n%w", i, err)
		}

		id := bundle.BundleID()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateBundle, id)
		}
		seen[id] = struct{}{}

		for j := range bundle.KnownTransitions {
			if bundle.KnownTransitions[j].Contract != contractID {
				return fmt.Errorf("%w: transition %d of bundle %s", ErrForeignOperation, j, id)
			}
		}
	}

	for i := range c.Extensions {
		if err := rgb.Validate(&c.Extensions[i]); err != nil {
			return fmt.Errorf("extension %d:\n%w", i, err)
		}

		if c.Extensions[i].Contract != contractID {
			return fmt.Errorf("%w: extension %d", ErrForeignOperation, i)
		}
	}

	return nil
}

// ContractID returns the id of the contract, derived from the genesis.
func (c *Consignment) ContractID() rgb.ContractID {
	return c.Genesis.ContractID()
}

// Transition returns the transition with the given id from any bundle.
func (c *Consignment) Transition(id rgb.OpID) (*rgb.Transition, bool) {
	for i := range c.Bundles {
		if t, ok := c.Bundles[i].Bundle.Transition(id); ok {
			return t, true
		}
	}

	return nil, false
}

// Extension returns the extension with the given id.
func (c *Consignment) Extension(id rgb.OpID) (*rgb.Extension, bool) {
	for i := range c.Extensions {
		if c.Extensions[i].ID() == id {
			return &c.Extensions[i], true
		}
	}

	return nil, false
}

// AnchoredBundle returns the anchored bundle with the given id.
func (c *Consignment) AnchoredBundle(id rgb.BundleID) (*rgb.AnchoredBundle, bool) {
	for i := range c.Bundles {
		if c.Bundles[i].BundleID() == id {
			return &c.Bundles[i], true
		}
	}

	return nil, false
}

// TerminalsDisclose returns every terminal seal in concealed form, paired with
// its bundle id, sorted and without duplicates.
func (c *Consignment) TerminalsDisclose() []rgb.SealEndpoint {
	out := make([]rgb.SealEndpoint, 0, c.terminalSealCount())

	for bundleID, terminal := range c.Terminals {
		for _, seal := range terminal.Seals {
			out = append(out, rgb.SealEndpoint{Bundle: bundleID, Seal: seal.Conceal()})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return compareEndpoints(out[i], out[j]) < 0
	})

	return slices.CompactFunc(out, func(a, b rgb.SealEndpoint) bool {
		return a == b
	})
}

// terminalSealCount returns the number of seals across all terminals.
func (c *Consignment) terminalSealCount() int {
	n := 0
	for _, terminal := range c.Terminals {
		n += len(terminal.Seals)
	}

	return n
}

// compareEndpoints orders endpoints by bundle, layer, then seal.
func compareEndpoints(a, b rgb.SealEndpoint) int {
	if c := bytes.Compare(a.Bundle[:], b.Bundle[:]); c != 0 {
		return c
	}

	if a.Seal.Layer != b.Seal.Layer {
		if a.Seal.Layer < b.Seal.Layer {
			return -1
		}
		return 1
	}

	return bytes.Compare(a.Seal.Seal[:], b.Seal.Seal[:])
}

// sortBundles orders anchored bundles by bundle id.
func sortBundles(bundles []rgb.AnchoredBundle) {
	keys := make([][32]byte, len(bundles))
	for i := range bundles {
		keys[i] = [32]byte(bundles[i].BundleID())
	}

	sort.Sort(byKey[rgb.AnchoredBundle]{items: bundles, keys: keys})
}

// sortExtensions orders extensions by operation id.
func sortExtensions(extensions []rgb.Extension) {
	keys := make([][32]byte, len(extensions))
	for i := range extensions {
		keys[i] = [32]byte(extensions[i].ID())
	}

	sort.Sort(byKey[rgb.Extension]{items: extensions, keys: keys})
}

// byKey sorts items by precomputed 32-byte keys, keeping both slices aligned.
type byKey[T any] struct {
	items []T
	keys  [][32]byte
}

func (s byKey[T]) Len() int { return len(s.items) }

func (s byKey[T]) Less(i, j int) bool {
	return bytes.Compare(s.keys[i][:], s.keys[j][:]) < 0
}

func (s byKey[T]) Swap(i, j int) {
	s.items[i], s.items[j] = s.items[j], s.items[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}
