// Package containerstest builds deterministic consignments for tests and demos.
package containerstest

import (
	"encoding/binary"
	"errors"
	"fmt"

	"RGBStd/internal/containers"
	"RGBStd/internal/rgb"
)

// Options controls the shape of a sample consignment.
type Options struct {
	Bundles     int    // Bundles is the number of anchored bundles
	PerBundle   int    // PerBundle is the number of transitions in each bundle
	Extensions  int    // Extensions is the number of state extensions
	Seed        uint64 // Seed makes distinct options give distinct consignments
	Attachments int    // Attachments is the number of attached files
}

// maxPerBundle is the largest input map a bundle can commit to.
const maxPerBundle = 1<<16 - 1

// ErrOptions is returned by Build for options that cannot give a valid transfer.
var ErrOptions = errors.New("invalid sample options")

// Validate checks that opts describe a transfer New accepts.
// Bundles with empty input maps share a bundle id, so every bundle needs a transition.
func (opts Options) Validate() error {
	switch {
	case opts.Bundles < 0 || opts.Extensions < 0 || opts.Attachments < 0:
		return fmt.Errorf("%w: negative count", ErrOptions)
	case opts.Bundles > 0 && opts.PerBundle < 1:
		return fmt.Errorf("%w: bundles need at least one transition", ErrOptions)
	case opts.PerBundle > maxPerBundle:
		return fmt.Errorf("%w: %d transitions per bundle, max %d", ErrOptions, opts.PerBundle, maxPerBundle)
	}

	return nil
}

// Build returns a valid transfer built from opts.
func Build(opts Options) (*containers.Consignment, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return containers.New(Raw(opts))
}

// Sample is like Build but panics on error.
func Sample(opts Options) *containers.Consignment {
	c, err := Build(opts)
	if err != nil {
		panic("containerstest: " + err.Error())
	}

	return c
}

// Raw returns the consignment of Sample before canonical ordering, with
// bundles and extensions in construction order.
func Raw(opts Options) containers.Consignment {
	types := rgb.TypeSystem{Libs: []rgb.TypeLib{{Name: "RGBContract", Data: []byte{0x01}}}}
	lib := rgb.Lib{Code: []byte("\x00asm\x01\x00\x00\x00")}

	schema := rgb.Schema{
		Name:            "RGB20",
		GlobalTypes:     []uint16{2000, 2001},
		OwnedTypes:      []rgb.AssignmentType{4000},
		TransitionTypes: []uint16{10000},
		ExtensionTypes:  []uint16{20000},
		TypeSystem:      types.ID(),
		Script:          []rgb.LibID{lib.ID()},
	}

	genesis := rgb.Genesis{
		OpBody: rgb.OpBody{
			Globals: []rgb.GlobalState{{Type: 2000, Data: []byte("TICK")}},
			Assignments: []rgb.Assignment{{
				Type:  4000,
				Seal:  rgb.RevealedSeal(rgb.Bitcoin, seal(opts.Seed, 0)),
				State: rgb.StateData{Value: amount(1_000_000)},
			}},
			Valencies: []uint16{1},
		},
		SchemaID:  schema.ID(),
		Timestamp: 1_700_000_000 + int64(opts.Seed),
		Issuer:    "ssi:issuer",
		Testnet:   true,
	}

	contract := genesis.ContractID()
	prev := genesis.ID()

	c := containers.Consignment{
		Version:     containers.ContainerVersion,
		Transfer:    true,
		Schema:      schema,
		Genesis:     genesis,
		AssetTags:   map[rgb.AssignmentType]rgb.AssetTag{4000: rgb.AssetTag(contract)},
		Terminals:   make(map[rgb.BundleID]rgb.Terminal),
		Attachments: make(map[rgb.AttachID][]byte),
		Signatures:  make(map[rgb.ContentID]rgb.ContentSigs),
		Types:       types,
		Scripts:     []rgb.Lib{lib},
		Ifaces: []rgb.IfacePair{{
			Iface: rgb.Iface{Name: "RGB20Fixed"},
			Impl:  rgb.IfaceImpl{SchemaID: schema.ID(), Timestamp: genesis.Timestamp},
		}},
	}
	c.Ifaces[0].Impl.IfaceID = c.Ifaces[0].Iface.ID()

	for b := 0; b < opts.Bundles; b++ {
		bundle := rgb.TransitionBundle{InputMap: make(map[uint32]rgb.OpID)}

		for i := 0; i < opts.PerBundle; i++ {
			t := rgb.Transition{
				OpBody: rgb.OpBody{
					Assignments: []rgb.Assignment{{
						Type:  4000,
						Seal:  rgb.RevealedSeal(rgb.Bitcoin, seal(opts.Seed, b*opts.PerBundle+i+1)),
						State: rgb.StateData{Value: amount(uint64(1000 + i))},
					}},
				},
				Contract:       contract,
				TransitionType: 10000,
				Nonce:          opts.Seed<<32 | uint64(b)<<16 | uint64(i),
				Inputs:         []rgb.Opout{{Op: prev, Type: 4000}},
			}

			bundle.InputMap[uint32(i)] = t.ID()
			bundle.KnownTransitions = append(bundle.KnownTransitions, t)
		}

		ab := rgb.AnchoredBundle{
			Anchor: rgb.Anchor{
				Witness:  rgb.WitnessID{Layer: rgb.Bitcoin, Txid: txid(opts.Seed, b)},
				MPCProof: []byte{byte(b)},
			},
			Bundle: bundle,
		}
		c.Bundles = append(c.Bundles, ab)

		if b == opts.Bundles-1 {
			c.Terminals[ab.BundleID()] = rgb.Terminal{Seals: []rgb.XChainSeal{
				rgb.RevealedSeal(rgb.Bitcoin, seal(opts.Seed, 1)),
			}}
		}
	}

	for i := 0; i < opts.Extensions; i++ {
		c.Extensions = append(c.Extensions, rgb.Extension{
			Contract:      contract,
			ExtensionType: 20000,
			Nonce:         opts.Seed<<32 | uint64(i),
			Redeemed:      []rgb.Redeemed{{Valency: 1, Op: genesis.ID()}},
		})
	}

	for i := 0; i < opts.Attachments; i++ {
		data := []byte{byte(i), byte(opts.Seed)}
		c.Attachments[rgb.NewAttachID(data)] = data
	}

	return c
}

func seal(seed uint64, n int) rgb.BlindSeal {
	return rgb.BlindSeal{
		Method:   rgb.TapretFirst,
		Txid:     txid(seed, n),
		Vout:     uint32(n),
		Blinding: seed*7919 + uint64(n),
	}
}

func txid(seed uint64, n int) rgb.Txid {
	var id rgb.Txid
	binary.LittleEndian.PutUint64(id[:8], seed)
	binary.LittleEndian.PutUint64(id[8:16], uint64(n))
	id[31] = 0xab

	return id
}

func amount(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}
