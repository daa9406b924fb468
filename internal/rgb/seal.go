package rgb

import (
	"encoding/hex"

	"RGBStd/internal/commit"
	"RGBStd/internal/strict"
)

// CloseMethod is the single-use-seal closing method.
type CloseMethod uint8

const (
	// TapretFirst commits in the first taproot output.
	TapretFirst CloseMethod = 0

	// OpretFirst commits in the first OP_RETURN output.
	OpretFirst CloseMethod = 1
)

// BlindSeal is a revealed single-use seal definition with its blinding factor.
type BlindSeal struct {
	Method   CloseMethod // Method is how the seal is closed
	Txid     Txid        // Txid is the transaction holding the output
	Vout     uint32      // Vout is the output index
	Blinding uint64      // Blinding hides the outpoint in the concealed form
}

// StrictEncode writes the seal fields in declaration order.
func (s BlindSeal) StrictEncode(w *strict.Writer) {
	w.U8(uint8(s.Method))
	w.Array32(s.Txid)
	w.U32(s.Vout)
	w.U64(s.Blinding)
}

// Conceal returns the secret form of the seal.
func (s BlindSeal) Conceal() SecretSeal {
	return SecretSeal(commit.MustTagged(TagSeal, s))
}

// SecretSeal is the concealed form of a blind seal.
type SecretSeal [32]byte

// StrictEncode writes the secret seal.
func (s SecretSeal) StrictEncode(w *strict.Writer) { w.Array32(s) }

// String returns the hex form.
func (s SecretSeal) String() string { return hex.EncodeToString(s[:]) }

// XChainSeal is a seal on a given layer, either revealed or already concealed.
type XChainSeal struct {
	Layer    Layer1     // Layer is the chain the seal lives on
	Revealed *BlindSeal // Revealed is the seal definition, nil when concealed
	Secret   SecretSeal // Secret is used only when Revealed is nil
}

// Clone returns a copy that shares no memory with s.
func (s XChainSeal) Clone() XChainSeal {
	if s.Revealed != nil {
		seal := *s.Revealed
		s.Revealed = &seal
	}

	return s
}

// RevealedSeal creates a revealed seal on the given layer.
func RevealedSeal(layer Layer1, seal BlindSeal) XChainSeal {
	return XChainSeal{Layer: layer, Revealed: &seal}
}

// ConcealedSeal creates a seal that is only known in concealed form.
func ConcealedSeal(layer Layer1, secret SecretSeal) XChainSeal {
	return XChainSeal{Layer: layer, Secret: secret}
}

// IsRevealed reports whether the seal definition is known.
func (s XChainSeal) IsRevealed() bool {
	return s.Revealed != nil
}

// Conceal returns the concealed form. Concealing is idempotent:
// a seal that is already concealed yields its own secret.
func (s XChainSeal) Conceal() XChainSecretSeal {
	secret := s.Secret
	if s.Revealed != nil {
		secret = s.Revealed.Conceal()
	}

	return XChainSecretSeal{Layer: s.Layer, Seal: secret}
}

// XChainSecretSeal is a concealed seal on a given layer.
type XChainSecretSeal struct {
	Layer Layer1     // Layer is the chain the seal lives on
	Seal  SecretSeal // Seal is the concealed seal
}

// StrictEncode writes the layer tag and the secret seal.
func (s XChainSecretSeal) StrictEncode(w *strict.Writer) {
	w.U8(uint8(s.Layer))
	w.Array32(s.Seal)
}

// String returns "<chain>:<secret hex>".
func (s XChainSecretSeal) String() string {
	return s.Layer.String() + ":" + s.Seal.String()
}

// SealEndpoint is a terminal seal of a bundle, always in concealed form.
type SealEndpoint struct {
	Bundle BundleID         // Bundle is the bundle the seal terminates
	Seal   XChainSecretSeal // Seal is the concealed seal
}

// StrictEncode writes the bundle id followed by the concealed seal.
func (e SealEndpoint) StrictEncode(w *strict.Writer) {
	w.Array32(e.Bundle)
	e.Seal.StrictEncode(w)
}
