// Package sigs signs and verifies contract content identifiers with BLS12-381
// (public keys on G1, signatures on G2).
package sigs

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"

	"RGBStd/internal/containers"
	"RGBStd/internal/rgb"
)

const (
	// PublicKeySize is the size of a compressed public key.
	PublicKeySize = 48

	// SignatureSize is the size of a compressed signature.
	SignatureSize = 96
)

// dst separates content signatures from any other use of the same key.
var dst = []byte("RGB_CONTENT_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_")

var (
	// ErrInvalidSignature is returned when a content signature does not verify.
	ErrInvalidSignature = errors.New("invalid content signature")

	// ErrShortSeed is returned when a seed has less than 32 bytes.
	ErrShortSeed = errors.New("seed must be at least 32 bytes")
)

// Key is a BLS signing key.
type Key struct {
	secret *blst.SecretKey // secret is the private scalar
	public *blst.P1Affine  // public is the public point
}

// GenerateKey creates a key from a random seed.
func GenerateKey() (*Key, error) {
	var ikm [32]byte
	if _, err := rand.Read(ikm[:]); err != nil {
		return nil, fmt.Errorf("generate random seed:\n%w", err)
	}

	return KeyFromSeed(ikm[:])
}

// KeyFromSeed derives a key deterministically from seed.
func KeyFromSeed(seed []byte) (*Key, error) {
	if len(seed) < 32 {
		return nil, ErrShortSeed
	}

	secret := blst.KeyGen(seed)
	if secret == nil {
		return nil, errors.New("bls key generation failed")
	}

	return &Key{secret: secret, public: new(blst.P1Affine).From(secret)}, nil
}

// KeyFromEd25519 derives the content signing key bound to a node identity.
func KeyFromEd25519(priv ed25519.PrivateKey) (*Key, error) {
	h := blake3.New()
	h.Write([]byte("rgb-content-sig-keygen"))
	h.Write(priv.Seed())

	var seed [32]byte
	h.Sum(seed[:0])

	return KeyFromSeed(seed[:])
}

// PublicKey returns the compressed public key.
func (k *Key) PublicKey() []byte {
	return k.public.Compress()
}

// SignContent signs a content id.
func (k *Key) SignContent(id rgb.ContentID) rgb.IdentitySig {
	sig := new(blst.P2Affine).Sign(k.secret, id.Bytes(), dst)

	return rgb.IdentitySig{PublicKey: k.PublicKey(), Signature: sig.Compress()}
}

// VerifyContent reports whether sig is a valid signature over id.
func VerifyContent(id rgb.ContentID, sig rgb.IdentitySig) bool {
	if len(sig.Signature) != SignatureSize || len(sig.PublicKey) != PublicKeySize {
		return false
	}

	s := new(blst.P2Affine).Uncompress(sig.Signature)
	if s == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(sig.PublicKey)
	if pk == nil {
		return false
	}

	return s.Verify(true, pk, true, id.Bytes(), dst)
}

// VerifyConsignment checks every signature carried by c.
func VerifyConsignment(c *containers.Consignment) error {
	for id, list := range c.Signatures {
		for i, sig := range list {
			if !VerifyContent(id, sig) {
				return fmt.Errorf("%w: content %d:%x signature %d", ErrInvalidSignature, id.Kind, id.ID, i)
			}
		}
	}

	return nil
}
