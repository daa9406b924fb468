package sigs

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"RGBStd/internal/containers/containerstest"
	"RGBStd/internal/rgb"
)

func TestSignVerify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	id := rgb.ContentID{Kind: rgb.ContentSchema, ID: [32]byte{1}}
	sig := key.SignContent(id)

	if len(sig.Signature) != SignatureSize || len(sig.PublicKey) != PublicKeySize {
		t.Fatalf("sizes: sig %d, key %d", len(sig.Signature), len(sig.PublicKey))
	}

	if !VerifyContent(id, sig) {
		t.Fatal("valid signature should verify")
	}

	other := rgb.ContentID{Kind: rgb.ContentGenesis, ID: [32]byte{1}}
	if VerifyContent(other, sig) {
		t.Fatal("signature should not verify for another content kind")
	}
}

func TestWrongKey(t *testing.T) {
	k1, _ := GenerateKey()
	k2, _ := GenerateKey()

	id := rgb.ContentID{Kind: rgb.ContentIface, ID: [32]byte{2}}
	sig := k1.SignContent(id)
	sig.PublicKey = k2.PublicKey()

	if VerifyContent(id, sig) {
		t.Fatal("signature should not verify with another key")
	}
}

func TestDeterministicKeys(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)

	a, err := KeyFromSeed(seed)
	if err != nil {
		t.Fatalf("key from seed: %v", err)
	}
	b, _ := KeyFromSeed(seed)

	if !bytes.Equal(a.PublicKey(), b.PublicKey()) {
		t.Fatal("same seed should give the same key")
	}

	if _, err := KeyFromSeed(seed[:8]); !errors.Is(err, ErrShortSeed) {
		t.Fatalf("expected ErrShortSeed, got %v", err)
	}

	priv := ed25519.NewKeyFromSeed(seed)
	c, _ := KeyFromEd25519(priv)
	d, _ := KeyFromEd25519(priv)

	if !bytes.Equal(c.PublicKey(), d.PublicKey()) {
		t.Fatal("ed25519 derivation should be deterministic")
	}
}

func TestVerifyConsignment(t *testing.T) {
	key, _ := GenerateKey()
	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})

	id := rgb.ContentID{Kind: rgb.ContentGenesis, ID: [32]byte(c.Genesis.ID())}
	c.Signatures[id] = rgb.ContentSigs{key.SignContent(id)}

	if err := VerifyConsignment(c); err != nil {
		t.Fatalf("verify: %v", err)
	}

	bad := key.SignContent(rgb.ContentID{Kind: rgb.ContentSchema})
	c.Signatures[id] = append(c.Signatures[id], bad)

	if err := VerifyConsignment(c); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
