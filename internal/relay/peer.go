package relay

import (
	"crypto/ed25519"
	"encoding/hex"
)

// Peer identifies the remote side of a connection.
type Peer struct {
	PublicKey ed25519.PublicKey // PublicKey is the key of the peer certificate
	Address   string            // Address is the remote UDP address
}

// String returns the short key form followed by the address.
func (p Peer) String() string {
	if len(p.PublicKey) < 8 {
		return p.Address
	}

	return hex.EncodeToString(p.PublicKey[:8]) + "@" + p.Address
}
