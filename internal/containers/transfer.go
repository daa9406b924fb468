package containers

import (
	"encoding/hex"
	"fmt"

	"RGBStd/internal/baid58"
	"RGBStd/internal/commit"
	"RGBStd/internal/rgb"
	"RGBStd/internal/strict"
)

const (
	// TransferIDTag is the domain tag bound into every TransferID.
	TransferIDTag = "urn:lnp-bp:rgb:transfer#2024-02-04"

	// transferHRI is the human-readable prefix of the textual form.
	transferHRI = "transfer"
)

// TransferID is the content-addressed identifier of a transfer.
type TransferID [32]byte

// TransferIDFromEngine finishes a commitment engine into a TransferID.
func TransferIDFromEngine(e *commit.Engine) (TransferID, error) {
	digest, err := e.Finish()
	if err != nil {
		return TransferID{}, err
	}

	return TransferID(digest), nil
}

// ParseTransferID parses the textual form produced by String.
func ParseTransferID(s string) (TransferID, error) {
	payload, err := baid58.Parse(transferHRI, s, baid58.Chunking32)
	if err != nil {
		return TransferID{}, fmt.Errorf("parse transfer id:\n%w", err)
	}

	return TransferID(payload), nil
}

// String returns "transfer:<chunked base58>#<checksum>".
func (id TransferID) String() string {
	return baid58.Format(transferHRI, id, baid58.Chunking32)
}

// Hex returns the hex form of the raw bytes.
func (id TransferID) Hex() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id TransferID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *TransferID) UnmarshalText(text []byte) error {
	parsed, err := ParseTransferID(string(text))
	if err != nil {
		return err
	}

	*id = parsed

	return nil
}

// TransferID computes the transfer id. The order of the committed fields is
// part of the protocol: changing it changes every identifier.
//
// Set- and map-typed fields are committed in canonical order, so the id does
// not depend on how the consignment was assembled. A collection above its
// bound is reported as an error wrapping strict.ErrSizeLimit.
func (c *Consignment) TransferID() (TransferID, error) {
	if err := c.Validate(); err != nil {
		return TransferID{}, err
	}

	e := commit.NewEngine(TransferIDTag)

	e.CommitToSerialized(strict.U8(c.Version))
	e.CommitToSerialized(strict.Bool(c.Transfer))

	e.CommitToSerialized(c.ContractID())
	e.CommitToSerialized(c.Genesis.DiscloseHash())
	e.CommitToSet("ifaces", ifacesBound, c.implIDs())

	e.CommitToSet("bundles", bundlesBound, c.bundleDisclosures())
	e.CommitToSet("extensions", extensionsBound, c.extensionDisclosures())
	e.CommitToSet("terminals", terminalsBound, endpoints(c.TerminalsDisclose()))

	e.CommitToSet("attachments", attachmentsBound, c.attachIDs())
	e.CommitToSet("supplements", supplementsBound, c.supplements())
	e.CommitToMap("asset tags", assetTagsBound, c.assetTagEntries())
	e.CommitToMap("signatures", signaturesBound, c.signatureEntries())

	return TransferIDFromEngine(e)
}

// implIDs returns the implementation id of every interface pair.
func (c *Consignment) implIDs() []strict.Encodable {
	out := make([]strict.Encodable, len(c.Ifaces))
	for i, pair := range c.Ifaces {
		out[i] = pair.Impl.ImplID()
	}

	return out
}

// bundleDisclosures returns the disclosure hash of every bundle.
func (c *Consignment) bundleDisclosures() []strict.Encodable {
	out := make([]strict.Encodable, len(c.Bundles))
	for i := range c.Bundles {
		out[i] = c.Bundles[i].Bundle.DiscloseHash()
	}

	return out
}

// extensionDisclosures returns the disclosure hash of every extension.
func (c *Consignment) extensionDisclosures() []strict.Encodable {
	out := make([]strict.Encodable, len(c.Extensions))
	for i := range c.Extensions {
		out[i] = c.Extensions[i].DiscloseHash()
	}

	return out
}

// attachIDs returns the attachment ids.
func (c *Consignment) attachIDs() []strict.Encodable {
	out := make([]strict.Encodable, 0, len(c.Attachments))
	for id := range c.Attachments {
		out = append(out, id)
	}

	return out
}

// supplements returns the supplements as set members.
func (c *Consignment) supplements() []strict.Encodable {
	out := make([]strict.Encodable, len(c.Supplements))
	for i, s := range c.Supplements {
		out[i] = s
	}

	return out
}

// assetTagEntries returns the asset tag map entries.
func (c *Consignment) assetTagEntries() []commit.Entry {
	out := make([]commit.Entry, 0, len(c.AssetTags))
	for t, tag := range c.AssetTags {
		out = append(out, commit.Entry{Key: t, Value: tag})
	}

	return out
}

// signatureEntries returns the signature map entries.
func (c *Consignment) signatureEntries() []commit.Entry {
	out := make([]commit.Entry, 0, len(c.Signatures))
	for id, sigs := range c.Signatures {
		out = append(out, commit.Entry{Key: id, Value: sigs})
	}

	return out
}

// endpoints converts seal endpoints to set members.
func endpoints(list []rgb.SealEndpoint) []strict.Encodable {
	out := make([]strict.Encodable, len(list))
	for i, e := range list {
		out[i] = e
	}

	return out
}
