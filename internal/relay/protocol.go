package relay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	flatbuffers "github.com/google/flatbuffers/go"

	"RGBStd/internal/containers"
	"RGBStd/internal/types"
)

const (
	// maxMessageSize is the largest accepted envelope.
	maxMessageSize = 64 << 20

	// lengthPrefixSize is the size of the big-endian length prefix.
	lengthPrefixSize = 4
)

// ErrMessageTooLarge is returned for envelopes above maxMessageSize.
var ErrMessageTooLarge = errors.New("message too large")

// envelope is the decoded form of a types.Envelope.
type envelope struct {
	kind    types.EnvelopeKind    // kind selects the message
	id      containers.TransferID // id is the transfer concerned
	payload []byte                // payload is the container file for transfers
	reason  string                // reason explains a rejection
}

// marshal builds the flatbuffers table.
func (e *envelope) marshal() []byte {
	b := flatbuffers.NewBuilder(len(e.payload) + 128)

	idOffset := b.CreateByteVector(e.id[:])

	var payloadOffset, reasonOffset flatbuffers.UOffsetT
	if len(e.payload) > 0 {
		payloadOffset = b.CreateByteVector(e.payload)
	}
	if e.reason != "" {
		reasonOffset = b.CreateString(e.reason)
	}

	types.EnvelopeStart(b)
	types.EnvelopeAddKind(b, e.kind)
	types.EnvelopeAddTransferId(b, idOffset)
	if payloadOffset != 0 {
		types.EnvelopeAddPayload(b, payloadOffset)
	}
	if reasonOffset != 0 {
		types.EnvelopeAddErrorMessage(b, reasonOffset)
	}
	types.FinishEnvelopeBuffer(b, types.EnvelopeEnd(b))

	return b.FinishedBytes()
}

// unmarshalEnvelope reads a table, copying every field out of data.
func unmarshalEnvelope(data []byte) (env *envelope, err error) {
	// Malformed tables make the generated accessors index out of range.
	defer func() {
		if r := recover(); r != nil {
			env, err = nil, fmt.Errorf("malformed envelope: %v", r)
		}
	}()

	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, errors.New("malformed envelope: short buffer")
	}

	t := types.GetRootAsEnvelope(data, 0)

	idBytes := t.TransferIdBytes()
	if len(idBytes) != len(containers.TransferID{}) {
		return nil, fmt.Errorf("malformed envelope: transfer id of %d bytes", len(idBytes))
	}

	env = &envelope{
		kind:    t.Kind(),
		id:      containers.TransferID(idBytes),
		payload: append([]byte(nil), t.PayloadBytes()...),
		reason:  string(t.ErrorMessage()),
	}

	return env, nil
}

// writeMessage writes a length-prefixed message.
func writeMessage(w io.Writer, data []byte) error {
	if len(data) > maxMessageSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(data), maxMessageSize)
	}

	var prefix [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))

	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length:\n%w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload:\n%w", err)
	}

	return nil
}

// readMessage reads a length-prefixed message.
func readMessage(r io.Reader) ([]byte, error) {
	var prefix [lengthPrefixSize]byte

	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("read length:\n%w", err)
	}

	length := binary.BigEndian.Uint32(prefix[:])
	if length > maxMessageSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, maxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read payload:\n%w", err)
	}

	return data, nil
}
