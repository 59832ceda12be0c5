package transport

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/jrobhoward/rustbridge/rberr"
)

// DecodeCBORPayload decodes a binary-transport frame's payload into v for
// handlers that opt into structured payloads. The on-wire frame shape is
// unchanged; only the payload's internal encoding differs from raw bytes.
func DecodeCBORPayload(payload []byte, v any) *rberr.Error {
	if err := cbor.Unmarshal(payload, v); err != nil {
		return rberr.Wrap(rberr.CodeSerializationError, "malformed cbor payload", err)
	}
	return nil
}

// EncodeCBORPayload encodes a handler's structured return value back into
// frame payload bytes.
func EncodeCBORPayload(v any) ([]byte, *rberr.Error) {
	out, err := cbor.Marshal(v)
	if err != nil {
		return nil, rberr.Wrap(rberr.CodeSerializationError, "failed to encode cbor payload", err)
	}
	return out, nil
}
