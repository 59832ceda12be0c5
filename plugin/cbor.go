package plugin

import "github.com/jrobhoward/rustbridge/transport"

// NewCBORHandler adapts a typed function into a BinaryHandler for
// handlers whose frame payload is CBOR-structured rather than raw bytes.
// The dispatcher strips the frame header as usual; this adapter then
// decodes the payload into Req and encodes the returned Resp back into
// payload bytes, so the on-wire frame shape is unchanged. A payload that
// does not decode is SerializationError(5).
func NewCBORHandler[Req, Resp any](fn func(ctx Context, req Req) (Resp, error)) BinaryHandler {
	return func(ctx Context, _ uint32, payload []byte) ([]byte, error) {
		var req Req
		if derr := transport.DecodeCBORPayload(payload, &req); derr != nil {
			return nil, derr
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		out, eerr := transport.EncodeCBORPayload(resp)
		if eerr != nil {
			return nil, eerr
		}
		return out, nil
	}
}
