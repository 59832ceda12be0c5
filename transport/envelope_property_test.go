package transport

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_EnvelopeRoundTrip checks that encode-then-decode of any
// RequestEnvelope built from an arbitrary type tag and JSON-safe payload
// map yields an equivalent value.
func TestProperty_EnvelopeRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("decode(encode(envelope)) == envelope", prop.ForAll(
		func(typeTag string, key string, value int) bool {
			payload, err := json.Marshal(map[string]int{key: value})
			if err != nil {
				return false
			}
			original := RequestEnvelope{TypeTag: typeTag, Payload: payload}

			raw, err := json.Marshal(original)
			if err != nil {
				return false
			}

			decoded, derr := DecodeRequest(raw)
			if derr != nil {
				return false
			}
			if decoded.TypeTag != original.TypeTag {
				return false
			}

			var gotPayload, wantPayload map[string]int
			if err := json.Unmarshal(decoded.Payload, &gotPayload); err != nil {
				return false
			}
			if err := json.Unmarshal(original.Payload, &wantPayload); err != nil {
				return false
			}
			return gotPayload[key] == wantPayload[key]
		},
		gen.AlphaString(),
		gen.Identifier(),
		gen.Int(),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties.TestingRun(t, params)
}

// TestProperty_BinaryFrameRoundTrip checks the same law for the binary
// frame codec across arbitrary payload lengths.
func TestProperty_BinaryFrameRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("DecodeFrame(EncodeFrame(payload)) == payload", prop.ForAll(
		func(payload []byte) bool {
			frame := EncodeFrame(payload)
			decoded, err := DecodeFrame(frame)
			if err != nil {
				return false
			}
			if len(payload) == 0 {
				return len(decoded) == 0
			}
			if len(decoded) != len(payload) {
				return false
			}
			for i := range payload {
				if decoded[i] != payload[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.UInt8()),
	))

	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 100
	properties.TestingRun(t, params)
}
