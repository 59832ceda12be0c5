// Package transport implements the two request/response codecs a handle
// accepts: the JSON envelope and the fixed-layout binary frame.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/jrobhoward/rustbridge/rberr"
)

// RequestEnvelope is the JSON request shape: {type_tag, payload}.
type RequestEnvelope struct {
	TypeTag string          `json:"type_tag"`
	Payload json.RawMessage `json:"payload"`
}

// ResponseEnvelope is the JSON response shape. Success iff ErrorCode == 0.
type ResponseEnvelope struct {
	TypeTag      string          `json:"type_tag"`
	Payload      json.RawMessage `json:"payload"`
	ErrorCode    uint32          `json:"error_code"`
	ErrorMessage *string         `json:"error_message"`
}

// DecodeRequest parses a RequestEnvelope. Unknown envelope fields are
// ignored (encoding/json already does this); unknown payload fields are
// left in the raw payload for the handler to decide. Decode failures
// produce SerializationError(5) with the offending byte offset when the
// standard library's decoder reports one.
func DecodeRequest(raw []byte) (*RequestEnvelope, *rberr.Error) {
	var env RequestEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, serializationError(err)
	}
	return &env, nil
}

// EncodeResponse builds a successful response envelope.
func EncodeResponse(typeTag string, payload []byte) ([]byte, *rberr.Error) {
	env := ResponseEnvelope{
		TypeTag:   typeTag,
		Payload:   rawOrNull(payload),
		ErrorCode: 0,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, serializationError(err)
	}
	return out, nil
}

// EncodeErrorResponse builds a failed response envelope carrying the
// taxonomy code and message.
func EncodeErrorResponse(typeTag string, rerr *rberr.Error) ([]byte, *rberr.Error) {
	msg := rerr.Message
	env := ResponseEnvelope{
		TypeTag:      typeTag,
		Payload:      rawOrNull(nil),
		ErrorCode:    uint32(rerr.Code),
		ErrorMessage: &msg,
	}
	out, err := json.Marshal(env)
	if err != nil {
		return nil, serializationError(err)
	}
	return out, nil
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

func serializationError(err error) *rberr.Error {
	if se, ok := err.(*json.SyntaxError); ok {
		return rberr.Wrap(rberr.CodeSerializationError, offsetMessage(se.Offset), err)
	}
	if ute, ok := err.(*json.UnmarshalTypeError); ok {
		return rberr.Wrap(rberr.CodeSerializationError, offsetMessage(ute.Offset), err)
	}
	return rberr.Wrap(rberr.CodeSerializationError, "malformed envelope", err)
}

func offsetMessage(offset int64) string {
	return fmt.Sprintf("malformed envelope at byte offset %d", offset)
}
