package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/jrobhoward/rustbridge/rberr"
)

// HeaderVersion1 is the only header version this codec recognizes.
const HeaderVersion1 uint8 = 1

// HeaderSize is the fixed header layout: one version byte, three reserved
// padding bytes bringing the next field to a 4-byte boundary, and an
// 8-byte payload_size — 12 bytes, packed densely with no implicit padding.
// The message identifier travels outside the frame, as an explicit
// argument to plugin_call_raw; it is not part of the header.
const HeaderSize = 12

// byteOrder is the platform's native order. The binary frame is not
// portable across architectures of differing endianness; the bundle
// manifest's target triple is what prevents cross-loading a frame built on
// the wrong one.
var byteOrder = binary.NativeEndian

// DecodeFrame validates and strips a binary frame's header, returning the
// payload bytes. A short buffer, an unrecognized version, or a
// payload_size mismatch all produce SerializationError(5).
func DecodeFrame(buf []byte) ([]byte, *rberr.Error) {
	if len(buf) < HeaderSize {
		return nil, rberr.Newf(rberr.CodeSerializationError, "binary frame shorter than header (%d < %d bytes)", len(buf), HeaderSize)
	}
	version := buf[0]
	if version != HeaderVersion1 {
		return nil, rberr.Newf(rberr.CodeSerializationError, "unrecognized binary frame version %d", version)
	}
	payloadSize := byteOrder.Uint64(buf[4:12])
	payload := buf[HeaderSize:]
	if payloadSize != uint64(len(payload)) {
		return nil, rberr.Newf(rberr.CodeSerializationError, "binary frame payload_size mismatch: header says %d, buffer has %d", payloadSize, len(payload))
	}
	return payload, nil
}

// EncodeFrame builds a freshly allocated header+payload buffer for a
// response: header version is the current version, payload_size reflects
// the payload actually written.
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	buf[0] = HeaderVersion1
	// buf[1:4] stay zero: reserved padding.
	byteOrder.PutUint64(buf[4:12], uint64(len(payload)))
	copy(buf[HeaderSize:], payload)
	return buf
}

// DescribeFrame is a debugging helper used by the test harness to print a
// frame's header fields without decoding the payload.
func DescribeFrame(buf []byte) string {
	if len(buf) < HeaderSize {
		return fmt.Sprintf("<short frame: %d bytes>", len(buf))
	}
	return fmt.Sprintf("version=%d payload_size=%d", buf[0], byteOrder.Uint64(buf[4:12]))
}
