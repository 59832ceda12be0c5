package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cborSample struct {
	Name  string `cbor:"name"`
	Count int    `cbor:"count"`
}

func TestCBORRoundTrip(t *testing.T) {
	original := cborSample{Name: "widget", Count: 3}
	encoded, err := EncodeCBORPayload(original)
	require.Nil(t, err)

	var decoded cborSample
	derr := DecodeCBORPayload(encoded, &decoded)
	require.Nil(t, derr)
	assert.Equal(t, original, decoded)
}

func TestCBORDecodeMalformed(t *testing.T) {
	var decoded cborSample
	err := DecodeCBORPayload([]byte{0xff, 0xff, 0xff}, &decoded)
	require.NotNil(t, err)
}
