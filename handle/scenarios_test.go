package handle

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jrobhoward/rustbridge/rberr"
	"github.com/jrobhoward/rustbridge/transport"
)

// These tests drive a handle the way a real host would: building a
// RequestEnvelope or binary frame, decoding it on the way in, calling the
// handle, and encoding the result on the way out.

func TestScenarioEchoRoundTrip(t *testing.T) {
	h, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)
	defer h.Shutdown()

	raw, _ := json.Marshal(transport.RequestEnvelope{TypeTag: "echo", Payload: json.RawMessage(`{"n":42}`)})
	req, derr := transport.DecodeRequest(raw)
	require.Nil(t, derr)

	out, cerr := h.Call(req.TypeTag, req.Payload)
	require.Nil(t, cerr)

	resp, eerr := transport.EncodeResponse(req.TypeTag, out)
	require.Nil(t, eerr)

	var env transport.ResponseEnvelope
	require.NoError(t, json.Unmarshal(resp, &env))
	assert.Equal(t, uint32(0), env.ErrorCode)
	assert.JSONEq(t, `{"n":42}`, string(env.Payload))
}

func TestScenarioUnknownTagProducesUnknownMessageType(t *testing.T) {
	h, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)
	defer h.Shutdown()

	_, cerr := h.Call("does-not-exist", []byte(`{}`))
	require.NotNil(t, cerr)

	resp, eerr := transport.EncodeErrorResponse("does-not-exist", cerr)
	require.Nil(t, eerr)

	var env transport.ResponseEnvelope
	require.NoError(t, json.Unmarshal(resp, &env))
	assert.Equal(t, uint32(rberr.CodeUnknownMessageType), env.ErrorCode)
	require.NotNil(t, env.ErrorMessage)
}

func TestScenarioMalformedJSONNeverReachesHandler(t *testing.T) {
	_, derr := transport.DecodeRequest([]byte(`{"type_tag": "echo", "payload": `))
	require.NotNil(t, derr)
	assert.Equal(t, rberr.CodeSerializationError, derr.Code)
}

func TestScenarioConcurrencyLimitRejectsOverflow(t *testing.T) {
	stub := newStub()
	stub.sleepFor = 300 * time.Millisecond
	rawConfig, _ := json.Marshal(map[string]any{"max_concurrent_ops": 4})
	h, err := Init(stub, "stub", rawConfig, 0, nil, nil)
	require.Nil(t, err)
	defer h.Shutdown()

	const callers = 15
	var wg sync.WaitGroup
	var successes, rejections int
	var mu sync.Mutex
	for i := 0; i < callers; i++ {
		wg.Add(1)
		delay := time.Duration(i) * 10 * time.Millisecond
		go func() {
			defer wg.Done()
			time.Sleep(delay)
			_, cerr := h.Call("echo", []byte("x"))
			mu.Lock()
			defer mu.Unlock()
			if cerr == nil {
				successes++
			} else {
				assert.Equal(t, rberr.CodeTooManyRequests, cerr.Code)
				rejections++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, callers, successes+rejections)
	assert.True(t, successes >= 1)
	assert.True(t, rejections >= 1)
	assert.Equal(t, uint64(rejections), h.RejectedCount())
}

func TestScenarioBinaryFrameRoundTrip(t *testing.T) {
	h, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)
	defer h.Shutdown()

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	respFrame, cerr := h.CallRaw(1, transport.EncodeFrame(payload))
	require.Nil(t, cerr)

	assert.Equal(t, transport.HeaderVersion1, respFrame[0])
	finalPayload, derr := transport.DecodeFrame(respFrame)
	require.Nil(t, derr)
	assert.Equal(t, payload, finalPayload)
}

func TestScenarioShutdownThenReloadBehavesIdentically(t *testing.T) {
	stub := newStub()
	h1, err := Init(stub, "stub", nil, 0, nil, nil)
	require.Nil(t, err)

	out1, cerr := h1.Call("echo", []byte(`{"x":1}`))
	require.Nil(t, cerr)

	require.Nil(t, h1.Shutdown())
	firstID := h1.ID()
	_, ok := Lookup(firstID)
	assert.False(t, ok)

	h2, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)
	defer h2.Shutdown()

	out2, cerr := h2.Call("echo", []byte(`{"x":1}`))
	require.Nil(t, cerr)

	assert.JSONEq(t, string(out1), string(out2))
	assert.NotEqual(t, firstID, h2.ID())
}
