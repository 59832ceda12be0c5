package handle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorSnapshotsIntrospectionData(t *testing.T) {
	h, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)
	defer h.Shutdown()

	d := h.Descriptor()
	assert.Equal(t, "stub", d.Name)
	assert.Equal(t, "active", d.State)
	assert.Equal(t, []string{"echo", "fail", "panic"}, d.SupportedTypes)
	assert.True(t, d.SupportsBinary)
	assert.Equal(t, []uint32{1}, d.BinaryMessageIDs)
	assert.Empty(t, d.Version)
}

func TestDescriptorStateFollowsLifecycle(t *testing.T) {
	h, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)

	require.Nil(t, h.Shutdown())
	assert.Equal(t, "stopped", h.Descriptor().State)
}

func TestStatsCountAdmittedRejectedAndErrored(t *testing.T) {
	h, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)
	defer h.Shutdown()

	_, cerr := h.Call("echo", []byte(`{}`))
	require.Nil(t, cerr)
	_, cerr = h.Call("fail", nil)
	require.NotNil(t, cerr)
	_, cerr = h.Call("panic", nil)
	require.NotNil(t, cerr)

	s := h.Stats()
	assert.Equal(t, uint64(3), s.TotalRequests)
	assert.Equal(t, uint64(0), s.RejectedRequests)
	assert.Equal(t, uint64(2), s.HandlerErrors)
}

func TestStatsRejectedMatchesRejectedCount(t *testing.T) {
	h, err := Init(newStub(), "stub", nil, 0, nil, nil)
	require.Nil(t, err)
	defer h.Shutdown()

	_, _ = h.Call("echo", []byte(`{}`))
	assert.Equal(t, h.RejectedCount(), h.Stats().RejectedRequests)
}
