package memsys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/tensorcore/internal/dtype"
)

func TestAllocTempCanonicalStrides(t *testing.T) {
	s := New()
	tn, err := s.AllocTemp(dtype.F32, []int{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, tn.Meta.Strides)
	assert.Len(t, tn.Bytes(s.Arena), 24)
}

func TestAllocPersistentZeroInitialized(t *testing.T) {
	s := New()
	tn, err := s.AllocPersistent(dtype.I32, []int{4})
	require.NoError(t, err)
	for _, b := range tn.Bytes(nil) {
		assert.Zero(t, b)
	}
}

func TestTensorFromDataRoundTrip(t *testing.T) {
	s := New()
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	tn, err := s.TensorFromData(data, dtype.I64, []int{1})
	require.NoError(t, err)
	assert.Equal(t, data, tn.Bytes(nil))
}

func TestTensorFromDataLengthMismatch(t *testing.T) {
	s := New()
	_, err := s.TensorFromData([]byte{1, 2, 3}, dtype.F32, []int{1})
	require.Error(t, err)
}

func TestBulkAllocateForPatternSuccess(t *testing.T) {
	s := New()
	reqs := []AllocationRequirement{
		{Dtype: dtype.U8, Shape: []int{1024}, Align: 16},
		{Dtype: dtype.U8, Shape: []int{2048}, Align: 16},
	}
	tensors, err := s.BulkAllocateForPattern(reqs)
	require.NoError(t, err)
	assert.Len(t, tensors, 2)
}

func TestBulkAllocateForPatternRollsBackOnFailure(t *testing.T) {
	s := NewWithArenaCapacity(4096)
	usedBefore := s.Arena.Used()

	reqs := []AllocationRequirement{
		{Dtype: dtype.U8, Shape: []int{1024}, Align: 16},
		{Dtype: dtype.U8, Shape: []int{1024 * 1024 * 1024}, Align: 16}, // exceeds arena availability
	}
	_, err := s.BulkAllocateForPattern(reqs)
	require.Error(t, err)
	assert.Equal(t, usedBefore, s.Arena.Used(), "failed bulk allocation must roll back fully")
}

func TestCheckpointRestoreThroughSystem(t *testing.T) {
	s := New()
	_, err := s.AllocTemp(dtype.F32, []int{100})
	require.NoError(t, err)
	usedAfterFirst := s.Arena.Used()

	cp := s.Checkpoint()
	_, err = s.AllocTemp(dtype.F32, []int{200})
	require.NoError(t, err)

	require.NoError(t, s.Restore(cp))
	assert.LessOrEqual(t, s.Arena.Used(), usedAfterFirst)
}

func TestGCPersistentForwardsToStore(t *testing.T) {
	s := New()
	_, err := s.AllocPersistent(dtype.F32, []int{4})
	require.NoError(t, err)
	evicted := s.GCPersistent()
	assert.Equal(t, 1, evicted)
}

func TestStatsOf(t *testing.T) {
	s := New()
	_, err := s.AllocTemp(dtype.F32, []int{10})
	require.NoError(t, err)
	_, err = s.AllocPersistent(dtype.F32, []int{10})
	require.NoError(t, err)

	st := s.StatsOf()
	assert.Equal(t, 1, st.PersistentCount)
	assert.Equal(t, 40, st.PersistentBytes)
	assert.Equal(t, st.ArenaUsed+st.PersistentBytes, st.Total)
}
