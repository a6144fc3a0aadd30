package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/kernels/binary"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/kernels/reduction"
	"github.com/nmxmxh/tensorcore/internal/kernels/softmax"
)

func TestS1BinaryAdd(t *testing.T) {
	e := New()
	a, err := e.TensorFromData(f32Bytes(1, 2, 3, 4), dtype.F32, []int{4})
	require.NoError(t, err)
	b, err := e.TensorFromData(f32Bytes(0.5, 1.5, 2.5, 3.5), dtype.F32, []int{4})
	require.NoError(t, err)
	out, err := e.AllocTempTensor(dtype.F32, []int{4})
	require.NoError(t, err)

	require.NoError(t, e.ExecuteBinary(binary.Add, a, b, out))
	assert.Equal(t, []float32{1.5, 3.5, 5.5, 7.5}, kernelutil.F32(e.CopyTensorDataToHost(out)))
}

func TestS2Matmul2x2(t *testing.T) {
	e := New()
	a, err := e.TensorFromData(f32Bytes(1, 2, 3, 4), dtype.F32, []int{2, 2})
	require.NoError(t, err)
	b, err := e.TensorFromData(f32Bytes(5, 6, 7, 8), dtype.F32, []int{2, 2})
	require.NoError(t, err)
	out, err := e.AllocTempTensor(dtype.F32, []int{2, 2})
	require.NoError(t, err)

	require.NoError(t, e.ExecuteMatmul(a, b, out))
	assert.Equal(t, []float32{19, 22, 43, 50}, kernelutil.F32(e.CopyTensorDataToHost(out)))
}

func TestS3Softmax(t *testing.T) {
	e := New()
	in, err := e.TensorFromData(f32Bytes(1, 2, 3, 4), dtype.F32, []int{2, 2})
	require.NoError(t, err)
	out, err := e.AllocTempTensor(dtype.F32, []int{2, 2})
	require.NoError(t, err)

	require.NoError(t, e.ExecuteSoftmax(softmax.Softmax, in, out, 1))
	result := kernelutil.F32(e.CopyTensorDataToHost(out))
	assert.InDelta(t, 1.0, float64(result[0]+result[1]), 1e-5)
	assert.InDelta(t, 0.26894, float64(result[0]), 1e-4)
}

func TestS4ReductionSum1D(t *testing.T) {
	e := New()
	in, err := e.TensorFromData(f32Bytes(1, 2, 3, 4, 5), dtype.F32, []int{5})
	require.NoError(t, err)
	out, err := e.AllocTempTensor(dtype.F32, []int{})
	require.NoError(t, err)

	require.NoError(t, e.ExecuteReduction(reduction.Sum, in, out, nil, false))
	assert.Equal(t, float32(15), kernelutil.F32(e.CopyTensorDataToHost(out))[0])
}

func TestS5Slice2DWithOffsets(t *testing.T) {
	e := New()
	in, err := e.TensorFromData(f32Bytes(1, 2, 3, 4, 5, 6, 7, 8, 9), dtype.F32, []int{3, 3})
	require.NoError(t, err)
	out, err := e.AllocTempTensor(dtype.F32, []int{2, 2})
	require.NoError(t, err)

	require.NoError(t, e.ExecuteSlice(in, out, 1, 1))
	assert.Equal(t, []float32{5, 6, 8, 9}, kernelutil.F32(e.CopyTensorDataToHost(out)))
}

func TestS6CheckpointRestore(t *testing.T) {
	e := New()
	_, err := e.AllocTempTensor(dtype.F32, []int{100})
	require.NoError(t, err)
	usedAfterFirst := e.MemoryStats().ArenaUsed

	cp := e.Checkpoint()
	_, err = e.AllocTempTensor(dtype.F32, []int{200})
	require.NoError(t, err)

	require.NoError(t, e.Restore(cp))
	assert.LessOrEqual(t, e.MemoryStats().ArenaUsed, usedAfterFirst)
}

func TestTensorFromDataRoundTrip(t *testing.T) {
	e := New()
	data := f32Bytes(1, 2, 3, 4)
	tn, err := e.TensorFromData(data, dtype.F32, []int{4})
	require.NoError(t, err)
	assert.Equal(t, data, e.CopyTensorDataToHost(tn))
}

func TestCopyHostDataToTensor(t *testing.T) {
	e := New()
	tn, err := e.AllocTempTensor(dtype.F32, []int{4})
	require.NoError(t, err)

	data := f32Bytes(9, 8, 7, 6)
	require.NoError(t, e.CopyHostDataToTensor(tn, data))
	assert.Equal(t, data, e.CopyTensorDataToHost(tn))
}

func TestPatternCacheAccumulatesEvidence(t *testing.T) {
	e := New()
	for i := 0; i < 3; i++ {
		a, err := e.AllocTempTensor(dtype.F32, []int{4})
		require.NoError(t, err)
		b, err := e.AllocTempTensor(dtype.F32, []int{4})
		require.NoError(t, err)
		out, err := e.AllocTempTensor(dtype.F32, []int{4})
		require.NoError(t, err)
		require.NoError(t, e.ExecuteBinary(binary.Add, a, b, out))
	}

	stats := e.PatternCacheStats()
	assert.GreaterOrEqual(t, stats.Count, 1)
	assert.GreaterOrEqual(t, stats.TotalHits, uint64(2))
}

func TestGCAndPatternCacheToggle(t *testing.T) {
	e := New()
	_, err := e.AllocPersistentTensor(dtype.F32, []int{4})
	require.NoError(t, err)
	assert.Equal(t, 1, e.GC())

	e.SetPatternOptimization(false)
	e.ClearPatternCache()
	assert.Equal(t, 0, e.PatternCacheStats().Count)
}

func TestS7PatternBulkAllocationFailsOnFreshArenaForHugeRequest(t *testing.T) {
	e := New()
	fits := e.mem.CanBulkAllocate(1024 + 2048)
	assert.True(t, fits)
	tooBig := e.mem.CanBulkAllocate(1024 * 1024 * 1024)
	assert.False(t, tooBig)
}

func f32Bytes(vals ...float32) []byte {
	b := make([]byte, len(vals)*4)
	copy(kernelutil.F32(b), vals)
	return b
}
