package softmax

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

func mkF32(t *testing.T, a *arena.Arena, shape []int, vals []float32) *tensor.Tensor {
	t.Helper()
	off, err := a.Alloc(len(vals) * 4)
	require.NoError(t, err)
	tn := tensor.NewTemporary(dtype.F32, shape, off)
	copy(kernelutil.F32(tn.Bytes(a)), vals)
	return tn
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{2, 2}, []float32{1, 2, 3, 4})
	out := mkF32(t, a, []int{2, 2}, make([]float32, 4))

	require.NoError(t, Execute(a, Softmax, in, out, 1))
	result := kernelutil.F32(out.Bytes(a))

	assert.InDelta(t, 1.0, float64(result[0]+result[1]), 1e-5)
	assert.InDelta(t, 1.0, float64(result[2]+result[3]), 1e-5)
	assert.InDelta(t, 0.26894, float64(result[0]), 1e-4)
}

func TestLogSoftmaxExpSumsToOne(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{2, 2}, []float32{1, 2, 3, 4})
	out := mkF32(t, a, []int{2, 2}, make([]float32, 4))

	require.NoError(t, Execute(a, LogSoftmax, in, out, 1))
	result := kernelutil.F32(out.Bytes(a))

	sum0 := math.Exp(float64(result[0])) + math.Exp(float64(result[1]))
	assert.InDelta(t, 1.0, sum0, 1e-5)
}

func TestSoftmaxNegativeAxis(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{2, 2}, []float32{1, 2, 3, 4})
	out := mkF32(t, a, []int{2, 2}, make([]float32, 4))

	require.NoError(t, Execute(a, Softmax, in, out, -1))
	result := kernelutil.F32(out.Bytes(a))
	assert.InDelta(t, 1.0, float64(result[0]+result[1]), 1e-5)
}

func TestSoftmaxOnIntegerDtypeFails(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	off, err := a.Alloc(4 * 2)
	require.NoError(t, err)
	in := tensor.NewTemporary(dtype.I32, []int{2}, off)
	outOff, err := a.Alloc(4 * 2)
	require.NoError(t, err)
	out := tensor.NewTemporary(dtype.I32, []int{2}, outOff)

	err = Execute(a, Softmax, in, out, 0)
	require.Error(t, err)
}
