package reduction

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

func TestFullSum1D(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{5}, []float32{1, 2, 3, 4, 5})
	out := mkF32(t, a, []int{}, make([]float32, 1))

	require.NoError(t, Execute(a, Sum, in, out, nil, false))
	assert.Equal(t, float32(15), kernelutil.F32(out.Bytes(a))[0])
}

func TestMeanEqualsSumOverReducedSize(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{4}, []float32{2, 4, 6, 8})
	out := mkF32(t, a, []int{}, make([]float32, 1))

	require.NoError(t, Execute(a, Mean, in, out, nil, false))
	assert.Equal(t, float32(5), kernelutil.F32(out.Bytes(a))[0])
}

func TestMaxPropagatesNaN(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{3}, []float32{1, float32(math.NaN()), 3})
	out := mkF32(t, a, []int{}, make([]float32, 1))

	require.NoError(t, Execute(a, Max, in, out, nil, false))
	assert.True(t, math.IsNaN(float64(kernelutil.F32(out.Bytes(a))[0])))
}

func TestAxisReductionKeepDims(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	out := mkF32(t, a, []int{2, 1}, make([]float32, 2))

	require.NoError(t, Execute(a, Sum, in, out, []int{1}, true))
	assert.Equal(t, []float32{6, 15}, kernelutil.F32(out.Bytes(a)))
}

func TestAxisReductionDropDims(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	out := mkF32(t, a, []int{2}, make([]float32, 2))

	require.NoError(t, Execute(a, Sum, in, out, []int{1}, false))
	assert.Equal(t, []float32{6, 15}, kernelutil.F32(out.Bytes(a)))
}

func TestOutOfRangeAxisFails(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := mkF32(t, a, []int{2, 3}, make([]float32, 6))
	out := mkF32(t, a, []int{2}, make([]float32, 2))

	err := Execute(a, Sum, in, out, []int{5}, false)
	require.Error(t, err)
}

func TestIntegerFullSum1D(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	off, err := a.Alloc(4 * 4)
	require.NoError(t, err)
	in := tensor.NewTemporary(dtype.I32, []int{4}, off)
	copy(kernelutil.I32(in.Bytes(a)), []int32{1, 2, 3, 4})

	outOff, err := a.Alloc(4)
	require.NoError(t, err)
	out := tensor.NewTemporary(dtype.I32, []int{}, outOff)

	require.NoError(t, Execute(a, Sum, in, out, nil, false))
	assert.Equal(t, int32(10), kernelutil.I32(out.Bytes(a))[0])
}
