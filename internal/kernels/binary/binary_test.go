package binary

import (
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

func TestAddSameShapeF32(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	x := mkF32(t, a, []int{4}, []float32{1, 2, 3, 4})
	y := mkF32(t, a, []int{4}, []float32{0.5, 1.5, 2.5, 3.5})
	out := mkF32(t, a, []int{4}, make([]float32, 4))

	require.NoError(t, Execute(a, Add, x, y, out))
	assert.Equal(t, []float32{1.5, 3.5, 5.5, 7.5}, kernelutil.F32(out.Bytes(a)))
}

func TestScalarBroadcastF32(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	x := mkF32(t, a, []int{3}, []float32{1, 2, 3})
	scalar := mkF32(t, a, []int{1}, []float32{10})
	out := mkF32(t, a, []int{3}, make([]float32, 3))

	require.NoError(t, Execute(a, Mul, x, scalar, out))
	assert.Equal(t, []float32{10, 20, 30}, kernelutil.F32(out.Bytes(a)))
}

func TestRowVectorBroadcastOverMatrix(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	mat := mkF32(t, a, []int{2, 2}, []float32{1, 2, 3, 4})
	row := mkF32(t, a, []int{2}, []float32{10, 20})
	out := mkF32(t, a, []int{2, 2}, make([]float32, 4))

	require.NoError(t, Execute(a, Add, mat, row, out))
	assert.Equal(t, []float32{11, 22, 13, 24}, kernelutil.F32(out.Bytes(a)))
}

func TestDivIntegerByZeroClampsToExtrema(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	off, err := a.Alloc(4 * 3)
	require.NoError(t, err)
	x := tensor.NewTemporary(dtype.I32, []int{3}, off)
	copy(kernelutil.I32(x.Bytes(a)), []int32{5, -5, 0})

	zOff, err := a.Alloc(4 * 3)
	require.NoError(t, err)
	zeros := tensor.NewTemporary(dtype.I32, []int{3}, zOff)

	outOff, err := a.Alloc(4 * 3)
	require.NoError(t, err)
	out := tensor.NewTemporary(dtype.I32, []int{3}, outOff)

	require.NoError(t, Execute(a, Div, x, zeros, out))
	result := kernelutil.I32(out.Bytes(a))
	assert.Equal(t, int32(dtype.I32.MaxSigned()), result[0])
	assert.Equal(t, int32(dtype.I32.MinSigned()), result[1])
	assert.Equal(t, int32(0), result[2])
}

func TestNonBroadcastableShapesFail(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	x := mkF32(t, a, []int{3}, []float32{1, 2, 3})
	y := mkF32(t, a, []int{4}, []float32{1, 2, 3, 4})
	out := mkF32(t, a, []int{4}, make([]float32, 4))

	err := Execute(a, Add, x, y, out)
	require.Error(t, err)
}
