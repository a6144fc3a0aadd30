package unary

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

func allocF32(t *testing.T, a *arena.Arena, vals ...float32) *tensor.Tensor {
	t.Helper()
	off, err := a.Alloc(len(vals) * 4)
	require.NoError(t, err)
	tn := tensor.NewTemporary(dtype.F32, []int{len(vals)}, off)
	copy(kernelutil.F32(tn.Bytes(a)), vals)
	return tn
}

func TestNegF32(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := allocF32(t, a, 1, -2, 3)
	out := allocF32(t, a, 0, 0, 0)

	require.NoError(t, Execute(a, Neg, in, out))
	assert.Equal(t, []float32{-1, 2, -3}, kernelutil.F32(out.Bytes(a)))
}

func TestSqrtNegativeIsNaN(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := allocF32(t, a, -4)
	out := allocF32(t, a, 0)

	require.NoError(t, Execute(a, Sqrt, in, out))
	assert.True(t, math.IsNaN(float64(kernelutil.F32(out.Bytes(a))[0])))
}

func TestSinOnIntegerDtypeFails(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	off, err := a.Alloc(4)
	require.NoError(t, err)
	in := tensor.NewTemporary(dtype.I32, []int{1}, off)
	outOff, err := a.Alloc(4)
	require.NoError(t, err)
	out := tensor.NewTemporary(dtype.I32, []int{1}, outOff)

	err = Execute(a, Sin, in, out)
	require.Error(t, err)
}

func TestSquareIntegers(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	off, err := a.Alloc(4 * 3)
	require.NoError(t, err)
	in := tensor.NewTemporary(dtype.I32, []int{3}, off)
	copy(kernelutil.I32(in.Bytes(a)), []int32{2, -3, 4})

	outOff, err := a.Alloc(4 * 3)
	require.NoError(t, err)
	out := tensor.NewTemporary(dtype.I32, []int{3}, outOff)

	require.NoError(t, Execute(a, Square, in, out))
	assert.Equal(t, []int32{4, 9, 16}, kernelutil.I32(out.Bytes(a)))
}

func TestDtypeMismatchFails(t *testing.T) {
	a := arena.NewWithCapacity(4096)
	in := allocF32(t, a, 1)
	offOut, err := a.Alloc(4)
	require.NoError(t, err)
	out := tensor.NewTemporary(dtype.I32, []int{1}, offOut)

	err = Execute(a, Neg, in, out)
	require.Error(t, err)
}
