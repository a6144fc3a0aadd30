// Package softmax implements softmax and log-softmax along a single axis
// (component G, spec.md §4.5.5): a numerically stable three-pass
// algorithm (max, then exp-and-sum, then normalize).
//
// Grounded on original_source/.../operations/softmax.rs's per-slice
// walk; negative axis indexes from the end, default is the last
// dimension.
package softmax

import (
	"math"

	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

// Mode selects softmax or its log variant.
type Mode int

const (
	Softmax Mode = iota
	LogSoftmax
)

// Execute computes softmax/log-softmax of in along axis into out. A
// negative axis indexes from the end; axis defaults to the last
// dimension when negative-out-of-range is passed as math.MinInt.
func Execute(arn *arena.Arena, mode Mode, in, out *tensor.Tensor, axis int) error {
	if err := kernelutil.RequireFloat(in.Meta.Dtype); err != nil {
		return err
	}
	if in.Meta.Dtype != out.Meta.Dtype {
		return tcerr.New(tcerr.InvalidDtype, "softmax: input and output dtype mismatch")
	}
	shape := in.Meta.Shape
	if len(shape) == 0 {
		return tcerr.New(tcerr.InvalidShape, "softmax: scalar tensor has no axis to reduce along")
	}
	if axis == math.MinInt {
		axis = len(shape) - 1
	} else if axis < 0 {
		axis += len(shape)
	}
	if axis < 0 || axis >= len(shape) {
		return tcerr.Newf(tcerr.InvalidInput, "softmax: axis %d out of range for rank %d", axis, len(shape))
	}
	if !shapeEqual(shape, out.Meta.Shape) {
		return tcerr.New(tcerr.InvalidShape, "softmax: output shape must match input shape")
	}

	axisSize := shape[axis]
	outerShape := append(append([]int(nil), shape[:axis]...), shape[axis+1:]...)
	sliceCount := kernelutil.ElementCount(outerShape)

	// Stride (in elements) to step one position along axis.
	axisStride := 1
	for i := axis + 1; i < len(shape); i++ {
		axisStride *= shape[i]
	}
	// Total element count; run32/run64 accept it but locate each slice
	// through sliceBase instead.
	sliceVolume := kernelutil.ElementCount(shape)

	if in.Meta.Dtype == dtype.F32 {
		return run32(kernelutil.F32(in.Bytes(arn)), kernelutil.F32(out.Bytes(arn)), shape, axis, axisSize, axisStride, sliceCount, sliceVolume, mode)
	}
	return run64(kernelutil.F64(in.Bytes(arn)), kernelutil.F64(out.Bytes(arn)), shape, axis, axisSize, axisStride, sliceCount, sliceVolume, mode)
}

func shapeEqual(x, y []int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// sliceBase returns, for the sliceIdx-th slice (0..sliceCount), the flat
// base offset of axis-position 0 within that slice.
func sliceBase(sliceIdx int, shape []int, axis int) int {
	outerShape := append(append([]int(nil), shape[:axis]...), shape[axis+1:]...)
	coords := kernelutil.Unflatten(sliceIdx, outerShape)

	full := make([]int, len(shape))
	oi := 0
	for i := range shape {
		if i == axis {
			full[i] = 0
			continue
		}
		full[i] = coords[oi]
		oi++
	}

	flat := 0
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		flat += full[i] * stride
		stride *= shape[i]
	}
	return flat
}

func run32(in, out []float32, shape []int, axis, axisSize, axisStride, sliceCount, _ int, mode Mode) error {
	for s := 0; s < sliceCount; s++ {
		base := sliceBase(s, shape, axis)

		maxV := float32(math.Inf(-1))
		for k := 0; k < axisSize; k++ {
			v := in[base+k*axisStride]
			if v > maxV {
				maxV = v
			}
		}

		var sum float64
		for k := 0; k < axisSize; k++ {
			e := math.Exp(float64(in[base+k*axisStride]) - float64(maxV))
			out[base+k*axisStride] = float32(e)
			sum += e
		}

		logSum := math.Log(sum)
		for k := 0; k < axisSize; k++ {
			idx := base + k*axisStride
			switch mode {
			case Softmax:
				out[idx] = float32(float64(out[idx]) / sum)
			case LogSoftmax:
				out[idx] = float32(float64(in[idx]) - float64(maxV) - logSum)
			}
		}
	}
	return nil
}

func run64(in, out []float64, shape []int, axis, axisSize, axisStride, sliceCount, _ int, mode Mode) error {
	for s := 0; s < sliceCount; s++ {
		base := sliceBase(s, shape, axis)

		maxV := math.Inf(-1)
		for k := 0; k < axisSize; k++ {
			v := in[base+k*axisStride]
			if v > maxV {
				maxV = v
			}
		}

		var sum float64
		for k := 0; k < axisSize; k++ {
			e := math.Exp(in[base+k*axisStride] - maxV)
			out[base+k*axisStride] = e
			sum += e
		}

		logSum := math.Log(sum)
		for k := 0; k < axisSize; k++ {
			idx := base + k*axisStride
			switch mode {
			case Softmax:
				out[idx] = out[idx] / sum
			case LogSoftmax:
				out[idx] = in[idx] - maxV - logSum
			}
		}
	}
	return nil
}
