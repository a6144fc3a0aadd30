// Package reduction implements axis and full reductions (component G,
// spec.md §4.5.4): Sum, Mean, Max, Min, Prod, either producing a scalar
// (full reduction) or removing the listed axes (optionally keeping them
// as size-1 dims via keep_dims).
//
// Grounded on original_source/.../operations/reduction.rs's
// initialization values (Sum/Mean→0, Max→-Inf, Min→+Inf, Prod→1), NaN
// propagation through Max/Min, and integer saturation/early-exit on
// Prod overflow.
package reduction

import (
	"math"

	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

// Op identifies a supported reduction.
type Op int

const (
	Sum Op = iota
	Mean
	Max
	Min
	Prod
)

// Execute reduces in along axes (nil/empty means full reduction over
// every axis) into out. If keepDims is true, reduced axes remain in
// out's shape as size 1; otherwise they are removed. F32 and F64 reduce
// through float64 accumulators; integer dtypes reduce through int64
// accumulators (Mean uses truncating integer division) and are clamped
// to the dtype's range on write-back.
func Execute(arn *arena.Arena, op Op, in, out *tensor.Tensor, axes []int, keepDims bool) error {
	shape := in.Meta.Shape
	reduceAxis := make([]bool, len(shape))
	if len(axes) == 0 {
		for i := range reduceAxis {
			reduceAxis[i] = true
		}
	} else {
		for _, ax := range axes {
			if ax < 0 {
				ax += len(shape)
			}
			if ax < 0 || ax >= len(shape) {
				return tcerr.Newf(tcerr.InvalidInput, "reduction: axis %d out of range for rank %d", ax, len(shape))
			}
			reduceAxis[ax] = true
		}
	}

	outShape := expectedOutputShape(shape, reduceAxis, keepDims)
	if !shapeEqual(outShape, out.Meta.Shape) {
		return tcerr.Newf(tcerr.InvalidShape, "reduction: output shape %v does not match expected %v", out.Meta.Shape, outShape)
	}

	inBytes, outBytes := in.Bytes(arn), out.Bytes(arn)
	dt := in.Meta.Dtype

	switch dt {
	case dtype.F32:
		return reduceFloat(op, shape, reduceAxis, kernelutil.F32(inBytes), f32Sink(kernelutil.F32(outBytes)))
	case dtype.F64:
		return reduceFloat(op, shape, reduceAxis, kernelutil.F64(inBytes), f64Sink(kernelutil.F64(outBytes)))
	default:
		if !dt.IsInteger() {
			return tcerr.Newf(tcerr.InvalidDtype, "reduction: unsupported dtype %s", dt)
		}
		return reduceInteger(op, dt, shape, reduceAxis, inBytes, outBytes)
	}
}

func expectedOutputShape(shape []int, reduceAxis []bool, keepDims bool) []int {
	out := make([]int, 0, len(shape))
	for i, s := range shape {
		if reduceAxis[i] {
			if keepDims {
				out = append(out, 1)
			}
			continue
		}
		out = append(out, s)
	}
	return out
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

// outIndexOf maps a flat input index to its flat output index by
// dropping (or zeroing, for keep_dims) the reduced axes.
func outIndexOf(flat int, shape []int, reduceAxis []bool, keepDims bool, outShape []int) int {
	coords := kernelutil.Unflatten(flat, shape)
	outCoords := make([]int, 0, len(outShape))
	for i, c := range coords {
		if reduceAxis[i] {
			if keepDims {
				outCoords = append(outCoords, 0)
			}
			continue
		}
		outCoords = append(outCoords, c)
	}
	flatOut := 0
	for i, c := range outCoords {
		stride := 1
		for j := i + 1; j < len(outShape); j++ {
			stride *= outShape[j]
		}
		flatOut += c * stride
	}
	return flatOut
}

type float interface{ ~float32 | ~float64 }

func f32Sink(s []float32) func(int, float64) { return func(i int, v float64) { s[i] = float32(v) } }
func f64Sink(s []float64) func(int, float64) { return func(i int, v float64) { s[i] = v } }

func reduceFloat[T float](op Op, shape []int, reduceAxis []bool, in []T, write func(int, float64)) error {
	reducedSize := 1
	for i, r := range reduceAxis {
		if r {
			reducedSize *= shape[i]
		}
	}
	outShape := expectedOutputShape(shape, reduceAxis, false)
	n := kernelutil.ElementCount(outShape)

	sums := make([]float64, n)
	comps := make([]float64, n) // Kahan compensation terms
	maxes := make([]float64, n)
	mins := make([]float64, n)
	prods := make([]float64, n)
	initialized := make([]bool, n)
	for i := range maxes {
		maxes[i] = math.Inf(-1)
		mins[i] = math.Inf(1)
		prods[i] = 1
	}
	hasNaN := make([]bool, n)

	for flat := 0; flat < len(in); flat++ {
		oi := outIndexOf(flat, shape, reduceAxis, false, outShape)
		v := float64(in[flat])
		if math.IsNaN(v) {
			hasNaN[oi] = true
		}

		// Kahan-compensated running sum.
		y := v - comps[oi]
		t := sums[oi] + y
		comps[oi] = (t - sums[oi]) - y
		sums[oi] = t

		if v > maxes[oi] {
			maxes[oi] = v
		}
		if v < mins[oi] {
			mins[oi] = v
		}
		prods[oi] *= v
		initialized[oi] = true
	}

	for i := 0; i < n; i++ {
		var result float64
		switch op {
		case Sum:
			result = sums[i]
		case Mean:
			if reducedSize == 0 {
				result = math.NaN()
			} else {
				result = sums[i] / float64(reducedSize)
			}
		case Max:
			if hasNaN[i] {
				result = math.NaN()
			} else {
				result = maxes[i]
			}
		case Min:
			if hasNaN[i] {
				result = math.NaN()
			} else {
				result = mins[i]
			}
		case Prod:
			result = prods[i]
		default:
			return tcerr.New(tcerr.InvalidOperation, "reduction: unsupported op")
		}
		write(i, result)
	}
	return nil
}

func reduceInteger(op Op, dt dtype.Dtype, shape []int, reduceAxis []bool, inBytes, outBytes []byte) error {
	reducedSize := 1
	for i, r := range reduceAxis {
		if r {
			reducedSize *= shape[i]
		}
	}
	outShape := expectedOutputShape(shape, reduceAxis, false)
	n := kernelutil.ElementCount(outShape)

	get := intGetter(dt)
	total := kernelutil.ElementCount(shape)
	lo, hi := dt.Bounds64()

	sums := make([]int64, n)
	maxes := make([]int64, n)
	mins := make([]int64, n)
	prods := make([]int64, n)
	prodOverflowed := make([]bool, n)
	for i := range maxes {
		maxes[i] = math.MinInt64
		mins[i] = math.MaxInt64
		prods[i] = 1
	}

	for flat := 0; flat < total; flat++ {
		oi := outIndexOf(flat, shape, reduceAxis, false, outShape)
		v := get(inBytes, flat)

		sums[oi] += v
		if v > maxes[oi] {
			maxes[oi] = v
		}
		if v < mins[oi] {
			mins[oi] = v
		}
		if !prodOverflowed[oi] {
			next := prods[oi] * v
			if v != 0 && next/v != prods[oi] {
				prodOverflowed[oi] = true
				if (prods[oi] < 0) != (v < 0) {
					prods[oi] = lo
				} else {
					prods[oi] = hi
				}
			} else {
				prods[oi] = next
			}
		}
	}

	set := intSetter(dt)
	clamp := func(v int64) int64 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}

	for i := 0; i < n; i++ {
		var result int64
		switch op {
		case Sum:
			result = clamp(sums[i])
		case Mean:
			if reducedSize == 0 {
				result = 0
			} else {
				result = clamp(sums[i] / int64(reducedSize))
			}
		case Max:
			result = clamp(maxes[i])
		case Min:
			result = clamp(mins[i])
		case Prod:
			result = clamp(prods[i])
		default:
			return tcerr.New(tcerr.InvalidOperation, "reduction: unsupported op")
		}
		set(outBytes, i, result)
	}
	return nil
}

func intGetter(dt dtype.Dtype) func(b []byte, i int) int64 {
	switch dt {
	case dtype.I8:
		return func(b []byte, i int) int64 { return int64(kernelutil.I8(b)[i]) }
	case dtype.U8, dtype.Bool:
		return func(b []byte, i int) int64 { return int64(kernelutil.U8(b)[i]) }
	case dtype.I16:
		return func(b []byte, i int) int64 { return int64(kernelutil.I16(b)[i]) }
	case dtype.U16:
		return func(b []byte, i int) int64 { return int64(kernelutil.U16(b)[i]) }
	case dtype.I32:
		return func(b []byte, i int) int64 { return int64(kernelutil.I32(b)[i]) }
	case dtype.U32:
		return func(b []byte, i int) int64 { return int64(kernelutil.U32(b)[i]) }
	case dtype.I64:
		return func(b []byte, i int) int64 { return kernelutil.I64(b)[i] }
	case dtype.U64:
		return func(b []byte, i int) int64 { return int64(kernelutil.U64(b)[i]) }
	default:
		return func(b []byte, i int) int64 { return 0 }
	}
}

func intSetter(dt dtype.Dtype) func(b []byte, i int, v int64) {
	switch dt {
	case dtype.I8:
		return func(b []byte, i int, v int64) { kernelutil.I8(b)[i] = int8(v) }
	case dtype.U8, dtype.Bool:
		return func(b []byte, i int, v int64) { kernelutil.U8(b)[i] = uint8(v) }
	case dtype.I16:
		return func(b []byte, i int, v int64) { kernelutil.I16(b)[i] = int16(v) }
	case dtype.U16:
		return func(b []byte, i int, v int64) { kernelutil.U16(b)[i] = uint16(v) }
	case dtype.I32:
		return func(b []byte, i int, v int64) { kernelutil.I32(b)[i] = int32(v) }
	case dtype.U32:
		return func(b []byte, i int, v int64) { kernelutil.U32(b)[i] = uint32(v) }
	case dtype.I64:
		return func(b []byte, i int, v int64) { kernelutil.I64(b)[i] = v }
	case dtype.U64:
		return func(b []byte, i int, v int64) { kernelutil.U64(b)[i] = uint64(v) }
	default:
		return func(b []byte, i int, v int64) {}
	}
}
