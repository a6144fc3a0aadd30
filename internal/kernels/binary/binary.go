// Package binary implements binary element-wise dispatch with
// broadcasting (component G, spec.md §4.5.2): a same-size/dtype fast
// path, a scalar-broadcast path when one input has size 1, and a
// general path that walks output indices and maps to input indices per
// the universal right-aligned broadcasting rule.
//
// Grounded on original_source/.../operations/binary.rs's three-tier
// dispatch and spec.md §4.5.2's division/wrapping-arithmetic semantics.
package binary

import (
	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/simd"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

// Op identifies a supported binary operation.
type Op int

const (
	Add Op = iota
	Sub
	Mul
	Div
)

// Execute dispatches op(a, b) into out, choosing the fast, scalar-
// broadcast, or general path based on shapes. a, b, out must share
// dtype; out's shape must equal the broadcast of a and b's shapes.
func Execute(arn *arena.Arena, op Op, a, b, out *tensor.Tensor) error {
	if a.Meta.Dtype != b.Meta.Dtype || a.Meta.Dtype != out.Meta.Dtype {
		return tcerr.New(tcerr.InvalidDtype, "binary: dtype mismatch across operands")
	}
	broadcast, err := kernelutil.BroadcastShape(a.Meta.Shape, b.Meta.Shape)
	if err != nil {
		return err
	}
	if !shapeEqual(broadcast, out.Meta.Shape) {
		return tcerr.Newf(tcerr.InvalidShape, "binary: output shape %v does not match broadcast result %v", out.Meta.Shape, broadcast)
	}

	dt := a.Meta.Dtype
	aBytes, bBytes, outBytes := a.Bytes(arn), b.Bytes(arn), out.Bytes(arn)

	sameSize := shapeEqual(a.Meta.Shape, b.Meta.Shape) && shapeEqual(a.Meta.Shape, out.Meta.Shape)

	switch dt {
	case dtype.F32:
		return execF32(op, sameSize, a, b, out, aBytes, bBytes, outBytes)
	case dtype.F64:
		return execF64(op, sameSize, a, b, out, aBytes, bBytes, outBytes)
	case dtype.I32:
		return execIntLike(op, dt, sameSize, a, b, out, aBytes, bBytes, outBytes)
	case dtype.I64, dtype.U32, dtype.U64, dtype.I16, dtype.U16, dtype.I8, dtype.U8:
		return execIntLike(op, dt, sameSize, a, b, out, aBytes, bBytes, outBytes)
	default:
		return tcerr.Newf(tcerr.InvalidDtype, "binary: unsupported dtype %s", dt)
	}
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

func execF32(op Op, sameSize bool, at, bt, outT *tensor.Tensor, aBytes, bBytes, outBytes []byte) error {
	aS, bS, outS := kernelutil.F32(aBytes), kernelutil.F32(bBytes), kernelutil.F32(outBytes)

	if sameSize {
		switch op {
		case Add:
			simd.AddF32(outS, aS, bS)
		case Sub:
			simd.SubF32(outS, aS, bS)
		case Mul:
			simd.MulF32(outS, aS, bS)
		case Div:
			simd.DivF32(outS, aS, bS)
		}
		return nil
	}

	if at.Meta.ElementCount() == 1 || bt.Meta.ElementCount() == 1 {
		return scalarBroadcastF32(op, at, bt, outT, aS, bS, outS)
	}

	return generalF32(op, at, bt, outT, aS, bS, outS)
}

func applyF32(op Op, x, y float32) float32 {
	switch op {
	case Add:
		return x + y
	case Sub:
		return x - y
	case Mul:
		return x * y
	default: // Div
		return x / y
	}
}

func scalarBroadcastF32(op Op, at, bt, outT *tensor.Tensor, aS, bS, outS []float32) error {
	if bt.Meta.ElementCount() == 1 {
		scalar := bS[0]
		for i, v := range aS {
			outS[i] = applyF32(op, v, scalar)
		}
		return nil
	}
	scalar := aS[0]
	for i, v := range bS {
		outS[i] = applyF32(op, scalar, v)
	}
	return nil
}

func generalF32(op Op, at, bt, outT *tensor.Tensor, aS, bS, outS []float32) error {
	n := len(outS)
	for flat := 0; flat < n; flat++ {
		ai := kernelutil.BroadcastIndex(flat, outT.Meta.Shape, at.Meta.Shape, at.Meta.Strides)
		bi := kernelutil.BroadcastIndex(flat, outT.Meta.Shape, bt.Meta.Shape, bt.Meta.Strides)
		outS[flat] = applyF32(op, aS[ai], bS[bi])
	}
	return nil
}

func execF64(op Op, sameSize bool, at, bt, outT *tensor.Tensor, aBytes, bBytes, outBytes []byte) error {
	aS, bS, outS := kernelutil.F64(aBytes), kernelutil.F64(bBytes), kernelutil.F64(outBytes)
	apply := func(x, y float64) float64 {
		switch op {
		case Add:
			return x + y
		case Sub:
			return x - y
		case Mul:
			return x * y
		default:
			return x / y
		}
	}

	if sameSize {
		for i := range outS {
			outS[i] = apply(aS[i], bS[i])
		}
		return nil
	}
	if at.Meta.ElementCount() == 1 {
		scalar := aS[0]
		for i, v := range bS {
			outS[i] = apply(scalar, v)
		}
		return nil
	}
	if bt.Meta.ElementCount() == 1 {
		scalar := bS[0]
		for i, v := range aS {
			outS[i] = apply(v, scalar)
		}
		return nil
	}
	for flat := range outS {
		ai := kernelutil.BroadcastIndex(flat, outT.Meta.Shape, at.Meta.Shape, at.Meta.Strides)
		bi := kernelutil.BroadcastIndex(flat, outT.Meta.Shape, bt.Meta.Shape, bt.Meta.Strides)
		outS[flat] = apply(aS[ai], bS[bi])
	}
	return nil
}

// execIntLike handles all fixed-width integer dtypes via int64
// promotion for the arithmetic, then truncates back (Go's native
// integer overflow behavior is already wrapping, matching spec.md
// §4.5.2's "integer Add/Sub/Mul use wrapping arithmetic").
func execIntLike(op Op, dt dtype.Dtype, sameSize bool, at, bt, outT *tensor.Tensor, aBytes, bBytes, outBytes []byte) error {
	n := outT.Meta.ElementCount()
	get := intGetter(dt)
	set := intSetter(dt)

	index := func(flat int, t *tensor.Tensor) int {
		if shapeEqual(t.Meta.Shape, outT.Meta.Shape) {
			return flat
		}
		if t.Meta.ElementCount() == 1 {
			return 0
		}
		return kernelutil.BroadcastIndex(flat, outT.Meta.Shape, t.Meta.Shape, t.Meta.Strides)
	}

	for flat := 0; flat < n; flat++ {
		ai := index(flat, at)
		bi := index(flat, bt)
		x, xUnsigned := get(aBytes, ai)
		y, _ := get(bBytes, bi)

		var resultSigned int64
		var resultUnsigned uint64
		if xUnsigned {
			uy := uint64(y)
			switch op {
			case Add:
				resultUnsigned = uint64(x) + uy
			case Sub:
				resultUnsigned = uint64(x) - uy
			case Mul:
				resultUnsigned = uint64(x) * uy
			case Div:
				if uy == 0 {
					resultUnsigned = dt.MaxUnsigned()
				} else {
					resultUnsigned = uint64(x) / uy
				}
			}
		} else {
			switch op {
			case Add:
				resultSigned = x + y
			case Sub:
				resultSigned = x - y
			case Mul:
				resultSigned = x * y
			case Div:
				if y == 0 {
					if x > 0 {
						resultSigned = dt.MaxSigned()
					} else if x < 0 {
						resultSigned = dt.MinSigned()
					} else {
						resultSigned = 0
					}
				} else {
					resultSigned = x / y
				}
			}
		}

		if xUnsigned {
			set(outBytes, flat, int64(resultUnsigned), true)
		} else {
			set(outBytes, flat, resultSigned, false)
		}
	}
	return nil
}

func intGetter(dt dtype.Dtype) func(b []byte, i int) (int64, bool) {
	switch dt {
	case dtype.I8:
		return func(b []byte, i int) (int64, bool) { return int64(kernelutil.I8(b)[i]), false }
	case dtype.U8, dtype.Bool:
		return func(b []byte, i int) (int64, bool) { return int64(kernelutil.U8(b)[i]), true }
	case dtype.I16:
		return func(b []byte, i int) (int64, bool) { return int64(kernelutil.I16(b)[i]), false }
	case dtype.U16:
		return func(b []byte, i int) (int64, bool) { return int64(kernelutil.U16(b)[i]), true }
	case dtype.I32:
		return func(b []byte, i int) (int64, bool) { return int64(kernelutil.I32(b)[i]), false }
	case dtype.U32:
		return func(b []byte, i int) (int64, bool) { return int64(kernelutil.U32(b)[i]), true }
	case dtype.I64:
		return func(b []byte, i int) (int64, bool) { return kernelutil.I64(b)[i], false }
	case dtype.U64:
		return func(b []byte, i int) (int64, bool) { return int64(kernelutil.U64(b)[i]), true }
	default:
		return func(b []byte, i int) (int64, bool) { return 0, false }
	}
}

func intSetter(dt dtype.Dtype) func(b []byte, i int, v int64, unsigned bool) {
	switch dt {
	case dtype.I8:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.I8(b)[i] = int8(v) }
	case dtype.U8, dtype.Bool:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.U8(b)[i] = uint8(v) }
	case dtype.I16:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.I16(b)[i] = int16(v) }
	case dtype.U16:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.U16(b)[i] = uint16(v) }
	case dtype.I32:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.I32(b)[i] = int32(v) }
	case dtype.U32:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.U32(b)[i] = uint32(v) }
	case dtype.I64:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.I64(b)[i] = v }
	case dtype.U64:
		return func(b []byte, i int, v int64, _ bool) { kernelutil.U64(b)[i] = uint64(v) }
	default:
		return func(b []byte, i int, v int64, _ bool) {}
	}
}
