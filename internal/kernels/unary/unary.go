// Package unary implements the unary element-wise dispatch table
// (component G, spec.md §4.5.1): Abs/Square over all numeric dtypes,
// Neg over signed integer and float dtypes (unsigned and bool report
// InvalidOperation), Sqrt/Exp/Log/Sin/Cos over float dtypes only.
//
// Grounded on original_source/.../operations/unary.rs's dispatch-by-
// (op,dtype) structure and spec.md §4.5.1's documented numeric edge
// cases (Log(0)=-Inf, Log(negative)=NaN, Sqrt(negative)=NaN, Exp
// saturates outside the representable range).
package unary

import (
	"math"

	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/fastmath"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/simd"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

// Op identifies a supported unary operation.
type Op int

const (
	Neg Op = iota
	Abs
	Square
	Sqrt
	Exp
	Log
	Sin
	Cos
)

func (o Op) floatOnly() bool {
	switch o {
	case Sqrt, Exp, Log, Sin, Cos:
		return true
	}
	return false
}

// Execute applies op element-wise from in into out. in and out must
// share dtype and element count; out must not alias in.
func Execute(a *arena.Arena, op Op, in, out *tensor.Tensor) error {
	if in.Meta.Dtype != out.Meta.Dtype {
		return tcerr.New(tcerr.InvalidDtype, "unary: input and output dtype mismatch")
	}
	if in.Meta.ElementCount() != out.Meta.ElementCount() {
		return tcerr.New(tcerr.InvalidShape, "unary: input and output element count mismatch")
	}
	dt := in.Meta.Dtype
	if op.floatOnly() && !dt.IsFloat() {
		return tcerr.Newf(tcerr.InvalidDtype, "unary: operation not supported on dtype %s", dt)
	}

	inBytes := in.Bytes(a)
	outBytes := out.Bytes(a)

	switch dt {
	case dtype.F32:
		return execF32(op, kernelutil.F32(inBytes), kernelutil.F32(outBytes))
	case dtype.F64:
		return execF64(op, kernelutil.F64(inBytes), kernelutil.F64(outBytes))
	case dtype.I32:
		return execIntegerSigned32(op, kernelutil.I32(inBytes), kernelutil.I32(outBytes))
	case dtype.I64:
		return execIntegerSigned64(op, kernelutil.I64(inBytes), kernelutil.I64(outBytes))
	case dtype.U32, dtype.U64, dtype.U16, dtype.U8, dtype.Bool:
		return execUnsignedLike(op, dt, inBytes, outBytes)
	case dtype.I16:
		return execIntegerSigned16(op, kernelutil.I16(inBytes), kernelutil.I16(outBytes))
	case dtype.I8:
		return execIntegerSigned8(op, kernelutil.I8(inBytes), kernelutil.I8(outBytes))
	default:
		return tcerr.Newf(tcerr.InvalidDtype, "unary: unsupported dtype %s", dt)
	}
}

func execF32(op Op, in, out []float32) error {
	switch op {
	case Neg:
		simd.NegF32(out, in)
	case Abs:
		simd.AbsF32(out, in)
	case Square:
		for i, v := range in {
			out[i] = v * v
		}
	case Sqrt:
		for i, v := range in {
			if v < 0 {
				out[i] = float32(math.NaN())
				continue
			}
			out[i] = float32(fastmath.FastSqrt(float64(v)))
		}
	case Exp:
		for i, v := range in {
			out[i] = float32(fastmath.FastExp(float64(v)))
		}
	case Log:
		for i, v := range in {
			out[i] = float32(fastmath.FastLog(float64(v)))
		}
	case Sin:
		for i, v := range in {
			out[i] = float32(fastmath.FastSin(float64(v)))
		}
	case Cos:
		for i, v := range in {
			out[i] = float32(fastmath.FastCos(float64(v)))
		}
	default:
		return tcerr.New(tcerr.InvalidOperation, "unary: unsupported op for f32")
	}
	return nil
}

func execF64(op Op, in, out []float64) error {
	switch op {
	case Neg:
		simd.NegF64(out, in)
	case Abs:
		simd.AbsF64(out, in)
	case Square:
		for i, v := range in {
			out[i] = v * v
		}
	case Sqrt:
		for i, v := range in {
			if v < 0 {
				out[i] = math.NaN()
				continue
			}
			out[i] = fastmath.FastSqrt(v)
		}
	case Exp:
		for i, v := range in {
			out[i] = fastmath.FastExp(v)
		}
	case Log:
		for i, v := range in {
			out[i] = fastmath.FastLog(v)
		}
	case Sin:
		for i, v := range in {
			out[i] = fastmath.FastSin(v)
		}
	case Cos:
		for i, v := range in {
			out[i] = fastmath.FastCos(v)
		}
	default:
		return tcerr.New(tcerr.InvalidOperation, "unary: unsupported op for f64")
	}
	return nil
}

func execIntegerSigned32(op Op, in, out []int32) error {
	switch op {
	case Neg:
		for i, v := range in {
			out[i] = -v
		}
	case Abs:
		for i, v := range in {
			if v < 0 {
				out[i] = -v
			} else {
				out[i] = v
			}
		}
	case Square:
		for i, v := range in {
			out[i] = v * v
		}
	default:
		return tcerr.New(tcerr.InvalidOperation, "unary: unsupported op for integer dtype")
	}
	return nil
}

func execIntegerSigned64(op Op, in, out []int64) error {
	switch op {
	case Neg:
		for i, v := range in {
			out[i] = -v
		}
	case Abs:
		for i, v := range in {
			if v < 0 {
				out[i] = -v
			} else {
				out[i] = v
			}
		}
	case Square:
		for i, v := range in {
			out[i] = v * v
		}
	default:
		return tcerr.New(tcerr.InvalidOperation, "unary: unsupported op for integer dtype")
	}
	return nil
}

func execIntegerSigned16(op Op, in, out []int16) error {
	switch op {
	case Neg:
		for i, v := range in {
			out[i] = -v
		}
	case Abs:
		for i, v := range in {
			if v < 0 {
				out[i] = -v
			} else {
				out[i] = v
			}
		}
	case Square:
		for i, v := range in {
			out[i] = v * v
		}
	default:
		return tcerr.New(tcerr.InvalidOperation, "unary: unsupported op for integer dtype")
	}
	return nil
}

func execIntegerSigned8(op Op, in, out []int8) error {
	switch op {
	case Neg:
		for i, v := range in {
			out[i] = -v
		}
	case Abs:
		for i, v := range in {
			if v < 0 {
				out[i] = -v
			} else {
				out[i] = v
			}
		}
	case Square:
		for i, v := range in {
			out[i] = v * v
		}
	default:
		return tcerr.New(tcerr.InvalidOperation, "unary: unsupported op for integer dtype")
	}
	return nil
}

// execUnsignedLike handles U32/U64/U16/U8/Bool: Neg is not meaningful
// (unsigned), so only Abs (identity) and Square are supported.
func execUnsignedLike(op Op, dt dtype.Dtype, inBytes, outBytes []byte) error {
	switch op {
	case Abs:
		copy(outBytes, inBytes)
		return nil
	case Square:
		switch dt {
		case dtype.U32:
			in, out := kernelutil.U32(inBytes), kernelutil.U32(outBytes)
			for i, v := range in {
				out[i] = v * v
			}
		case dtype.U64:
			in, out := kernelutil.U64(inBytes), kernelutil.U64(outBytes)
			for i, v := range in {
				out[i] = v * v
			}
		case dtype.U16:
			in, out := kernelutil.U16(inBytes), kernelutil.U16(outBytes)
			for i, v := range in {
				out[i] = v * v
			}
		case dtype.U8, dtype.Bool:
			in, out := kernelutil.U8(inBytes), kernelutil.U8(outBytes)
			for i, v := range in {
				out[i] = v * v
			}
		}
		return nil
	default:
		return tcerr.New(tcerr.InvalidOperation, "unary: unsupported op for unsigned/bool dtype")
	}
}
