// Package kernelutil provides the raw byte<->typed-slice reinterpretation
// kernels need to operate on a tensor's backing bytes without copying,
// plus the shared broadcasting index walk every binary/view kernel
// reuses.
//
// Grounded on original_source/.../types.rs's dtype-tagged byte buffer
// model: the wasm side always carries raw bytes plus a dtype tag, and
// casts at the point of use rather than storing typed arrays.
package kernelutil

import (
	"unsafe"

	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
)

// F32 reinterprets b as a []float32. Panics if len(b) is not a multiple
// of 4 — a malformed tensor byte region is a programmer contract
// violation, not a recoverable error, per spec.md §7.
func F32(b []byte) []float32 {
	if len(b)%4 != 0 {
		panic("kernelutil: byte length not a multiple of float32 size")
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// F64 reinterprets b as a []float64.
func F64(b []byte) []float64 {
	if len(b)%8 != 0 {
		panic("kernelutil: byte length not a multiple of float64 size")
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&b[0])), len(b)/8)
}

// I32 reinterprets b as a []int32.
func I32(b []byte) []int32 {
	if len(b)%4 != 0 {
		panic("kernelutil: byte length not a multiple of int32 size")
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// U32 reinterprets b as a []uint32.
func U32(b []byte) []uint32 {
	if len(b)%4 != 0 {
		panic("kernelutil: byte length not a multiple of uint32 size")
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// I64 reinterprets b as a []int64.
func I64(b []byte) []int64 {
	if len(b)%8 != 0 {
		panic("kernelutil: byte length not a multiple of int64 size")
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&b[0])), len(b)/8)
}

// U64 reinterprets b as a []uint64.
func U64(b []byte) []uint64 {
	if len(b)%8 != 0 {
		panic("kernelutil: byte length not a multiple of uint64 size")
	}
	return unsafe.Slice((*uint64)(unsafe.Pointer(&b[0])), len(b)/8)
}

// I16 reinterprets b as a []int16.
func I16(b []byte) []int16 {
	if len(b)%2 != 0 {
		panic("kernelutil: byte length not a multiple of int16 size")
	}
	return unsafe.Slice((*int16)(unsafe.Pointer(&b[0])), len(b)/2)
}

// U16 reinterprets b as a []uint16.
func U16(b []byte) []uint16 {
	if len(b)%2 != 0 {
		panic("kernelutil: byte length not a multiple of uint16 size")
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(&b[0])), len(b)/2)
}

// I8 reinterprets b as a []int8.
func I8(b []byte) []int8 {
	return unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), len(b))
}

// U8 reinterprets b as a []uint8. b already is one; this exists for
// dispatch-table symmetry with the other dtypes.
func U8(b []byte) []uint8 { return b }

// RequireFloat returns InvalidDtype unless dt is F32 or F64.
func RequireFloat(dt dtype.Dtype) error {
	if !dt.IsFloat() {
		return tcerr.Newf(tcerr.InvalidDtype, "kernel: operation requires a float dtype, got %s", dt)
	}
	return nil
}

// BroadcastShape computes the broadcast result shape of a and b per the
// universal rule: align from the right, each dim must match or be 1.
func BroadcastShape(a, b []int) ([]int, error) {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		da, db := 1, 1
		if i < len(a) {
			da = a[len(a)-1-i]
		}
		if i < len(b) {
			db = b[len(b)-1-i]
		}
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i] = db
		case db == 1:
			out[n-1-i] = da
		default:
			return nil, tcerr.Newf(tcerr.InvalidShape, "kernel: shapes %v and %v are not broadcastable", a, b)
		}
	}
	return out, nil
}

// BroadcastIndex maps a flat output index (decomposed against outShape)
// to the corresponding flat index into a tensor of shape srcShape,
// honoring the right-aligned broadcasting rule (size-1 dims read index
// 0; missing leading dims are implicitly size 1).
func BroadcastIndex(flatOut int, outShape, srcShape, srcStrides []int) int {
	coords := Unflatten(flatOut, outShape)
	offset := 0
	rankDiff := len(outShape) - len(srcShape)
	for i, c := range coords {
		si := i - rankDiff
		if si < 0 {
			continue // src has no such leading dim; implicitly broadcast
		}
		if srcShape[si] == 1 {
			continue // broadcast: always index 0 along this axis
		}
		offset += c * srcStrides[si]
	}
	return offset
}

// Unflatten decomposes a flat row-major index into per-axis coordinates
// for shape.
func Unflatten(flat int, shape []int) []int {
	coords := make([]int, len(shape))
	for i := len(shape) - 1; i >= 0; i-- {
		if shape[i] == 0 {
			coords[i] = 0
			continue
		}
		coords[i] = flat % shape[i]
		flat /= shape[i]
	}
	return coords
}

// ElementCount returns the product of shape (1 for an empty/scalar
// shape).
func ElementCount(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
