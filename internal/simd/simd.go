// Package simd provides lane-parallel-style primitives over f32/f64
// slices (component H, spec.md §4.5.7): Neg/Abs/Sqrt/Add/Sub/Mul/Div for
// f32, and Neg/Abs/Sqrt for f64, each processing 4 (f32) or 2 (f64)
// logical lanes per 16-byte vector with a scalar tail.
//
// Go has no portable SIMD intrinsics, so each primitive has a single
// implementation: an unrolled scalar loop that exposes the same
// instruction-level parallelism a real vector path would, while staying
// pure Go. There is no build-time switch between a vector and a scalar
// variant.
// Grounded on original_source/.../simd.rs's lane grouping and on the
// teacher's kernel/threads/intelligence/acceleration/accelerator.go
// SIMDVectorizer naming (a dispatcher per op), whose own lane math is a
// stub in the teacher and is replaced here with the Rust source's.
package simd

import "math"

const (
	lanesF32 = 4
	lanesF64 = 2
)

// NegF32 writes -src[i] into dst[i] for all i, 4-wide unrolled with a
// scalar tail.
func NegF32(dst, src []float32) {
	n := len(src)
	i := 0
	for ; i+lanesF32 <= n; i += lanesF32 {
		dst[i] = -src[i]
		dst[i+1] = -src[i+1]
		dst[i+2] = -src[i+2]
		dst[i+3] = -src[i+3]
	}
	for ; i < n; i++ {
		dst[i] = -src[i]
	}
}

// AbsF32 writes |src[i]| into dst[i] for all i.
func AbsF32(dst, src []float32) {
	n := len(src)
	i := 0
	for ; i+lanesF32 <= n; i += lanesF32 {
		dst[i] = absF32(src[i])
		dst[i+1] = absF32(src[i+1])
		dst[i+2] = absF32(src[i+2])
		dst[i+3] = absF32(src[i+3])
	}
	for ; i < n; i++ {
		dst[i] = absF32(src[i])
	}
}

func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// SqrtF32 writes sqrt(src[i]) into dst[i] for all i.
func SqrtF32(dst, src []float32) {
	n := len(src)
	i := 0
	for ; i+lanesF32 <= n; i += lanesF32 {
		dst[i] = float32(math.Sqrt(float64(src[i])))
		dst[i+1] = float32(math.Sqrt(float64(src[i+1])))
		dst[i+2] = float32(math.Sqrt(float64(src[i+2])))
		dst[i+3] = float32(math.Sqrt(float64(src[i+3])))
	}
	for ; i < n; i++ {
		dst[i] = float32(math.Sqrt(float64(src[i])))
	}
}

// AddF32 writes a[i]+b[i] into dst[i] for all i. a, b, dst must have
// equal length.
func AddF32(dst, a, b []float32) {
	n := len(a)
	i := 0
	for ; i+lanesF32 <= n; i += lanesF32 {
		dst[i] = a[i] + b[i]
		dst[i+1] = a[i+1] + b[i+1]
		dst[i+2] = a[i+2] + b[i+2]
		dst[i+3] = a[i+3] + b[i+3]
	}
	for ; i < n; i++ {
		dst[i] = a[i] + b[i]
	}
}

// SubF32 writes a[i]-b[i] into dst[i] for all i.
func SubF32(dst, a, b []float32) {
	n := len(a)
	i := 0
	for ; i+lanesF32 <= n; i += lanesF32 {
		dst[i] = a[i] - b[i]
		dst[i+1] = a[i+1] - b[i+1]
		dst[i+2] = a[i+2] - b[i+2]
		dst[i+3] = a[i+3] - b[i+3]
	}
	for ; i < n; i++ {
		dst[i] = a[i] - b[i]
	}
}

// MulF32 writes a[i]*b[i] into dst[i] for all i.
func MulF32(dst, a, b []float32) {
	n := len(a)
	i := 0
	for ; i+lanesF32 <= n; i += lanesF32 {
		dst[i] = a[i] * b[i]
		dst[i+1] = a[i+1] * b[i+1]
		dst[i+2] = a[i+2] * b[i+2]
		dst[i+3] = a[i+3] * b[i+3]
	}
	for ; i < n; i++ {
		dst[i] = a[i] * b[i]
	}
}

// DivF32 writes a[i]/b[i] into dst[i] for all i, following IEEE-754
// divide-by-zero semantics (±Inf/NaN) rather than panicking.
func DivF32(dst, a, b []float32) {
	n := len(a)
	i := 0
	for ; i+lanesF32 <= n; i += lanesF32 {
		dst[i] = a[i] / b[i]
		dst[i+1] = a[i+1] / b[i+1]
		dst[i+2] = a[i+2] / b[i+2]
		dst[i+3] = a[i+3] / b[i+3]
	}
	for ; i < n; i++ {
		dst[i] = a[i] / b[i]
	}
}

// NegF64 writes -src[i] into dst[i] for all i, 2-wide unrolled.
func NegF64(dst, src []float64) {
	n := len(src)
	i := 0
	for ; i+lanesF64 <= n; i += lanesF64 {
		dst[i] = -src[i]
		dst[i+1] = -src[i+1]
	}
	for ; i < n; i++ {
		dst[i] = -src[i]
	}
}

// AbsF64 writes |src[i]| into dst[i] for all i.
func AbsF64(dst, src []float64) {
	n := len(src)
	i := 0
	for ; i+lanesF64 <= n; i += lanesF64 {
		dst[i] = math.Abs(src[i])
		dst[i+1] = math.Abs(src[i+1])
	}
	for ; i < n; i++ {
		dst[i] = math.Abs(src[i])
	}
}

// SqrtF64 writes sqrt(src[i]) into dst[i] for all i.
func SqrtF64(dst, src []float64) {
	n := len(src)
	i := 0
	for ; i+lanesF64 <= n; i += lanesF64 {
		dst[i] = math.Sqrt(src[i])
		dst[i+1] = math.Sqrt(src[i+1])
	}
	for ; i < n; i++ {
		dst[i] = math.Sqrt(src[i])
	}
}
