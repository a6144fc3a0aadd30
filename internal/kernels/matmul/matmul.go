// Package matmul implements matrix multiplication (component G, spec.md
// §4.5.3): dot product ((1,1)→scalar), row-vector·matrix ((1,2)→1-D),
// matrix·col-vector ((2,1)→1-D), 2-D GEMM, and batched n,m≥2 via
// broadcast over the leading batch dimensions.
//
// Grounded on original_source/.../operations/matmul.rs's rank dispatch
// and its contiguous-fast-path / strided-slow-path split; the fast path
// here is a cache-blocked triple loop (block width 64) rather than the
// source's packed 8x8 register-tile kernel, since Go has no portable
// SIMD register-tile intrinsic — blocking still delivers the same
// memory-locality benefit the packed kernel targets.
package matmul

import (
	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

const blockSize = 64

// Execute multiplies a by b into out, dispatching on rank per spec.md
// §4.5.3. Only F32 is supported (matmul is defined over floating dtypes
// in the host-facing surface).
func Execute(arn *arena.Arena, a, b, out *tensor.Tensor) error {
	if a.Meta.Dtype != dtype.F32 || b.Meta.Dtype != dtype.F32 || out.Meta.Dtype != dtype.F32 {
		return tcerr.New(tcerr.InvalidDtype, "matmul: only f32 is supported")
	}

	ra, rb := len(a.Meta.Shape), len(b.Meta.Shape)
	aS, bS, outS := kernelutil.F32(a.Bytes(arn)), kernelutil.F32(b.Bytes(arn)), kernelutil.F32(out.Bytes(arn))

	switch {
	case ra == 1 && rb == 1:
		return dot(a, b, outS, aS, bS)
	case ra == 1 && rb == 2:
		return rowVecMat(a, b, outS, aS, bS)
	case ra == 2 && rb == 1:
		return matColVec(a, b, outS, aS, bS)
	case ra == 2 && rb == 2:
		return gemm2D(a, b, out, aS, bS, outS)
	case ra >= 2 && rb >= 2:
		return batched(a, b, out, aS, bS, outS)
	default:
		return tcerr.Newf(tcerr.InvalidShape, "matmul: unsupported rank combination (%d, %d)", ra, rb)
	}
}

func dot(a, b *tensor.Tensor, outS, aS, bS []float32) error {
	if a.Meta.Shape[0] != b.Meta.Shape[0] {
		return tcerr.New(tcerr.InvalidShape, "matmul: dot product operands must have equal length")
	}
	var sum float32
	for i := range aS {
		sum += aS[i] * bS[i]
	}
	outS[0] = sum
	return nil
}

func rowVecMat(a, b *tensor.Tensor, outS, aS, bS []float32) error {
	k := a.Meta.Shape[0]
	kb, n := b.Meta.Shape[0], b.Meta.Shape[1]
	if k != kb {
		return tcerr.New(tcerr.InvalidShape, "matmul: row-vector length must match matrix row count")
	}
	for j := 0; j < n; j++ {
		var sum float32
		for i := 0; i < k; i++ {
			sum += aS[i] * bS[i*n+j]
		}
		outS[j] = sum
	}
	return nil
}

func matColVec(a, b *tensor.Tensor, outS, aS, bS []float32) error {
	m, k := a.Meta.Shape[0], a.Meta.Shape[1]
	kb := b.Meta.Shape[0]
	if k != kb {
		return tcerr.New(tcerr.InvalidShape, "matmul: matrix column count must match col-vector length")
	}
	for i := 0; i < m; i++ {
		var sum float32
		for kk := 0; kk < k; kk++ {
			sum += aS[i*k+kk] * bS[kk]
		}
		outS[i] = sum
	}
	return nil
}

func gemm2D(a, b, out *tensor.Tensor, aS, bS, outS []float32) error {
	m, k := a.Meta.Shape[0], a.Meta.Shape[1]
	kb, n := b.Meta.Shape[0], b.Meta.Shape[1]
	if k != kb {
		return tcerr.New(tcerr.InvalidShape, "matmul: inner dimensions must match")
	}
	for i := range outS {
		outS[i] = 0
	}

	if a.IsContiguous() && b.IsContiguous() {
		gemmBlocked(m, k, n, aS, bS, outS)
		return nil
	}
	return gemmStrided(a, b, out, aS, bS, outS)
}

// gemmBlocked computes C = A*B for row-major contiguous A (m×k) and B
// (k×n), blocking the outer loops to keep working sets cache-resident.
func gemmBlocked(m, k, n int, aS, bS, outS []float32) {
	for i0 := 0; i0 < m; i0 += blockSize {
		iMax := min(i0+blockSize, m)
		for k0 := 0; k0 < k; k0 += blockSize {
			kMax := min(k0+blockSize, k)
			for j0 := 0; j0 < n; j0 += blockSize {
				jMax := min(j0+blockSize, n)
				for i := i0; i < iMax; i++ {
					for kk := k0; kk < kMax; kk++ {
						aik := aS[i*k+kk]
						if aik == 0 {
							continue
						}
						rowB := bS[kk*n : kk*n+n]
						rowOut := outS[i*n : i*n+n]
						for j := j0; j < jMax; j++ {
							rowOut[j] += aik * rowB[j]
						}
					}
				}
			}
		}
	}
}

func gemmStrided(a, b, out *tensor.Tensor, aS, bS, outS []float32) error {
	m, k := a.Meta.Shape[0], a.Meta.Shape[1]
	n := b.Meta.Shape[1]
	as0, as1 := a.Meta.Strides[0], a.Meta.Strides[1]
	bs0, bs1 := b.Meta.Strides[0], b.Meta.Strides[1]
	os0, os1 := out.Meta.Strides[0], out.Meta.Strides[1]

	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for kk := 0; kk < k; kk++ {
				sum += aS[i*as0+kk*as1] * bS[kk*bs0+j*bs1]
			}
			outS[i*os0+j*os1] = sum
		}
	}
	return nil
}

// batched iterates the batch volume (all dims but the trailing matrix
// two), broadcasting batch dims per spec.md §4.5.2's rule, and runs a
// naive triple loop per batch element.
func batched(a, b, out *tensor.Tensor, aS, bS, outS []float32) error {
	aBatch := a.Meta.Shape[:len(a.Meta.Shape)-2]
	bBatch := b.Meta.Shape[:len(b.Meta.Shape)-2]
	outBatch := out.Meta.Shape[:len(out.Meta.Shape)-2]

	batchShape, err := kernelutil.BroadcastShape(aBatch, bBatch)
	if err != nil {
		return err
	}
	if !shapeEqual(batchShape, outBatch) {
		return tcerr.Newf(tcerr.InvalidShape, "matmul: output batch shape %v does not match broadcast %v", outBatch, batchShape)
	}

	m, k := a.Meta.Shape[len(a.Meta.Shape)-2], a.Meta.Shape[len(a.Meta.Shape)-1]
	kb, n := b.Meta.Shape[len(b.Meta.Shape)-2], b.Meta.Shape[len(b.Meta.Shape)-1]
	if k != kb {
		return tcerr.New(tcerr.InvalidShape, "matmul: inner dimensions must match")
	}

	matElemsA, matElemsB, matElemsOut := m*k, kb*n, m*n
	batchVolume := kernelutil.ElementCount(batchShape)
	aBatchStrides := tensor.CanonicalStrides(aBatch)
	bBatchStrides := tensor.CanonicalStrides(bBatch)

	for bIdx := 0; bIdx < batchVolume; bIdx++ {
		aOff := kernelutil.BroadcastIndex(bIdx, batchShape, aBatch, aBatchStrides) * matElemsA
		bOff := kernelutil.BroadcastIndex(bIdx, batchShape, bBatch, bBatchStrides) * matElemsB
		outOff := bIdx * matElemsOut

		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				var sum float32
				for kk := 0; kk < k; kk++ {
					sum += aS[aOff+i*k+kk] * bS[bOff+kk*n+j]
				}
				outS[outOff+i*n+j] = sum
			}
		}
	}
	return nil
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
