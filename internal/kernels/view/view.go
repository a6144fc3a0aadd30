// Package view implements layout operations (component G, spec.md
// §4.5.6): Reshape/View/Flatten/Squeeze/Unsqueeze materialize via a
// bytewise copy; Permute/Transpose handle the 2-D case as a strided
// copy; Slice takes explicit offsets; Expand and Tile map output
// indices back to input indices by broadcasting or wraparound.
//
// Grounded on original_source/.../operations/view.rs; per spec.md §9's
// resolved open question, only the explicit-offset slice path is
// implemented — the heuristic offset-inference path is treated as
// deprecated and not carried over.
package view

import (
	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/kernels/kernelutil"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

// Materialize implements Reshape/View/Flatten/Squeeze/Unsqueeze: a
// bytewise copy from in to out. Fails if the byte sizes differ (a shape
// that does not preserve total element count).
func Materialize(arn *arena.Arena, in, out *tensor.Tensor) error {
	if in.Meta.Dtype != out.Meta.Dtype {
		return tcerr.New(tcerr.InvalidDtype, "view: input and output dtype mismatch")
	}
	if in.Meta.ElementCount() != out.Meta.ElementCount() {
		return tcerr.Newf(tcerr.InvalidShape, "view: element count mismatch (%d vs %d)", in.Meta.ElementCount(), out.Meta.ElementCount())
	}
	copy(out.Bytes(arn), in.Bytes(arn))
	return nil
}

// Transpose2D swaps the two axes of a 2-D tensor via a strided copy.
// Higher ranks are not implemented, per spec.md §4.5.6.
func Transpose2D(arn *arena.Arena, in, out *tensor.Tensor) error {
	if len(in.Meta.Shape) != 2 {
		return tcerr.New(tcerr.NotImplemented, "view: transpose beyond rank 2 is not implemented")
	}
	if in.Meta.Dtype != out.Meta.Dtype {
		return tcerr.New(tcerr.InvalidDtype, "view: input and output dtype mismatch")
	}
	rows, cols := in.Meta.Shape[0], in.Meta.Shape[1]
	if out.Meta.Shape[0] != cols || out.Meta.Shape[1] != rows {
		return tcerr.Newf(tcerr.InvalidShape, "view: transpose output shape must be [%d,%d]", cols, rows)
	}

	elemSize := in.Meta.Dtype.Size()
	inBytes, outBytes := in.Bytes(arn), out.Bytes(arn)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			srcOff := (r*cols + c) * elemSize
			dstOff := (c*rows + r) * elemSize
			copy(outBytes[dstOff:dstOff+elemSize], inBytes[srcOff:srcOff+elemSize])
		}
	}
	return nil
}

// Slice2D extracts out.Shape rows/cols from in starting at
// (rowStart, colStart), bounds-checked.
func Slice2D(arn *arena.Arena, in, out *tensor.Tensor, rowStart, colStart int) error {
	if len(in.Meta.Shape) != 2 || len(out.Meta.Shape) != 2 {
		return tcerr.New(tcerr.InvalidShape, "view: slice2d requires rank-2 input and output")
	}
	inRows, inCols := in.Meta.Shape[0], in.Meta.Shape[1]
	outRows, outCols := out.Meta.Shape[0], out.Meta.Shape[1]
	if rowStart < 0 || colStart < 0 || rowStart+outRows > inRows || colStart+outCols > inCols {
		return tcerr.Newf(tcerr.InvalidInput, "view: slice [%d:%d, %d:%d] out of bounds for shape [%d,%d]", rowStart, rowStart+outRows, colStart, colStart+outCols, inRows, inCols)
	}

	elemSize := in.Meta.Dtype.Size()
	inBytes, outBytes := in.Bytes(arn), out.Bytes(arn)
	for r := 0; r < outRows; r++ {
		srcRowOff := ((rowStart+r)*inCols + colStart) * elemSize
		dstRowOff := r * outCols * elemSize
		copy(outBytes[dstRowOff:dstRowOff+outCols*elemSize], inBytes[srcRowOff:srcRowOff+outCols*elemSize])
	}
	return nil
}

// Slice1D extracts out.Shape[0] elements from in starting at rowStart.
func Slice1D(arn *arena.Arena, in, out *tensor.Tensor, rowStart int) error {
	if len(in.Meta.Shape) != 1 || len(out.Meta.Shape) != 1 {
		return tcerr.New(tcerr.InvalidShape, "view: slice1d requires rank-1 input and output")
	}
	if rowStart < 0 || rowStart+out.Meta.Shape[0] > in.Meta.Shape[0] {
		return tcerr.Newf(tcerr.InvalidInput, "view: slice [%d:%d] out of bounds for length %d", rowStart, rowStart+out.Meta.Shape[0], in.Meta.Shape[0])
	}
	elemSize := in.Meta.Dtype.Size()
	srcOff := rowStart * elemSize
	n := out.Meta.Shape[0] * elemSize
	copy(out.Bytes(arn), in.Bytes(arn)[srcOff:srcOff+n])
	return nil
}

// Expand prepends size-1 dimensions to in to align ranks with out, then
// for every output index maps broadcast (size-1) axes to index 0 and
// matching axes to the same index. Mismatched non-1 sizes are an error.
func Expand(arn *arena.Arena, in, out *tensor.Tensor) error {
	if in.Meta.Dtype != out.Meta.Dtype {
		return tcerr.New(tcerr.InvalidDtype, "view: input and output dtype mismatch")
	}
	rankDiff := len(out.Meta.Shape) - len(in.Meta.Shape)
	if rankDiff < 0 {
		return tcerr.New(tcerr.InvalidShape, "view: expand cannot reduce rank")
	}
	for i, s := range in.Meta.Shape {
		o := out.Meta.Shape[rankDiff+i]
		if s != 1 && s != o {
			return tcerr.Newf(tcerr.InvalidShape, "view: cannot expand dim %d of size %d to %d", i, s, o)
		}
	}

	elemSize := in.Meta.Dtype.Size()
	inBytes, outBytes := in.Bytes(arn), out.Bytes(arn)
	n := out.Meta.ElementCount()
	for flat := 0; flat < n; flat++ {
		srcFlat := kernelutil.BroadcastIndex(flat, out.Meta.Shape, in.Meta.Shape, in.Meta.Strides)
		copy(outBytes[flat*elemSize:(flat+1)*elemSize], inBytes[srcFlat*elemSize:(srcFlat+1)*elemSize])
	}
	return nil
}

// Tile repeats in along every aligned axis: for every output index, the
// input index along each axis is output_index mod input_extent. Extra
// leading output dims loop the whole input.
func Tile(arn *arena.Arena, in, out *tensor.Tensor) error {
	if in.Meta.Dtype != out.Meta.Dtype {
		return tcerr.New(tcerr.InvalidDtype, "view: input and output dtype mismatch")
	}
	rankDiff := len(out.Meta.Shape) - len(in.Meta.Shape)
	if rankDiff < 0 {
		return tcerr.New(tcerr.InvalidShape, "view: tile output rank must be >= input rank")
	}

	elemSize := in.Meta.Dtype.Size()
	inBytes, outBytes := in.Bytes(arn), out.Bytes(arn)
	n := out.Meta.ElementCount()

	for flat := 0; flat < n; flat++ {
		coords := kernelutil.Unflatten(flat, out.Meta.Shape)
		srcFlat := 0
		for i, c := range coords {
			si := i - rankDiff
			if si < 0 {
				continue
			}
			extent := in.Meta.Shape[si]
			if extent == 0 {
				continue
			}
			srcFlat += (c % extent) * in.Meta.Strides[si]
		}
		copy(outBytes[flat*elemSize:(flat+1)*elemSize], inBytes[srcFlat*elemSize:(srcFlat+1)*elemSize])
	}
	return nil
}
