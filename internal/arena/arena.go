// Package arena implements the bump allocator for transient tensors
// (component A, spec.md §4.1): a growable contiguous byte region with a
// monotone bump pointer, a checkpoint stack for scoped restore, and the
// 16-byte SIMD alignment WASM's 128-bit vector loads require.
//
// Grounded on original_source/.../arena.rs's TempArena (sentinel
// zero-size alloc, align_up, grow-by-max(2x,needed), the
// is_memory_pressure threshold) and on pavanmanishd-arena's Go idiom of
// vending []byte subslices of the backing buffer instead of raw pointers.
package arena

import (
	"unsafe"

	"github.com/nmxmxh/tensorcore/internal/tcerr"
)

const (
	// SIMDAlignment is the byte boundary every public alloc aligns to.
	SIMDAlignment = 16
	// WasmCeiling is the documented hard cap on arena growth: 3 GiB,
	// leaving headroom under WASM's 4 GiB linear memory ceiling.
	WasmCeiling = 3 * 1024 * 1024 * 1024
	// InitialSize is the arena's starting capacity.
	InitialSize = 64 * 1024 * 1024
	// MaxAllocation is the largest single allocation the arena accepts.
	MaxAllocation = 512 * 1024 * 1024
)

// Offset identifies a byte range handed out by the arena. It is the Go
// analogue of the Rust source's ArenaOffset: an (offset, size) pair,
// not a raw pointer, so it stays valid across arena growth (pointers
// derived from it do not).
type Offset struct {
	offset int
	size   int
}

// Off returns the byte offset within the arena's backing buffer.
func (o Offset) Off() int { return o.offset }

// Size returns the originally requested (unrounded) size in bytes.
func (o Offset) Size() int { return o.size }

// CheckpointID identifies a position pushed onto the checkpoint stack.
type CheckpointID int

// Arena is a bump allocator over a single growable backing buffer.
// Not goroutine-safe: spec.md §5 requires single-threaded, exclusive-
// reference access on the primary path.
type Arena struct {
	buf          []byte
	current      int
	limit        int
	checkpoints  []int
	totalHanded  int
}

// New creates an Arena with InitialSize capacity.
func New() *Arena {
	return &Arena{
		buf:   make([]byte, InitialSize),
		limit: InitialSize,
	}
}

// NewWithCapacity creates an Arena with the given starting capacity.
func NewWithCapacity(capacity int) *Arena {
	if capacity <= 0 {
		capacity = InitialSize
	}
	return &Arena{
		buf:   make([]byte, capacity),
		limit: capacity,
	}
}

func alignUp(v, boundary int) int {
	return (v + boundary - 1) &^ (boundary - 1)
}

// Alloc bump-allocates size bytes aligned to SIMDAlignment. Size 0
// returns the sentinel Offset{0,0} without growing the arena.
func (a *Arena) Alloc(size int) (Offset, error) {
	return a.AllocAligned(size, SIMDAlignment)
}

// AllocAligned is like Alloc but aligns to max(align, SIMDAlignment)
// for both the bump position and the rounded size.
func (a *Arena) AllocAligned(size, align int) (Offset, error) {
	if size == 0 {
		return Offset{0, 0}, nil
	}
	if size < 0 {
		return Offset{}, tcerr.New(tcerr.InvalidInput, "arena: negative allocation size")
	}
	if size > MaxAllocation {
		return Offset{}, tcerr.Newf(tcerr.AllocationFailed, "arena: allocation too large: %d bytes", size)
	}
	if align < SIMDAlignment {
		align = SIMDAlignment
	}

	alignedCurrent := alignUp(a.current, align)
	alignedSize := alignUp(size, align)

	if alignedCurrent+alignedSize > a.limit {
		if err := a.grow(alignedSize); err != nil {
			return Offset{}, err
		}
		alignedCurrent = alignUp(a.current, align)
	}

	off := alignedCurrent
	a.current = alignedCurrent + alignedSize
	a.totalHanded += alignedSize

	return Offset{offset: off, size: size}, nil
}

// grow reallocates the backing buffer to at least current+needed bytes,
// doubling when that alone suffices. Every slice derived from GetPtr/
// GetMutPtr prior to a growing call is invalidated by it.
func (a *Arena) grow(needed int) error {
	newSize := a.limit * 2
	if a.limit+needed > newSize {
		newSize = a.limit + needed
	}
	if newSize > WasmCeiling {
		return tcerr.Newf(tcerr.OutOfMemory, "arena: growth to %d bytes would exceed WASM ceiling of %d bytes", newSize, WasmCeiling)
	}
	grown := make([]byte, newSize)
	copy(grown, a.buf[:a.current])
	a.buf = grown
	a.limit = newSize
	return nil
}

// GetPtr returns a read-only view into the arena at off. It is
// invalidated by any subsequent Alloc/AllocAligned call that grows the
// region — callers must re-derive views after any allocation they
// perform.
func (a *Arena) GetPtr(off Offset) []byte {
	a.boundsCheck(off)
	return a.buf[off.offset : off.offset+off.size : off.offset+off.size]
}

// GetMutPtr returns a mutable view into the arena at off, subject to
// the same invalidation rule as GetPtr.
func (a *Arena) GetMutPtr(off Offset) []byte {
	a.boundsCheck(off)
	return a.buf[off.offset : off.offset+off.size : off.offset+off.size]
}

// boundsCheck aborts the process on an out-of-bounds offset: per
// spec.md §4.1 and §7, pointer-out-of-bounds is a programmer contract
// violation, not a recoverable error.
func (a *Arena) boundsCheck(off Offset) {
	if off.offset+off.size > a.limit {
		panic("arena: offset out of bounds")
	}
}

// Checkpoint pushes the current bump position and returns its index.
func (a *Arena) Checkpoint() CheckpointID {
	a.checkpoints = append(a.checkpoints, a.current)
	return CheckpointID(len(a.checkpoints) - 1)
}

// Restore rewinds the bump pointer to the position recorded at id and
// truncates the checkpoint stack to id+1. Restoring to an id that does
// not exist, or whose recorded position is ahead of current (a future
// checkpoint), fails.
func (a *Arena) Restore(id CheckpointID) error {
	if int(id) < 0 || int(id) >= len(a.checkpoints) {
		return tcerr.Newf(tcerr.InvalidCheckpoint, "arena: unknown checkpoint id %d", id)
	}
	restorePoint := a.checkpoints[id]
	if restorePoint > a.current {
		return tcerr.New(tcerr.InvalidCheckpoint, "arena: cannot restore to a future checkpoint")
	}
	a.current = restorePoint
	a.checkpoints = a.checkpoints[:id+1]
	return nil
}

// Reset deallocates everything: bump pointer to zero, checkpoint stack
// cleared, running total reset. Backing capacity is kept.
func (a *Arena) Reset() {
	a.current = 0
	a.checkpoints = a.checkpoints[:0]
	a.totalHanded = 0
}

// Available returns the number of bytes left before the next Alloc must
// grow the arena. Saturates at zero (mirrors the Rust source's
// saturating_sub; current never exceeds limit after a successful
// return, but the helper stays defensive).
func (a *Arena) Available() int {
	if a.current >= a.limit {
		return 0
	}
	return a.limit - a.current
}

// Used returns the number of bytes currently bumped past.
func (a *Arena) Used() int { return a.current }

// Capacity returns the backing buffer's total size.
func (a *Arena) Capacity() int { return a.limit }

// Utilization returns (used, capacity, fraction).
func (a *Arena) Utilization() (used, capacity int, fraction float64) {
	used, capacity = a.current, a.limit
	if capacity == 0 {
		return used, capacity, 0
	}
	return used, capacity, float64(used) / float64(capacity)
}

// IsUnderPressure reports whether the arena's capacity has grown past
// half the WASM ceiling (the Rust source's concrete form: "over 1.5GB"
// against a 3GB ceiling).
func (a *Arena) IsUnderPressure() bool {
	return a.limit > WasmCeiling/2
}

// TotalHandedOut returns the running total of bytes ever returned by
// Alloc/AllocAligned (not reduced by Restore, only by Reset).
func (a *Arena) TotalHandedOut() int { return a.totalHanded }

// ptrAddr is used only by tests to assert 16-byte alignment of the
// backing slice's data pointer at a given offset.
func ptrAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
