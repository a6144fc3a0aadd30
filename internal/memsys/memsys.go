// Package memsys composes the arena and persistent store into the single
// memory surface kernels see (component D, spec.md §4.3): temporary and
// persistent tensor allocation, checkpoint/restore, persistent GC, and
// pattern-driven bulk allocation with rollback on partial failure.
//
// Grounded on original_source/.../arena.rs's WasmMemoryManager facade
// (the struct wrapping TempArena + PersistentStorage) and executor.rs's
// alloc_temp_tensor/alloc_persistent_tensor/tensor_from_data flow.
package memsys

import (
	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/pstore"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

// AllocationRequirement describes one buffer a bulk allocation needs:
// its declared dtype (spec.md §9 open question #2 — carried explicitly,
// never reconstructed from size alone), element shape, and the byte
// alignment its consumer requires.
type AllocationRequirement struct {
	Dtype dtype.Dtype
	Shape []int
	Align int
}

// Bytes returns the requirement's total byte size.
func (r AllocationRequirement) Bytes() int {
	return tensor.Meta{Dtype: r.Dtype, Shape: r.Shape}.ByteSize()
}

// Stats summarizes memory system state for host-facing reporting.
type Stats struct {
	ArenaUsed        int
	ArenaCap         int
	ArenaUtilization float64
	PersistentCount  int
	PersistentBytes  int
	Total            int
}

// System composes an Arena and a persistent Store.
type System struct {
	Arena *arena.Arena
	Store *pstore.Store
}

// New creates a memory system with a fresh arena and store.
func New() *System {
	return &System{Arena: arena.New(), Store: pstore.New()}
}

// NewWithArenaCapacity creates a memory system with a specific starting
// arena capacity.
func NewWithArenaCapacity(capacity int) *System {
	return &System{Arena: arena.NewWithCapacity(capacity), Store: pstore.New()}
}

// AllocTemp allocates a temporary tensor of dtype/shape from the arena
// with canonical strides.
func (s *System) AllocTemp(dt dtype.Dtype, shape []int) (*tensor.Tensor, error) {
	meta := tensor.Meta{Dtype: dt, Shape: shape}
	off, err := s.Arena.Alloc(meta.ByteSize())
	if err != nil {
		return nil, err
	}
	return tensor.NewTemporary(dt, shape, off), nil
}

// AllocPersistent allocates a zero-initialized persistent tensor of
// dtype/shape.
func (s *System) AllocPersistent(dt dtype.Dtype, shape []int) (*tensor.Tensor, error) {
	meta := tensor.Meta{Dtype: dt, Shape: shape}
	size := meta.ByteSize()
	id, buf := s.Store.Store(nil, size)
	return tensor.NewPersistent(dt, shape, id, buf), nil
}

// TensorFromData copies bytes into a new persistent buffer and returns
// the resulting tensor. Fails if len(bytes) does not equal the declared
// element count times the dtype's element size.
func (s *System) TensorFromData(data []byte, dt dtype.Dtype, shape []int) (*tensor.Tensor, error) {
	meta := tensor.Meta{Dtype: dt, Shape: shape}
	want := meta.ByteSize()
	if len(data) != want {
		return nil, tcerr.Newf(tcerr.InvalidShape, "memsys: data length %d does not match element_count*dtype_size %d", len(data), want)
	}
	id, buf := s.Store.Store(data, want)
	return tensor.NewPersistent(dt, shape, id, buf), nil
}

// Checkpoint forwards to the arena.
func (s *System) Checkpoint() arena.CheckpointID { return s.Arena.Checkpoint() }

// Restore forwards to the arena.
func (s *System) Restore(id arena.CheckpointID) error { return s.Arena.Restore(id) }

// ResetArena forwards to the arena.
func (s *System) ResetArena() { s.Arena.Reset() }

// GCPersistent forwards to the store.
func (s *System) GCPersistent() int { return s.Store.GC() }

// CanBulkAllocate reports whether totalBytes fits in the arena's
// currently available space, per spec.md S7.
func (s *System) CanBulkAllocate(totalBytes int) bool {
	return totalBytes <= s.Arena.Available()
}

// BulkAllocateForPattern allocates every requirement sequentially under
// a single checkpoint. On any failure it rewinds to that checkpoint and
// returns the error; all produced tensors are temporary.
func (s *System) BulkAllocateForPattern(reqs []AllocationRequirement) ([]*tensor.Tensor, error) {
	total := 0
	for _, r := range reqs {
		total += r.Bytes()
	}
	if !s.CanBulkAllocate(total) {
		return nil, tcerr.Newf(tcerr.OutOfMemory, "memsys: pattern requires %d bytes, only %d available", total, s.Arena.Available())
	}

	cp := s.Arena.Checkpoint()
	tensors := make([]*tensor.Tensor, 0, len(reqs))
	for _, r := range reqs {
		off, err := s.Arena.AllocAligned(r.Bytes(), r.Align)
		if err != nil {
			_ = s.Arena.Restore(cp)
			return nil, err
		}
		tensors = append(tensors, tensor.NewTemporary(r.Dtype, r.Shape, off))
	}
	return tensors, nil
}

// StatsOf returns the current memory system statistics.
func (s *System) StatsOf() Stats {
	used, cap, frac := s.Arena.Utilization()
	count, bytes := s.Store.Stats()
	return Stats{
		ArenaUsed:        used,
		ArenaCap:         cap,
		ArenaUtilization: frac,
		PersistentCount:  count,
		PersistentBytes:  bytes,
		Total:            used + bytes,
	}
}
