// Package executor implements the host-facing surface (component F,
// spec.md §6): a single-ownership object threading every tensor
// allocation and kernel dispatch through the memory system (D) and
// pattern cache (E), recording each call as pattern-cache evidence
// along the way.
//
// Grounded on original_source/.../executor.rs's WasmExecutor method set
// and its explicit single-ownership doc comment (no RefCell, no
// interior mutability) — realized in Go as exclusive-receiver methods
// with zero internal locking, matching spec.md §5's cooperative,
// single-threaded scheduling model.
package executor

import (
	"github.com/nmxmxh/tensorcore/internal/arena"
	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/idgen"
	"github.com/nmxmxh/tensorcore/internal/kernels/binary"
	"github.com/nmxmxh/tensorcore/internal/kernels/matmul"
	"github.com/nmxmxh/tensorcore/internal/kernels/reduction"
	"github.com/nmxmxh/tensorcore/internal/kernels/softmax"
	"github.com/nmxmxh/tensorcore/internal/kernels/unary"
	"github.com/nmxmxh/tensorcore/internal/kernels/view"
	"github.com/nmxmxh/tensorcore/internal/logx"
	"github.com/nmxmxh/tensorcore/internal/memsys"
	"github.com/nmxmxh/tensorcore/internal/pattern"
	"github.com/nmxmxh/tensorcore/internal/platform"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
	"github.com/nmxmxh/tensorcore/internal/tensor"
)

// Executor is the single-owner entry point for every tensor operation.
// Callers must serialize their own calls — Executor carries no internal
// synchronization, matching spec.md §5's "host façade serializes calls"
// re-architecture note.
type Executor struct {
	id                string
	mem               *memsys.System
	patterns          *pattern.Cache
	patternOptEnabled bool
	log               *logx.Logger
}

// New creates an executor with default arena sizing and the suggested
// pattern cache caps (100 patterns, 50 MiB).
func New() *Executor {
	return NewWithPatternCache(pattern.DefaultMaxPatterns, pattern.DefaultMaxBytes/(1024*1024))
}

// NewWithPatternCache creates an executor with an explicit pattern
// cache budget (maxMB in megabytes).
func NewWithPatternCache(maxPatterns, maxMB int) *Executor {
	return &Executor{
		id:                idgen.NewInstanceID(),
		mem:               memsys.New(),
		patterns:          pattern.NewCache(maxPatterns, maxMB*1024*1024),
		patternOptEnabled: true,
		log:               logx.Default("executor"),
	}
}

// AllocTempTensor allocates a temporary, arena-backed tensor.
func (e *Executor) AllocTempTensor(dt dtype.Dtype, shape []int) (*tensor.Tensor, error) {
	return e.mem.AllocTemp(dt, shape)
}

// AllocPersistentTensor allocates a zero-initialized persistent tensor.
func (e *Executor) AllocPersistentTensor(dt dtype.Dtype, shape []int) (*tensor.Tensor, error) {
	return e.mem.AllocPersistent(dt, shape)
}

// TensorFromData copies bytes into a new persistent tensor.
func (e *Executor) TensorFromData(data []byte, dt dtype.Dtype, shape []int) (*tensor.Tensor, error) {
	return e.mem.TensorFromData(data, dt, shape)
}

// ID returns the executor's process-unique instance id, for correlating
// log lines and ExecutorStats snapshots across multiple executors
// running in one process.
func (e *Executor) ID() string { return e.id }

// Checkpoint forwards to the arena, tracing the new checkpoint id at
// DEBUG level.
func (e *Executor) Checkpoint() arena.CheckpointID {
	cp := e.mem.Checkpoint()
	e.log.Debug("checkpoint", logx.String("executor_id", e.id), logx.Int("checkpoint_id", int(cp)))
	return cp
}

// Restore forwards to the arena, tracing the outcome at DEBUG level.
func (e *Executor) Restore(id arena.CheckpointID) error {
	if err := e.mem.Restore(id); err != nil {
		e.log.Debug("restore failed", logx.String("executor_id", e.id), logx.Int("checkpoint_id", int(id)), logx.Err(err))
		return err
	}
	e.log.Debug("restore", logx.String("executor_id", e.id), logx.Int("checkpoint_id", int(id)))
	return nil
}

// MemoryStats reports current arena/persistent-store occupancy.
func (e *Executor) MemoryStats() memsys.Stats { return e.mem.StatsOf() }

// GC sweeps persistent-store entries held only by the store itself,
// tracing the number evicted at DEBUG level.
func (e *Executor) GC() int {
	evicted := e.mem.GCPersistent()
	e.log.Debug("gc sweep", logx.String("executor_id", e.id), logx.Int("evicted", evicted))
	return evicted
}

// PatternCacheStats reports current pattern cache occupancy.
func (e *Executor) PatternCacheStats() pattern.Stats { return e.patterns.Stats() }

// ExecutorStats aggregates an executor's instance id with its memory and
// pattern cache occupancy, so a host juggling several executor instances
// in one process can tell their stats apart.
type ExecutorStats struct {
	InstanceID   string
	Memory       memsys.Stats
	PatternCache pattern.Stats
}

// Stats returns the executor's current aggregate statistics.
func (e *Executor) Stats() ExecutorStats {
	return ExecutorStats{InstanceID: e.id, Memory: e.mem.StatsOf(), PatternCache: e.patterns.Stats()}
}

// SetPatternOptimization toggles pattern-cache lookups at runtime.
func (e *Executor) SetPatternOptimization(enabled bool) { e.patternOptEnabled = enabled }

// ClearPatternCache empties the pattern cache.
func (e *Executor) ClearPatternCache() { e.patterns.Clear() }

// CopyTensorDataToHost returns a copy of t's backing bytes.
func (e *Executor) CopyTensorDataToHost(t *tensor.Tensor) []byte {
	src := t.Bytes(e.mem.Arena)
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// CopyHostDataToTensor overwrites t's backing bytes with data. Fails if
// the lengths differ.
func (e *Executor) CopyHostDataToTensor(t *tensor.Tensor, data []byte) error {
	dst := t.Bytes(e.mem.Arena)
	if len(data) != len(dst) {
		return tcerr.Newf(tcerr.InvalidInput, "executor: host data length %d does not match tensor byte size %d", len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

// signatureOf builds the (operation, input shapes, input dtypes)
// signature spec.md §4.4 step 1 names, shared by the preallocation
// attempt and the singleton record so both agree on the same key.
func signatureOf(opName string, inputs []*tensor.Tensor) (shapes [][]int, dtypes []dtype.Dtype, sig pattern.Signature) {
	shapes = make([][]int, len(inputs))
	dtypes = make([]dtype.Dtype, len(inputs))
	for i, t := range inputs {
		shapes[i] = t.Meta.Shape
		dtypes[i] = t.Meta.Dtype
	}
	sig = pattern.Signature{Operation: opName, InputShapes: shapes, InputDtypes: dtypes}
	return shapes, dtypes, sig
}

// tryPatternPreallocation implements spec.md §4.4 step 2: if a pattern
// matching sig's first operation is already known, speculatively
// bulk-allocate its recorded requirements so the arena has already grown
// to size before the kernel runs, amortising allocator traffic across
// repeated calls with the same signature. Failures (including
// insufficient space) are logged and swallowed — the caller's own
// tensors are already allocated, so this step can never block dispatch.
func (e *Executor) tryPatternPreallocation(sig pattern.Signature) {
	if !e.patternOptEnabled {
		return
	}
	id, found := e.patterns.LookupBySignature(sig)
	if !found {
		e.log.Debug("pattern cache miss", logx.String("executor_id", e.id), logx.String("op", sig.Operation))
		return
	}
	e.log.Debug("pattern cache hit", logx.String("executor_id", e.id), logx.String("op", sig.Operation), logx.Uint64("pattern_id", uint64(id)))
	p, ok := e.patterns.GetPattern(id)
	if !ok || len(p.Requirements) == 0 {
		return
	}

	reqs := make([]memsys.AllocationRequirement, len(p.Requirements))
	for i, r := range p.Requirements {
		reqs[i] = memsys.AllocationRequirement{Dtype: r.Dtype, Shape: r.Shape, Align: r.Align}
	}
	if _, err := e.mem.BulkAllocateForPattern(reqs); err != nil {
		e.log.Debug("pattern bulk preallocation skipped", logx.Err(err))
	}
}

// traceArenaGrowth logs at DEBUG if the arena's backing capacity grew
// since before, the byte count recorded by the caller prior to its
// preallocation attempt and kernel dispatch.
func (e *Executor) traceArenaGrowth(before int) {
	if after := e.mem.Arena.Capacity(); after != before {
		e.log.Debug("arena grew", logx.String("executor_id", e.id), logx.Int("from_bytes", before), logx.Int("to_bytes", after))
	}
}

// recordSingleton implements spec.md §4.4 step 3: records op as a
// trivial one-operation pattern so the cache accumulates evidence across
// calls. Called only after the kernel dispatch in step 4 has already
// succeeded, so an eviction/budget error here is non-fatal: it is logged
// and swallowed, never propagated to the caller.
func (e *Executor) recordSingleton(opName string, shapes [][]int, dtypes []dtype.Dtype, sig pattern.Signature, out *tensor.Tensor) {
	if e.patternOptEnabled {
		if _, found := e.patterns.LookupBySignature(sig); found {
			return // already recorded; the lookup itself bumped its stats
		}
	}

	ops := []pattern.OperationDesc{{Operation: opName, InputShapes: shapes, InputDtypes: dtypes}}
	reqs := []pattern.AllocationRequirement{{Dtype: out.Meta.Dtype, Shape: out.Meta.Shape, Align: arena.SIMDAlignment}}
	p := pattern.BuildPattern(ops, reqs)

	if err := e.patterns.Store(p); err != nil {
		e.log.Debug("pattern cache store skipped", logx.Err(err))
	}
}

// ExecuteUnary applies a unary op from in into out.
func (e *Executor) ExecuteUnary(op unary.Op, in, out *tensor.Tensor) error {
	shapes, dtypes, sig := signatureOf("unary", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := unary.Execute(e.mem.Arena, op, in, out)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("unary", shapes, dtypes, sig, out)
	return nil
}

// ExecuteBinary applies a binary op(a, b) into out, with broadcasting.
func (e *Executor) ExecuteBinary(op binary.Op, a, b, out *tensor.Tensor) error {
	shapes, dtypes, sig := signatureOf("binary", []*tensor.Tensor{a, b})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := binary.Execute(e.mem.Arena, op, a, b, out)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("binary", shapes, dtypes, sig, out)
	return nil
}

// ExecuteMatmul multiplies a by b into out.
func (e *Executor) ExecuteMatmul(a, b, out *tensor.Tensor) error {
	shapes, dtypes, sig := signatureOf("matmul", []*tensor.Tensor{a, b})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := matmul.Execute(e.mem.Arena, a, b, out)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("matmul", shapes, dtypes, sig, out)
	return nil
}

// ExecuteSlice slices in into out starting at (rowStart, colStart),
// dispatching on rank: 1-D slices use rowStart only.
func (e *Executor) ExecuteSlice(in, out *tensor.Tensor, rowStart, colStart int) error {
	shapes, dtypes, sig := signatureOf("slice", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)

	var err error
	switch len(in.Meta.Shape) {
	case 1:
		err = view.Slice1D(e.mem.Arena, in, out, rowStart)
	case 2:
		err = view.Slice2D(e.mem.Arena, in, out, rowStart, colStart)
	default:
		err = tcerr.Newf(tcerr.NotImplemented, "executor: slice of rank %d tensors is not implemented", len(in.Meta.Shape))
	}
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("slice", shapes, dtypes, sig, out)
	return nil
}

// ExecuteReduction reduces in along axes (nil = all axes) into out.
func (e *Executor) ExecuteReduction(op reduction.Op, in, out *tensor.Tensor, axes []int, keepDims bool) error {
	shapes, dtypes, sig := signatureOf("reduction", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := reduction.Execute(e.mem.Arena, op, in, out, axes, keepDims)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("reduction", shapes, dtypes, sig, out)
	return nil
}

// ExecuteSoftmax computes softmax or log-softmax of in along axis into
// out. Not part of spec.md §6's minimal method list by name, but wired
// here since Softmax/LogSoftmax are declared op tags in that same
// section and need a dispatch entry point.
func (e *Executor) ExecuteSoftmax(mode softmax.Mode, in, out *tensor.Tensor, axis int) error {
	shapes, dtypes, sig := signatureOf("softmax", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := softmax.Execute(e.mem.Arena, mode, in, out, axis)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("softmax", shapes, dtypes, sig, out)
	return nil
}

// ExecuteView dispatches Reshape/View/Flatten/Squeeze/Unsqueeze (a
// bytewise copy) from in into out.
func (e *Executor) ExecuteView(in, out *tensor.Tensor) error {
	shapes, dtypes, sig := signatureOf("view", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := view.Materialize(e.mem.Arena, in, out)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("view", shapes, dtypes, sig, out)
	return nil
}

// ExecuteTranspose2D transposes a rank-2 tensor.
func (e *Executor) ExecuteTranspose2D(in, out *tensor.Tensor) error {
	shapes, dtypes, sig := signatureOf("transpose", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := view.Transpose2D(e.mem.Arena, in, out)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("transpose", shapes, dtypes, sig, out)
	return nil
}

// ExecuteExpand broadcasts in into out's (larger) shape.
func (e *Executor) ExecuteExpand(in, out *tensor.Tensor) error {
	shapes, dtypes, sig := signatureOf("expand", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := view.Expand(e.mem.Arena, in, out)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("expand", shapes, dtypes, sig, out)
	return nil
}

// ExecuteTile repeats in to fill out via modulo indexing.
func (e *Executor) ExecuteTile(in, out *tensor.Tensor) error {
	shapes, dtypes, sig := signatureOf("tile", []*tensor.Tensor{in})
	before := e.mem.Arena.Capacity()
	e.tryPatternPreallocation(sig)
	err := view.Tile(e.mem.Arena, in, out)
	e.traceArenaGrowth(before)
	if err != nil {
		return err
	}
	e.recordSingleton("tile", shapes, dtypes, sig, out)
	return nil
}

// HasSIMD128Support reports whether the host can execute 128-bit SIMD
// instructions, per spec.md §6's feature-probe surface.
func HasSIMD128Support() bool { return platform.HasSIMD128Support() }

// HasBulkMemorySupport reports whether the host supports bulk memory
// operations (memory.copy/memory.fill in WASM).
func HasBulkMemorySupport() bool { return platform.HasBulkMemorySupport() }
