// Package pstore implements the persistent store (component B, spec.md
// §4.2): an ID-keyed mapping from monotonically increasing tensor ids to
// reference-counted byte buffers that outlive any single arena checkpoint.
//
// Grounded on original_source/.../arena.rs's PersistentStorage
// (store/get/remove/gc, Arc::strong_count as the GC sentinel), realized
// in Go with an explicit per-buffer refcount field so the store's own map entry
// counts as exactly one holder — satisfying spec.md §9's requirement
// that "the store's handle and each external handle contribute equally."
package pstore

import (
	"sync"
	"sync/atomic"

	"github.com/nmxmxh/tensorcore/internal/tcerr"
)

const simdAlignment = 16

func alignUp(v, boundary int) int {
	return (v + boundary - 1) &^ (boundary - 1)
}

// ID identifies a persistent buffer. Ids are a monotone process-wide
// counter and are never reused.
type ID uint64

var nextID uint64 // process-wide, spec.md §5: monotone, atomic only.

func allocID() ID {
	return ID(atomic.AddUint64(&nextID, 1))
}

// Buffer is a persistent byte buffer shared by reference. Backing
// capacity is rounded up to 16 bytes for SIMD access; the declared
// element size (Size) is what callers see.
type Buffer struct {
	data []byte
	size int

	mu   sync.Mutex
	refs int // store's own entry counts as 1
}

// Bytes returns the buffer's declared-size byte slice.
func (b *Buffer) Bytes() []byte { return b.data[:b.size] }

// Size returns the declared element byte count (not the rounded
// backing capacity).
func (b *Buffer) Size() int { return b.size }

func (b *Buffer) share() {
	b.mu.Lock()
	b.refs++
	b.mu.Unlock()
}

// Drop releases one external hold on the buffer. Buffers are not freed
// by Drop alone — GC (or explicit Remove) is what actually evicts an
// entry whose only remaining holder is the store itself.
func (b *Buffer) Drop() {
	b.mu.Lock()
	if b.refs > 0 {
		b.refs--
	}
	b.mu.Unlock()
}

func (b *Buffer) refCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs
}

// Store is the ID-keyed, refcounted persistent buffer map.
type Store struct {
	mu       sync.RWMutex
	buffers  map[ID]*Buffer
	totalLen int64 // running byte total of this store only; not shared across Store instances
}

// New creates an empty persistent store.
func New() *Store {
	return &Store{buffers: make(map[ID]*Buffer)}
}

// Store allocates a new persistent buffer of size bytes, copies data
// into it (or zero-initializes if data is nil), and returns its id and
// the buffer itself at an initial refcount of 1 (the store's own
// holder). Callers that only need the store's own holder must use this
// buffer directly rather than calling Get, which would share() a second
// holder and make the entry ineligible for GC.
func (s *Store) Store(data []byte, size int) (ID, *Buffer) {
	buf := &Buffer{
		data: make([]byte, alignUp(size, simdAlignment)),
		size: size,
		refs: 1,
	}
	if data != nil {
		copy(buf.data, data)
	}

	s.mu.Lock()
	id := allocID()
	s.buffers[id] = buf
	s.mu.Unlock()

	atomic.AddInt64(&s.totalLen, int64(size))
	return id, buf
}

// Get returns the shared buffer for id, sharing (incrementing) its
// refcount, or (nil, false) if no such id exists.
func (s *Store) Get(id ID) (*Buffer, bool) {
	s.mu.RLock()
	buf, ok := s.buffers[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	buf.share()
	return buf, true
}

// Remove deletes id unconditionally and reports whether it existed.
func (s *Store) Remove(id ID) bool {
	s.mu.Lock()
	buf, ok := s.buffers[id]
	if ok {
		delete(s.buffers, id)
	}
	s.mu.Unlock()
	if ok {
		atomic.AddInt64(&s.totalLen, -int64(buf.size))
	}
	return ok
}

// Stats returns (count, total_bytes) per spec.md §4.2.
func (s *Store) Stats() (count int, totalBytes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers), int(atomic.LoadInt64(&s.totalLen))
}

// GC sweeps entries whose only holder is the store itself (refcount ==
// 1) and returns the number evicted.
func (s *Store) GC() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, buf := range s.buffers {
		if buf.refCount() == 1 {
			delete(s.buffers, id)
			atomic.AddInt64(&s.totalLen, -int64(buf.size))
			evicted++
		}
	}
	return evicted
}

// MustGet is a convenience for callers that have already validated id
// exists and want a taxonomy error rather than a bool on failure.
func (s *Store) MustGet(id ID) (*Buffer, error) {
	buf, ok := s.Get(id)
	if !ok {
		return nil, tcerr.Newf(tcerr.InvalidInput, "pstore: unknown persistent id %d", id)
	}
	return buf, nil
}
