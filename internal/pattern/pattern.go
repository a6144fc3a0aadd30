// Package pattern implements the operation pattern cache (component E,
// spec.md §4.4): recognizing recurring operation sequences so the
// executor can bulk-allocate their tensors under a single checkpoint
// instead of allocating one at a time.
//
// Grounded on original_source/.../pattern.rs's PatternCache
// (hash_operation_sequence, find_matching_pattern's O(n) first-op scan,
// the LRU+memory-budget eviction in store_pattern, and the
// calculate_estimated_speedup formula, carried over character-for-
// character per SPEC_FULL.md §4).
package pattern

import (
	"hash/fnv"
	"sort"
	"sync"

	"github.com/nmxmxh/tensorcore/internal/dtype"
	"github.com/nmxmxh/tensorcore/internal/tcerr"
)

// DefaultMaxPatterns and DefaultMaxBytes are the suggested caps from
// spec.md §4.4.
const (
	DefaultMaxPatterns = 100
	DefaultMaxBytes    = 50 * 1024 * 1024
)

// ID identifies a stored pattern: a deterministic hash of its ordered
// operation descriptors.
type ID uint64

// OperationDesc describes one operation in a recognized sequence.
type OperationDesc struct {
	Operation   string
	InputShapes [][]int
	InputDtypes []dtype.Dtype
}

// Signature is the cache key for a single operation: (operation, input
// shapes, input dtypes).
type Signature struct {
	Operation   string
	InputShapes [][]int
	InputDtypes []dtype.Dtype
}

// AllocationRequirement describes one tensor a pattern's execution will
// need, with its dtype carried explicitly (spec.md §9 open question #2).
type AllocationRequirement struct {
	Dtype dtype.Dtype
	Shape []int
	Align int
}

func (r AllocationRequirement) elementCount() int {
	n := 1
	for _, s := range r.Shape {
		n *= s
	}
	return n
}

func (r AllocationRequirement) bytes() int {
	return r.elementCount() * r.Dtype.Size()
}

// Pattern is a recognized, cacheable operation sequence.
type Pattern struct {
	ID               ID
	Operations       []OperationDesc
	Requirements     []AllocationRequirement
	TotalBytes       int
	EstimatedSpeedup float64
}

type entry struct {
	pattern Pattern
	hits    uint64
	lastUse uint64
}

// Stats summarizes cache occupancy for host-facing reporting.
type Stats struct {
	Count       int
	TotalHits   uint64
	Hot         int // patterns with hits > 1
	Bytes       int
	Utilization float64
}

// Cache is the LRU + memory-budget bounded pattern store.
type Cache struct {
	mu          sync.Mutex
	entries     map[ID]*entry
	maxPatterns int
	maxBytes    int
	usedBytes   int
	clock       uint64 // monotone logical timestamp, bumped on every touch
}

// NewCache creates a pattern cache with the given caps.
func NewCache(maxPatterns, maxBytes int) *Cache {
	if maxPatterns <= 0 {
		maxPatterns = DefaultMaxPatterns
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Cache{
		entries:     make(map[ID]*entry),
		maxPatterns: maxPatterns,
		maxBytes:    maxBytes,
	}
}

// HashSignature computes a deterministic hash of a single signature.
func HashSignature(sig Signature) uint64 {
	h := fnv.New64a()
	h.Write([]byte(sig.Operation))
	for _, shape := range sig.InputShapes {
		for _, dim := range shape {
			writeUint64(h, uint64(dim))
		}
		h.Write([]byte{0xff})
	}
	for _, dt := range sig.InputDtypes {
		h.Write([]byte{byte(dt)})
	}
	return h.Sum64()
}

// HashOperationSequence computes a deterministic id for an ordered list
// of operation descriptors.
func HashOperationSequence(ops []OperationDesc) ID {
	h := fnv.New64a()
	for _, op := range ops {
		h.Write([]byte(op.Operation))
		for _, shape := range op.InputShapes {
			for _, dim := range shape {
				writeUint64(h, uint64(dim))
			}
			h.Write([]byte{0xff})
		}
		for _, dt := range op.InputDtypes {
			h.Write([]byte{byte(dt)})
		}
		h.Write([]byte{0xfe})
	}
	return ID(h.Sum64())
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	h.Write(b[:])
}

// EstimatedSpeedup seeds a pattern's speedup estimate from its op count
// and total element volume: min(4.5, 1.5 + 0.1*n_ops + 0.001*sum_elements/1000).
func EstimatedSpeedup(ops []OperationDesc) float64 {
	sumElements := 0
	for _, op := range ops {
		for _, shape := range op.InputShapes {
			n := 1
			for _, d := range shape {
				n *= d
			}
			sumElements += n
		}
	}
	est := 1.5 + 0.1*float64(len(ops)) + 0.001*float64(sumElements)/1000.0
	if est > 4.5 {
		est = 4.5
	}
	return est
}

// BuildPattern assembles a Pattern record from an operation sequence and
// its allocation requirements, computing id, total bytes, and the
// seeded speedup estimate.
func BuildPattern(ops []OperationDesc, reqs []AllocationRequirement) Pattern {
	total := 0
	for _, r := range reqs {
		total += r.bytes()
	}
	return Pattern{
		ID:               HashOperationSequence(ops),
		Operations:       append([]OperationDesc(nil), ops...),
		Requirements:     append([]AllocationRequirement(nil), reqs...),
		TotalBytes:       total,
		EstimatedSpeedup: EstimatedSpeedup(ops),
	}
}

func (c *Cache) tick() uint64 {
	c.clock++
	return c.clock
}

// LookupBySignature scans stored patterns for one whose first operation
// matches sig, bumping its timestamp and hit count on a match. O(n) in
// cache size, matching original_source/.../pattern.rs's
// find_matching_pattern exactly.
func (c *Cache) LookupBySignature(sig Signature) (ID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		if len(e.pattern.Operations) == 0 {
			continue
		}
		first := e.pattern.Operations[0]
		if signatureEqual(first, sig) {
			e.hits++
			e.lastUse = c.tick()
			return id, true
		}
	}
	return 0, false
}

func signatureEqual(op OperationDesc, sig Signature) bool {
	if op.Operation != sig.Operation {
		return false
	}
	if len(op.InputShapes) != len(sig.InputShapes) || len(op.InputDtypes) != len(sig.InputDtypes) {
		return false
	}
	for i := range op.InputShapes {
		if !shapeEqual(op.InputShapes[i], sig.InputShapes[i]) {
			return false
		}
	}
	for i := range op.InputDtypes {
		if op.InputDtypes[i] != sig.InputDtypes[i] {
			return false
		}
	}
	return true
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// GetPattern is an O(1) lookup by id, also bumping timestamp and hits.
func (c *Cache) GetPattern(id ID) (Pattern, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return Pattern{}, false
	}
	e.hits++
	e.lastUse = c.tick()
	return e.pattern, true
}

// Store inserts p, evicting by ascending LRU timestamp until both the
// count and memory caps hold. Fails only if p alone cannot fit even in
// an empty cache.
func (c *Cache) Store(p Pattern) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p.TotalBytes > c.maxBytes {
		return tcerr.Newf(tcerr.OutOfMemory, "pattern: record of %d bytes exceeds cache budget of %d bytes", p.TotalBytes, c.maxBytes)
	}

	if existing, ok := c.entries[p.ID]; ok {
		c.usedBytes -= existing.pattern.TotalBytes
		existing.pattern = p
		c.usedBytes += p.TotalBytes
		existing.lastUse = c.tick()
		return c.evictUntilFits()
	}

	c.entries[p.ID] = &entry{pattern: p, lastUse: c.tick()}
	c.usedBytes += p.TotalBytes
	return c.evictUntilFits()
}

func (c *Cache) evictUntilFits() error {
	for len(c.entries) > c.maxPatterns || c.usedBytes > c.maxBytes {
		oldestID, ok := c.oldestLocked()
		if !ok {
			return tcerr.New(tcerr.OutOfMemory, "pattern: cache cannot satisfy caps even when empty")
		}
		e := c.entries[oldestID]
		c.usedBytes -= e.pattern.TotalBytes
		delete(c.entries, oldestID)
	}
	return nil
}

func (c *Cache) oldestLocked() (ID, bool) {
	var oldest ID
	var oldestTime uint64
	found := false
	for id, e := range c.entries {
		if !found || e.lastUse < oldestTime {
			oldest, oldestTime, found = id, e.lastUse, true
		}
	}
	return oldest, found
}

// UpdateStats updates id's estimated speedup via an exponential moving
// average (α=0.1) against a derived base-time estimate: measuredSeconds
// divided by the pattern's existing speedup, matching
// original_source/.../pattern.rs's update_pattern_stats derivation.
func (c *Cache) UpdateStats(id ID, measuredSeconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return tcerr.Newf(tcerr.InvalidInput, "pattern: update_stats on unknown id %d", id)
	}
	const alpha = 0.1
	if measuredSeconds <= 0 || e.pattern.EstimatedSpeedup <= 0 {
		return nil
	}
	baseTime := measuredSeconds / e.pattern.EstimatedSpeedup
	observedSpeedup := baseTime / measuredSeconds
	e.pattern.EstimatedSpeedup = (1-alpha)*e.pattern.EstimatedSpeedup + alpha*observedSpeedup
	return nil
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[ID]*entry)
	c.usedBytes = 0
}

// Stats reports current cache occupancy.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var totalHits uint64
	hot := 0
	for _, e := range c.entries {
		totalHits += e.hits
		if e.hits > 1 {
			hot++
		}
	}
	util := 0.0
	if c.maxBytes > 0 {
		util = float64(c.usedBytes) / float64(c.maxBytes)
	}
	return Stats{
		Count:       len(c.entries),
		TotalHits:   totalHits,
		Hot:         hot,
		Bytes:       c.usedBytes,
		Utilization: util,
	}
}

// idsByAge is a test/debug helper returning ids sorted oldest-first.
func (c *Cache) idsByAge() []ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]ID, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return c.entries[ids[i]].lastUse < c.entries[ids[j]].lastUse
	})
	return ids
}
