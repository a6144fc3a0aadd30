// Package platform implements the two host-facing feature probes from
// spec.md §6 (has_simd128_support, has_bulk_memory_support). The actual
// detection is build-tag split between a js/wasm implementation and a
// native one, matching the teacher's kernel/runtime profiler split.
package platform

// HasSIMD128Support reports whether the current runtime can execute
// 128-bit SIMD vector instructions.
func HasSIMD128Support() bool {
	return hasSIMD128()
}

// HasBulkMemorySupport reports whether the current runtime supports
// WASM's bulk-memory proposal (memory.copy/memory.fill), or the closest
// native analogue (fast memmove/memset) when not running under wasm.
func HasBulkMemorySupport() bool {
	return hasBulkMemory()
}
