//go:build !js || !wasm

package platform

import "github.com/klauspost/cpuid/v2"

// hasSIMD128 reports the closest native analogue to WASM's 128-bit
// SIMD lanes: SSE2 on amd64 is universally available and maps to the
// same 16-byte lane width tensorcore's kernels assume; ARM NEON is the
// arm64 analogue. Either is treated as "capable" so native dev builds
// and cmd/tensorcore-bench exercise the same code paths the wasm target
// would take.
func hasSIMD128() bool {
	return cpuid.CPU.Has(cpuid.SSE2) || cpuid.CPU.Has(cpuid.ASIMD)
}

// hasBulkMemory has no native counterpart; Go's runtime always provides
// an optimized memmove/memclr, so the equivalent capability is always
// present natively.
func hasBulkMemory() bool {
	return true
}
