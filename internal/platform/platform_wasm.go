//go:build js && wasm

package platform

import "syscall/js"

// hasSIMD128 probes WebAssembly.validate against a minimal module
// containing a v128 instruction, mirroring the teacher's
// kernel/runtime/profiler_wasm.go detectSimd heuristic of
// feature-testing through the global object rather than assuming.
func hasSIMD128() bool {
	wasm := js.Global().Get("WebAssembly")
	if !wasm.Truthy() {
		return false
	}
	validate := wasm.Get("validate")
	if !validate.Truthy() {
		return false
	}
	// Minimal module: (module (func (result v128) v128.const i32x4 0 0 0 0))
	module := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7b,
		0x03, 0x02, 0x01, 0x00,
		0x0a, 0x16, 0x01, 0x14, 0x00, 0xfd, 0x0c,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0b,
	}
	buf := js.Global().Get("Uint8Array").New(len(module))
	js.CopyBytesToJS(buf, module)
	return wasm.Call("validate", buf).Bool()
}

// hasBulkMemory reports whether the global WebAssembly object exposes a
// Memory constructor. This is a presence check only: it does not
// validate a module that uses memory.copy/memory.fill.
func hasBulkMemory() bool {
	wasm := js.Global().Get("WebAssembly")
	if !wasm.Truthy() {
		return false
	}
	return wasm.Get("Memory").Truthy()
}
