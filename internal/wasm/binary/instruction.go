// Package binary decodes and encodes the WebAssembly binary format: the
// module section layout and the operator stream each function body carries.
// Field and section-ordering conventions follow wazero's own
// internal/wasm/binary package.
package binary

import (
	"github.com/wazerogas/gasmeter/internal/leb128"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

// Instruction is one decoded operator: its tag plus the exact bytes of its
// immediate(s), as they appear on the wire (for misc operators, excluding
// the 0xFC prefix byte and the sub-opcode LEB128, which Opcode already
// encodes via wasm.MiscOpcode). Re-encoding Opcode+Immediate reproduces the
// original bytes exactly, which is what lets the rewriter and instrumenter
// re-emit every operator they don't need to change byte-for-byte.
type Instruction struct {
	Opcode    wasm.Opcode
	Immediate []byte
}

// CallTarget returns the function index encoded in a call instruction's
// immediate. Only "call" carries a function-index immediate that the index
// rewriter patches; call_indirect's immediates are a type index and a table
// index, neither of which insert-imported-context.h rewrites.
func (i Instruction) CallTarget() (wasm.Index, bool) {
	if i.Opcode != wasm.OpcodeCall {
		return 0, false
	}
	idx, _, err := leb128.LoadUint32(i.Immediate)
	if err != nil {
		return 0, false
	}
	return idx, true
}

// WithCallTarget returns a copy of a "call" instruction with its function
// index immediate replaced by idx.
func (i Instruction) WithCallTarget(idx wasm.Index) Instruction {
	return Instruction{Opcode: wasm.OpcodeCall, Immediate: leb128.EncodeUint32(idx)}
}
