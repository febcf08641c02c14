// Package meter instruments a function body with gas accounting calls,
// grounded on WAVM's GasVisitor (GasVisitContext.h): operators are
// classified into "flush points" (control-flow boundaries, which must see
// accurate gas state before they execute) and everything else, which is
// buffered and replayed verbatim once a flush point forces the issue.
package meter

import "github.com/wazerogas/gasmeter/internal/wasm"

// class is the flush/buffer classification of an operator, matching the
// GasVisitor's treatment of each operator group.
type class int

const (
	// classFlushPoint covers block openers (block/loop/if/try), block
	// continuations and closers (else/catch/catch_all/end), and branches
	// (br/br_if/br_table): each flushes any buffered instructions first,
	// emits itself directly (never buffered), then adds its own cost to
	// the running counter carried into the next flush.
	classFlushPoint class = iota
	// classBuffered covers every other operator: its cost is added to the
	// running counter and the operator itself is appended to the segment's
	// buffer, to be replayed verbatim at the next flush point.
	classBuffered
)

// classify returns op's flush/buffer classification.
func classify(op wasm.Opcode) class {
	switch op {
	case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf,
		wasm.OpcodeTry, wasm.OpcodeElse, wasm.OpcodeCatch, wasm.OpcodeCatchAll,
		wasm.OpcodeEnd,
		wasm.OpcodeBr, wasm.OpcodeBrIf, wasm.OpcodeBrTable:
		return classFlushPoint
	default:
		// unreachable, return, call, call_indirect, throw, rethrow, drop,
		// select, local/global/table get/set/tee, every numeric and memory
		// operator: all buffered, matching GasVisitContext.h's VISIT_OP
		// macro for every non-control, non-branch operator. table.set is
		// deliberately NOT special-cased here: it buffers and replays
		// itself, unlike the original's transcription bug that replayed a
		// table.get in its place.
		return classBuffered
	}
}

// segment accumulates buffered instructions and their total cost between
// two flush points.
type segment struct {
	buffered []instruction
	cost     uint64
}

// instruction is the subset of a decoded operator the accumulator needs to
// replay it: its opcode and raw immediate bytes. Defined locally so this
// package does not need to import the binary codec's Instruction type
// directly in its public surface.
type instruction struct {
	opcode    wasm.Opcode
	immediate []byte
}

func (s *segment) push(ins instruction, cost uint64) {
	s.buffered = append(s.buffered, ins)
	s.cost += cost
}

func (s *segment) empty() bool {
	return len(s.buffered) == 0
}

func (s *segment) reset() {
	s.buffered = s.buffered[:0]
	s.cost = 0
}
