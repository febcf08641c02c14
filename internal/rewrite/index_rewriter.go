// Package rewrite shifts function-index references throughout a module when
// a new function is spliced into the function index space at a pivot point.
// It is grounded on WAVM's ImportFunctionInsertVisitor: everywhere that
// visitor increments an index "if it's >= the insertion point," this
// package does the same, generalized to an arbitrary pivot rather than the
// always-append-at-end pivot the original's single call site happened to use.
package rewrite

import (
	"io"

	"github.com/wazerogas/gasmeter/internal/gaserr"
	"github.com/wazerogas/gasmeter/internal/wasm"
	"github.com/wazerogas/gasmeter/internal/wasm/binary"
)

// controlDepth tracks nesting the same way the original visitor's
// controlStack does: block/loop/if/try push, end pops, and the function's
// own implicit frame is the caller's responsibility to seed.
type controlDepth struct {
	depth int
}

func (c *controlDepth) visit(op wasm.Opcode) error {
	switch op {
	case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf, wasm.OpcodeTry:
		c.depth++
	case wasm.OpcodeEnd:
		c.depth--
		if c.depth < 0 {
			return gaserr.MalformedInputf("control stack underflow at 'end'")
		}
	}
	return nil
}

// Body rewrites a function's encoded operator stream: every "call"
// instruction whose function-index immediate is >= pivot is incremented by
// one. Every other instruction, including call_indirect (which names a
// *type* index, never rewritten) is re-emitted byte-for-byte unchanged.
func Body(body []byte, pivot wasm.Index) ([]byte, error) {
	dec := binary.NewOperatorDecoder(body)
	enc := binary.NewOperatorEncoder()
	ctrl := &controlDepth{depth: 1} // the function body itself is the outermost frame

	for {
		ins, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, gaserr.MalformedInputf("decode function body: %w", err)
		}
		if err := ctrl.visit(ins.Opcode); err != nil {
			return nil, err
		}

		if idx, ok := ins.CallTarget(); ok && idx >= pivot {
			ins = ins.WithCallTarget(idx + 1)
		}
		enc.Emit(ins)
	}

	if ctrl.depth != 0 {
		return nil, gaserr.MalformedInputf("unbalanced control stack: %d frame(s) still open", ctrl.depth)
	}
	return enc.Bytes(), nil
}

// Module applies the module-scope index patches: every element segment
// entry, export of kind function, and the start function, shifted by one
// when their index is >= pivot. This is the part of AddImportedFunc outside
// its per-function body loop.
func Module(m *wasm.Module, pivot wasm.Index) {
	for _, el := range m.ElementSection {
		for i, idx := range el.Init {
			if idx != wasm.ElementInitNullReference && idx >= pivot {
				el.Init[i] = idx + 1
			}
		}
	}

	for _, exp := range m.ExportSection {
		if exp.Type == wasm.ExternTypeFunc && exp.Index >= pivot {
			exp.Index++
		}
	}

	if m.StartSection != nil && *m.StartSection >= pivot {
		shifted := *m.StartSection + 1
		m.StartSection = &shifted
	}
}
