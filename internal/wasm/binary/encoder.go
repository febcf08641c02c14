package binary

import (
	"github.com/wazerogas/gasmeter/internal/leb128"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

// OperatorEncoder accepts instructions one at a time and assembles their
// wire-format encoding. It is the write-side counterpart of OperatorDecoder.
type OperatorEncoder struct {
	buf []byte
}

// NewOperatorEncoder returns an empty encoder.
func NewOperatorEncoder() *OperatorEncoder {
	return &OperatorEncoder{}
}

// Emit appends i's encoding.
func (e *OperatorEncoder) Emit(i Instruction) {
	if sub, ok := wasm.MiscSubOpcode(i.Opcode); ok {
		e.buf = append(e.buf, byte(wasm.OpcodeMiscPrefix))
		e.buf = append(e.buf, leb128.EncodeUint32(sub)...)
	} else {
		e.buf = append(e.buf, byte(i.Opcode))
	}
	e.buf = append(e.buf, i.Immediate...)
}

// Bytes returns the accumulated encoding.
func (e *OperatorEncoder) Bytes() []byte {
	return e.buf
}
