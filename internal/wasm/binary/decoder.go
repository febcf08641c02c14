package binary

import (
	"bytes"
	"fmt"
	"io"

	"github.com/wazerogas/gasmeter/internal/leb128"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

// recordingReader wraps a byte source and remembers every byte it hands out,
// so the operator decoder can capture an instruction's immediate exactly as
// it appeared on the wire without re-deriving its encoding.
type recordingReader struct {
	r   *bytes.Reader
	buf []byte
}

func (rr *recordingReader) ReadByte() (byte, error) {
	b, err := rr.r.ReadByte()
	if err != nil {
		return 0, err
	}
	rr.buf = append(rr.buf, b)
	return b, nil
}

func (rr *recordingReader) take() []byte {
	out := rr.buf
	rr.buf = nil
	return out
}

// OperatorDecoder decodes a function body's encoded operator stream one
// instruction at a time.
type OperatorDecoder struct {
	rr *recordingReader
}

// NewOperatorDecoder returns a decoder over body.
func NewOperatorDecoder(body []byte) *OperatorDecoder {
	return &OperatorDecoder{rr: &recordingReader{r: bytes.NewReader(body)}}
}

// More reports whether at least one more byte remains to decode.
func (d *OperatorDecoder) More() bool {
	return d.rr.r.Len() > 0
}

// Next decodes and returns the next instruction. It returns io.EOF when the
// stream is exhausted.
func (d *OperatorDecoder) Next() (Instruction, error) {
	b, err := d.rr.ReadByte()
	if err != nil {
		if err == io.EOF {
			return Instruction{}, io.EOF
		}
		return Instruction{}, fmt.Errorf("decode opcode: %w", err)
	}

	var op wasm.Opcode
	if wasm.Opcode(b) == wasm.OpcodeMiscPrefix {
		sub, _, err := leb128.DecodeUint32(d.rr)
		if err != nil {
			return Instruction{}, fmt.Errorf("decode misc sub-opcode: %w", err)
		}
		op = wasm.MiscOpcode(sub)
	} else {
		op = wasm.Opcode(b)
	}
	if wasm.OpcodeName(op) == "unknown" {
		return Instruction{}, fmt.Errorf("decode opcode: unknown opcode 0x%x", op)
	}
	// Drop the opcode (and misc sub-opcode) bytes so that Immediate holds
	// only the bytes that follow them.
	d.rr.take()

	if err := d.skipImmediate(op); err != nil {
		return Instruction{}, err
	}

	return Instruction{Opcode: op, Immediate: d.rr.take()}, nil
}

// skipImmediate reads exactly the bytes belonging to op's immediate(s) off
// the stream, so the recording reader captures them and the stream position
// lands on the next opcode byte.
func (d *OperatorDecoder) skipImmediate(op wasm.Opcode) error {
	switch op {
	case wasm.OpcodeBlock, wasm.OpcodeLoop, wasm.OpcodeIf, wasm.OpcodeTry:
		return d.readBlockType()

	case wasm.OpcodeBr, wasm.OpcodeBrIf,
		wasm.OpcodeCall, wasm.OpcodeRefFunc,
		wasm.OpcodeLocalGet, wasm.OpcodeLocalSet, wasm.OpcodeLocalTee,
		wasm.OpcodeGlobalGet, wasm.OpcodeGlobalSet,
		wasm.OpcodeTableGet, wasm.OpcodeTableSet,
		wasm.OpcodeCatch, wasm.OpcodeRethrow, wasm.OpcodeThrow,
		wasm.OpcodeTableSize:
		return d.readLEBu32()

	case wasm.OpcodeBrTable:
		n, _, err := leb128.DecodeUint32(d.rr)
		if err != nil {
			return fmt.Errorf("decode br_table vector length: %w", err)
		}
		for i := uint32(0); i < n; i++ {
			if _, _, err := leb128.DecodeUint32(d.rr); err != nil {
				return fmt.Errorf("decode br_table target %d: %w", i, err)
			}
		}
		if _, _, err := leb128.DecodeUint32(d.rr); err != nil {
			return fmt.Errorf("decode br_table default target: %w", err)
		}
		return nil

	case wasm.OpcodeCallIndirect:
		if err := d.readLEBu32(); err != nil { // type index
			return err
		}
		return d.readLEBu32() // table index

	case wasm.OpcodeI32Load, wasm.OpcodeI64Load, wasm.OpcodeF32Load, wasm.OpcodeF64Load,
		wasm.OpcodeI32Load8S, wasm.OpcodeI32Load8U, wasm.OpcodeI32Load16S, wasm.OpcodeI32Load16U,
		wasm.OpcodeI64Load8S, wasm.OpcodeI64Load8U, wasm.OpcodeI64Load16S, wasm.OpcodeI64Load16U,
		wasm.OpcodeI64Load32S, wasm.OpcodeI64Load32U,
		wasm.OpcodeI32Store, wasm.OpcodeI64Store, wasm.OpcodeF32Store, wasm.OpcodeF64Store,
		wasm.OpcodeI32Store8, wasm.OpcodeI32Store16, wasm.OpcodeI64Store8,
		wasm.OpcodeI64Store16, wasm.OpcodeI64Store32:
		if err := d.readLEBu32(); err != nil { // align
			return err
		}
		return d.readLEBu32() // offset

	case wasm.OpcodeMemorySize, wasm.OpcodeMemoryGrow:
		return d.readLEBu32() // reserved memory index byte

	case wasm.OpcodeI32Const:
		_, _, err := leb128.DecodeInt32(d.rr)
		if err != nil {
			return fmt.Errorf("decode i32.const: %w", err)
		}
		return nil

	case wasm.OpcodeI64Const:
		_, _, err := leb128.DecodeInt64(d.rr)
		if err != nil {
			return fmt.Errorf("decode i64.const: %w", err)
		}
		return nil

	case wasm.OpcodeF32Const:
		return d.readRaw(4)

	case wasm.OpcodeF64Const:
		return d.readRaw(8)

	case wasm.OpcodeRefNull:
		return d.readRaw(1)

	case wasm.OpcodeSelectT:
		n, _, err := leb128.DecodeUint32(d.rr)
		if err != nil {
			return fmt.Errorf("decode select_t vector length: %w", err)
		}
		return d.readRaw(int(n))

	case wasm.OpcodeMemoryCopy:
		return d.readRaw(2) // dst memory index, src memory index (reserved bytes)

	case wasm.OpcodeMemoryFill:
		return d.readRaw(1) // reserved memory index byte

	case wasm.OpcodeTableInit:
		if err := d.readLEBu32(); err != nil { // elem segment index
			return err
		}
		return d.readLEBu32() // table index

	case wasm.OpcodeTableCopy:
		if err := d.readLEBu32(); err != nil { // dst table index
			return err
		}
		return d.readLEBu32() // src table index

	case wasm.OpcodeTableGrow, wasm.OpcodeTableFill:
		return d.readLEBu32() // table index

	default:
		// No immediate: unreachable, nop, else, end, catch_all, return,
		// drop, select, i32/i64/f32/f64 comparisons/arithmetic/conversions,
		// ref.is_null, sign-extension ops.
		return nil
	}
}

func (d *OperatorDecoder) readLEBu32() error {
	_, _, err := leb128.DecodeUint32(d.rr)
	return err
}

func (d *OperatorDecoder) readRaw(n int) error {
	for i := 0; i < n; i++ {
		if _, err := d.rr.ReadByte(); err != nil {
			return fmt.Errorf("decode immediate byte %d/%d: %w", i+1, n, err)
		}
	}
	return nil
}

// readBlockType consumes a block type immediate: either the single byte
// 0x40 (empty) / a value type, or a signed LEB128 s33 type index. All three
// shapes are single-byte-leading signed LEB128 values whose sign bit
// distinguishes "negative sentinel" (empty/valtype) from "non-negative type
// index"; only the non-negative case continues past one byte.
func (d *OperatorDecoder) readBlockType() error {
	first, err := d.rr.ReadByte()
	if err != nil {
		return fmt.Errorf("decode block type: %w", err)
	}
	if first&0x80 == 0 {
		// Single byte: covers 0x40 (empty) and all MVP value types, whose
		// encodings are all >= 0x40 with bit 7 clear.
		return nil
	}
	// Multi-byte: a positive type index: this byte plus however many
	// continuation bytes follow.
	for first&0x80 != 0 {
		first, err = d.rr.ReadByte()
		if err != nil {
			return fmt.Errorf("decode block type index: %w", err)
		}
	}
	return nil
}
