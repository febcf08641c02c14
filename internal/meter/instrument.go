package meter

import (
	"io"
	"math"

	"github.com/wazerogas/gasmeter/internal/cost"
	"github.com/wazerogas/gasmeter/internal/gasconfig"
	"github.com/wazerogas/gasmeter/internal/gaserr"
	"github.com/wazerogas/gasmeter/internal/leb128"
	"github.com/wazerogas/gasmeter/internal/wasm"
	"github.com/wazerogas/gasmeter/internal/wasm/binary"
)

// maxGas is the largest value the accounting call's argument can represent:
// 2^63-1, matching an i64 (or the i32 pair's combined 64 bits) argument.
// A segment whose cost would exceed this is a cost-overflow error rather
// than a silent wraparound.
const maxGas = uint64(math.MaxInt64)

// Result reports what Body did, for pipeline-level logging.
type Result struct {
	SegmentCount int
	TotalCost    uint64
}

// Body instruments a function's encoded operator stream with gas-accounting
// calls to accountantIndex, charged per costs, using the call shape sig
// names. It mirrors GasVisitContext.h's GasVisitor: buffered instructions
// replay verbatim; flush points insert the accounting call ahead of
// whatever was buffered since the last flush, carrying any un-flushed cost
// of the flush-point operators themselves into the next segment exactly as
// the original's gasCounter does.
func Body(body []byte, costs *cost.Table, accountantIndex wasm.Index, sig gasconfig.AccountantSignature) ([]byte, Result, error) {
	dec := binary.NewOperatorDecoder(body)
	enc := binary.NewOperatorEncoder()
	seg := &segment{}
	result := Result{}

	flush := func() error {
		if seg.empty() {
			// Matches put_trap(): an empty buffer means nothing was ever
			// charged for, so the accounting call is skipped and the
			// accumulated cost carries forward untouched.
			return nil
		}
		if seg.cost > maxGas {
			return gaserr.CostOverflowf("", "segment cost %d exceeds maximum %d", seg.cost, maxGas)
		}
		emitAccountingCall(enc, seg.cost, accountantIndex, sig)
		for _, buffered := range seg.buffered {
			enc.Emit(binary.Instruction{Opcode: buffered.opcode, Immediate: buffered.immediate})
		}
		result.SegmentCount++
		result.TotalCost += seg.cost
		seg.reset()
		return nil
	}

	for {
		ins, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, result, gaserr.MalformedInputf("decode function body: %w", err)
		}

		c := costs.Cost(ins.Opcode)

		switch classify(ins.Opcode) {
		case classFlushPoint:
			if err := flush(); err != nil {
				return nil, result, err
			}
			enc.Emit(ins)
			seg.cost += c
		default:
			if seg.cost+c < seg.cost {
				return nil, result, gaserr.CostOverflowf("", "segment cost overflowed accumulating")
			}
			seg.push(instruction{opcode: ins.Opcode, immediate: ins.Immediate}, c)
		}
	}

	// The function's closing "end" is itself a flush point: it flushed
	// whatever was buffered before it, then added its own cost to seg,
	// where it remains uncharged. This mirrors GasVisitContext.h exactly:
	// put_trap() only inserts an accounting call when opEmiters is
	// non-empty, so a flush-point operator's own cost with nothing
	// buffered after it is carried forward and, at the true end of the
	// body, never charged.

	return enc.Bytes(), result, nil
}

func emitAccountingCall(enc *binary.OperatorEncoder, gas uint64, accountantIndex wasm.Index, sig gasconfig.AccountantSignature) {
	switch sig {
	case gasconfig.SplitI32Pair:
		low := int32(uint32(gas))
		high := int32(uint32(gas >> 32))
		enc.Emit(binary.Instruction{Opcode: wasm.OpcodeI32Const, Immediate: leb128.EncodeInt32(low)})
		enc.Emit(binary.Instruction{Opcode: wasm.OpcodeI32Const, Immediate: leb128.EncodeInt32(high)})
	default:
		enc.Emit(binary.Instruction{Opcode: wasm.OpcodeI64Const, Immediate: leb128.EncodeInt64(int64(gas))})
	}
	enc.Emit(binary.Instruction{Opcode: wasm.OpcodeCall, Immediate: leb128.EncodeUint32(accountantIndex)})
}
