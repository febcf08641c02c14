package meter

import (
	"testing"

	"github.com/wazerogas/gasmeter/internal/cost"
	"github.com/wazerogas/gasmeter/internal/gasconfig"
	"github.com/wazerogas/gasmeter/internal/leb128"
	"github.com/wazerogas/gasmeter/internal/wasm"
	"github.com/wazerogas/gasmeter/internal/wasm/binary"
)

func uniformCostTable(t *testing.T, uniform uint64) *cost.Table {
	t.Helper()
	costs := make(map[wasm.Opcode]uint64)
	for _, op := range wasm.AllOpcodes() {
		costs[op] = uniform
	}
	tbl, err := cost.NewTable(costs)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func decodeOps(t *testing.T, body []byte) []wasm.Opcode {
	t.Helper()
	dec := binary.NewOperatorDecoder(body)
	var ops []wasm.Opcode
	for {
		ins, err := dec.Next()
		if err != nil {
			break
		}
		ops = append(ops, ins.Opcode)
	}
	return ops
}

func TestBodyInsertsAccountingBeforeBufferedRun(t *testing.T) {
	costs := uniformCostTable(t, 1)
	// local.get 0; i32.const 1; i32.add; end
	body := []byte{0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b}

	got, result, err := Body(body, costs, 9, gasconfig.SingleI64)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if result.SegmentCount != 1 {
		t.Errorf("SegmentCount = %d, want 1", result.SegmentCount)
	}
	if result.TotalCost != 3 {
		t.Errorf("TotalCost = %d, want 3", result.TotalCost)
	}

	ops := decodeOps(t, got)
	want := []wasm.Opcode{
		wasm.OpcodeI64Const, wasm.OpcodeCall, // injected accounting call
		wasm.OpcodeLocalGet, wasm.OpcodeI32Const, wasm.OpcodeI32Add, // replayed
		wasm.OpcodeEnd,
	}
	if len(ops) != len(want) {
		t.Fatalf("decoded %d ops, want %d: %v", len(ops), len(want), ops)
	}
	for i, op := range want {
		if ops[i] != op {
			t.Errorf("op %d = %x, want %x", i, ops[i], op)
		}
	}
}

func TestBodySplitsSegmentsAtBranchBoundary(t *testing.T) {
	costs := uniformCostTable(t, 1)
	// block (empty); local.get 0; br 0; i32.const 1; end; end
	body := []byte{
		0x02, 0x40,
		0x20, 0x00,
		0x0c, 0x00,
		0x41, 0x01,
		0x0b,
		0x0b,
	}
	got, result, err := Body(body, costs, 9, gasconfig.SingleI64)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	// Two buffered runs flush: [local.get 0] before "br 0", and
	// [i32.const 1] before the inner "end". The costs of "block" and "br"
	// carry into the segment that follows each of them; the two "end"s'
	// costs are left uncharged, with nothing buffered after them.
	if result.SegmentCount != 2 {
		t.Errorf("SegmentCount = %d, want 2", result.SegmentCount)
	}
	ops := decodeOps(t, got)
	if ops[0] != wasm.OpcodeBlock {
		t.Errorf("first op = %x, want block (unbuffered flush-point op)", ops[0])
	}
}

func TestBodyDoesNotReproduceTableSetBug(t *testing.T) {
	costs := uniformCostTable(t, 1)
	// table.set 0; end
	body := []byte{0x26, 0x00, 0x0b}
	got, _, err := Body(body, costs, 9, gasconfig.SingleI64)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	ops := decodeOps(t, got)
	found := false
	for _, op := range ops {
		if op == wasm.OpcodeTableSet {
			found = true
		}
		if op == wasm.OpcodeTableGet {
			t.Fatal("table.set was rewritten to table.get, reproducing the transcription bug")
		}
	}
	if !found {
		t.Fatal("table.set did not round-trip")
	}
}

func TestBodySplitI32PairAccounting(t *testing.T) {
	costs := uniformCostTable(t, 1)
	body := []byte{0x20, 0x00, 0x0b} // local.get 0; end
	got, _, err := Body(body, costs, 9, gasconfig.SplitI32Pair)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	ops := decodeOps(t, got)
	if ops[0] != wasm.OpcodeI32Const || ops[1] != wasm.OpcodeI32Const || ops[2] != wasm.OpcodeCall {
		t.Errorf("accounting prefix = %v, want [i32.const, i32.const, call]", ops[:3])
	}
}

func TestBodyZeroCostTableStillFlushesBufferedRun(t *testing.T) {
	// A zero-cost table charges nothing, but segment.empty() is keyed on
	// buffered instruction count, not accumulated cost: a buffered run
	// still forces an accounting prologue with value 0 ahead of the flush
	// point that closes it.
	costs := uniformCostTable(t, 0)
	// local.get 0; i32.const 1; i32.add; end
	body := []byte{0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b}

	got, result, err := Body(body, costs, 9, gasconfig.SingleI64)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if result.SegmentCount != 1 {
		t.Errorf("SegmentCount = %d, want 1", result.SegmentCount)
	}
	if result.TotalCost != 0 {
		t.Errorf("TotalCost = %d, want 0", result.TotalCost)
	}

	dec := binary.NewOperatorDecoder(got)
	ins, err := dec.Next()
	if err != nil {
		t.Fatalf("decode first instruction: %v", err)
	}
	if ins.Opcode != wasm.OpcodeI64Const {
		t.Fatalf("first op = %x, want i64.const", ins.Opcode)
	}
	gas, _, err := leb128.LoadInt64(ins.Immediate)
	if err != nil {
		t.Fatalf("decode accounting immediate: %v", err)
	}
	if gas != 0 {
		t.Errorf("accounting prologue pushed %d, want 0", gas)
	}

	ins, err = dec.Next()
	if err != nil {
		t.Fatalf("decode second instruction: %v", err)
	}
	if ins.Opcode != wasm.OpcodeCall {
		t.Errorf("second op = %x, want call", ins.Opcode)
	}
}

func TestBodyAccountingImmediateEncodesSegmentCost(t *testing.T) {
	costs := uniformCostTable(t, 5)
	// local.get 0; i32.const 1; i32.add; end — three buffered ops, cost 15
	body := []byte{0x20, 0x00, 0x41, 0x01, 0x6a, 0x0b}

	got, result, err := Body(body, costs, 9, gasconfig.SingleI64)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}

	dec := binary.NewOperatorDecoder(got)
	ins, err := dec.Next()
	if err != nil {
		t.Fatalf("decode accounting instruction: %v", err)
	}
	if ins.Opcode != wasm.OpcodeI64Const {
		t.Fatalf("first op = %x, want i64.const", ins.Opcode)
	}
	gas, _, err := leb128.LoadInt64(ins.Immediate)
	if err != nil {
		t.Fatalf("decode accounting immediate: %v", err)
	}
	if uint64(gas) != result.TotalCost {
		t.Errorf("accounting prologue pushed %d, want %d (TotalCost)", gas, result.TotalCost)
	}
}

func TestBodySplitI32PairAccountingImmediatesEncodeLowThenHighWord(t *testing.T) {
	costs := uniformCostTable(t, 1)
	body := []byte{0x20, 0x00, 0x0b} // local.get 0; end
	const accountantIndex = 9

	got, result, err := Body(body, costs, accountantIndex, gasconfig.SplitI32Pair)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}

	dec := binary.NewOperatorDecoder(got)
	low, err := dec.Next()
	if err != nil {
		t.Fatalf("decode low word: %v", err)
	}
	high, err := dec.Next()
	if err != nil {
		t.Fatalf("decode high word: %v", err)
	}
	call, err := dec.Next()
	if err != nil {
		t.Fatalf("decode call: %v", err)
	}
	if low.Opcode != wasm.OpcodeI32Const || high.Opcode != wasm.OpcodeI32Const || call.Opcode != wasm.OpcodeCall {
		t.Fatalf("accounting prefix opcodes = [%x, %x, %x], want [i32.const, i32.const, call]", low.Opcode, high.Opcode, call.Opcode)
	}

	lowVal, _, err := leb128.LoadInt32(low.Immediate)
	if err != nil {
		t.Fatalf("decode low word immediate: %v", err)
	}
	highVal, _, err := leb128.LoadInt32(high.Immediate)
	if err != nil {
		t.Fatalf("decode high word immediate: %v", err)
	}
	gas := uint64(uint32(lowVal)) | uint64(uint32(highVal))<<32
	if gas != result.TotalCost {
		t.Errorf("decoded gas %d, want %d (TotalCost)", gas, result.TotalCost)
	}

	target, ok := call.CallTarget()
	if !ok || target != accountantIndex {
		t.Errorf("call target = %v (ok=%v), want %d", target, ok, accountantIndex)
	}
}
