package pipeline

import (
	"testing"

	"github.com/wazerogas/gasmeter/internal/cost"
	"github.com/wazerogas/gasmeter/internal/gasconfig"
	"github.com/wazerogas/gasmeter/internal/wasm"
	"github.com/wazerogas/gasmeter/internal/wasm/binary"
)

func uniformConfig(t *testing.T) *gasconfig.Config {
	t.Helper()
	costs := make(map[wasm.Opcode]uint64)
	for _, op := range wasm.AllOpcodes() {
		costs[op] = 1
	}
	tbl, err := cost.NewTable(costs)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return gasconfig.NewConfig(tbl)
}

func sampleModule() *wasm.Module {
	return &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{Results: []wasm.ValueType{wasm.ValueTypeI32}}},
		FunctionSection: []wasm.Index{0},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "answer", Index: 0}},
		CodeSection: []*wasm.Code{
			{Body: []byte{0x41, 0x2a, 0x0b}}, // i32.const 42; end
		},
	}
}

func TestRunSplicesAndInstruments(t *testing.T) {
	m := sampleModule()
	cfg := uniformConfig(t)

	summary, err := Run(m, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AccountantIndex != 0 {
		t.Errorf("AccountantIndex = %d, want 0", summary.AccountantIndex)
	}
	if len(m.ImportSection) != 1 {
		t.Fatalf("import section len = %d, want 1", len(m.ImportSection))
	}
	if m.ExportSection[0].Index != 1 {
		t.Errorf("export index = %d, want 1 (shifted past new import)", m.ExportSection[0].Index)
	}

	encoded := binary.EncodeModule(m)
	decoded, err := binary.DecodeModule(encoded)
	if err != nil {
		t.Fatalf("re-encoding instrumented module failed to round-trip: %v", err)
	}
	if len(decoded.CodeSection) != 1 {
		t.Fatalf("decoded code section len = %d, want 1", len(decoded.CodeSection))
	}
}

func TestRunParallelMatchesSequentialSegmentCount(t *testing.T) {
	seq := sampleModule()
	seqCfg := uniformConfig(t)
	seqSummary, err := Run(seq, seqCfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	par := sampleModule()
	parCfg := uniformConfig(t).WithParallelism(4)
	parSummary, err := RunParallel(par, parCfg)
	if err != nil {
		t.Fatalf("RunParallel: %v", err)
	}

	if parSummary.SegmentCount != seqSummary.SegmentCount {
		t.Errorf("parallel segment count = %d, want %d", parSummary.SegmentCount, seqSummary.SegmentCount)
	}
	if parSummary.TotalCost != seqSummary.TotalCost {
		t.Errorf("parallel total cost = %d, want %d", parSummary.TotalCost, seqSummary.TotalCost)
	}
}
