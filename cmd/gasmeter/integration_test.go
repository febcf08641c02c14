package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wazerogas/gasmeter/internal/wasm"
	"github.com/wazerogas/gasmeter/internal/wasm/binary"
)

func TestInstrumentCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()

	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{Results: []wasm.ValueType{wasm.ValueTypeI32}}},
		FunctionSection: []wasm.Index{0},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "answer", Index: 0}},
		CodeSection:     []*wasm.Code{{Body: []byte{0x41, 0x2a, 0x0b}}},
	}
	inPath := filepath.Join(dir, "in.wasm")
	if err := os.WriteFile(inPath, binary.EncodeModule(m), 0o644); err != nil {
		t.Fatalf("write input module: %v", err)
	}

	costsPath, err := filepath.Abs(filepath.Join("..", "..", "testdata", "costs.yaml"))
	if err != nil {
		t.Fatalf("resolve costs path: %v", err)
	}
	outPath := filepath.Join(dir, "out.wasm")

	root := newRootCommand()
	root.SetArgs([]string{"instrument", inPath, "-o", outPath, "--costs", costsPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute instrument command: %v", err)
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output module: %v", err)
	}
	got, err := binary.DecodeModule(out)
	if err != nil {
		t.Fatalf("decode output module: %v", err)
	}
	if len(got.ImportSection) != 1 {
		t.Fatalf("output import section len = %d, want 1", len(got.ImportSection))
	}
	if got.ImportSection[0].Module != "env" || got.ImportSection[0].Name != "add_gas" {
		t.Errorf("accounting import = %+v, want env/add_gas", got.ImportSection[0])
	}
	if got.ExportSection[0].Index != 1 {
		t.Errorf("export index = %d, want 1 (shifted past new import)", got.ExportSection[0].Index)
	}
}
