package gasconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wazerogas/gasmeter/internal/wasm"
)

func TestConfigCloneOnWrite(t *testing.T) {
	base := NewConfig(nil)
	derived := base.WithImportNamespace("host").WithAccountantSignature(SplitI32Pair)

	if base.ImportNamespace() != "env" {
		t.Errorf("base namespace mutated: got %q, want env", base.ImportNamespace())
	}
	if derived.ImportNamespace() != "host" {
		t.Errorf("derived namespace = %q, want host", derived.ImportNamespace())
	}
	if base.AccountantSignature() != SingleI64 {
		t.Errorf("base signature mutated: got %v, want SingleI64", base.AccountantSignature())
	}
	if derived.AccountantSignature() != SplitI32Pair {
		t.Errorf("derived signature = %v, want SplitI32Pair", derived.AccountantSignature())
	}
}

func TestAccountantFunctionType(t *testing.T) {
	c := NewConfig(nil)
	ft := c.AccountantFunctionType()
	if !ft.EqualsSignature([]wasm.ValueType{wasm.ValueTypeI64}, nil) {
		t.Errorf("SingleI64 signature = %v, want [i64]->[]", ft)
	}

	split := c.WithAccountantSignature(SplitI32Pair).AccountantFunctionType()
	if !split.EqualsSignature([]wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}, nil) {
		t.Errorf("SplitI32Pair signature = %v, want [i32,i32]->[]", split)
	}
}

func TestLoadCostTableFromYAML(t *testing.T) {
	doc, err := os.ReadFile(filepath.Join("..", "..", "testdata", "costs.yaml"))
	if err != nil {
		t.Fatalf("reading testdata: %v", err)
	}
	tbl, err := LoadCostTable(doc)
	if err != nil {
		t.Fatalf("LoadCostTable: %v", err)
	}
	if got := tbl.Cost(wasm.OpcodeCall); got != 10 {
		t.Errorf("cost(call) = %d, want 10", got)
	}
}

func TestLoadCostTableRejectsUnknownMnemonic(t *testing.T) {
	_, err := LoadCostTable([]byte("not.a.real.opcode: 5\n"))
	if err == nil {
		t.Fatal("expected error for unrecognized mnemonic")
	}
}
