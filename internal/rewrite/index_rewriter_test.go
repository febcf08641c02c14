package rewrite

import (
	"bytes"
	"testing"

	"github.com/wazerogas/gasmeter/internal/wasm"
)

func TestBodyShiftsCallAtOrAbovePivot(t *testing.T) {
	// call 2; call 5; end, pivot 3: first call stays, second shifts to 6.
	body := []byte{0x10, 0x02, 0x10, 0x05, 0x0b}
	got, err := Body(body, 3)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	want := []byte{0x10, 0x02, 0x10, 0x06, 0x0b}
	if !bytes.Equal(got, want) {
		t.Errorf("Body() = %x, want %x", got, want)
	}
}

func TestBodyDoesNotShiftCallIndirectTypeIndex(t *testing.T) {
	// call_indirect type=3 table=0; end, pivot 1: type index untouched.
	body := []byte{0x11, 0x03, 0x00, 0x0b}
	got, err := Body(body, 1)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Body() = %x, want unchanged %x", got, body)
	}
}

func TestBodyHandlesBlockNesting(t *testing.T) {
	// block (empty); call 0; end; end  -- outer end closes function body.
	body := []byte{0x02, 0x40, 0x10, 0x00, 0x0b, 0x0b}
	got, err := Body(body, 0)
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	want := []byte{0x02, 0x40, 0x10, 0x01, 0x0b, 0x0b}
	if !bytes.Equal(got, want) {
		t.Errorf("Body() = %x, want %x", got, want)
	}
}

func TestBodyRejectsUnbalancedControlStack(t *testing.T) {
	// block opened, never closed, and the function's own "end" is missing.
	body := []byte{0x02, 0x40, 0x10, 0x00}
	if _, err := Body(body, 0); err == nil {
		t.Fatal("expected error for unbalanced control stack")
	}
}

func TestModuleShiftsElementExportStart(t *testing.T) {
	start := wasm.Index(4)
	m := &wasm.Module{
		StartSection: &start,
		ElementSection: []*wasm.ElementSegment{
			{Init: []wasm.Index{1, 3, 5, wasm.ElementInitNullReference}},
		},
		ExportSection: []*wasm.Export{
			{Type: wasm.ExternTypeFunc, Name: "below", Index: 1},
			{Type: wasm.ExternTypeFunc, Name: "above", Index: 5},
			{Type: wasm.ExternTypeMemory, Name: "mem", Index: 0},
		},
	}
	Module(m, 3)

	wantInit := []wasm.Index{1, 4, 6, wasm.ElementInitNullReference}
	for i, idx := range m.ElementSection[0].Init {
		if idx != wantInit[i] {
			t.Errorf("Init[%d] = %d, want %d", i, idx, wantInit[i])
		}
	}
	if m.ExportSection[0].Index != 1 {
		t.Errorf("below-pivot export shifted: got %d, want 1", m.ExportSection[0].Index)
	}
	if m.ExportSection[1].Index != 6 {
		t.Errorf("above-pivot export not shifted: got %d, want 6", m.ExportSection[1].Index)
	}
	if m.ExportSection[2].Index != 0 {
		t.Errorf("non-func export was touched: got %d, want 0", m.ExportSection[2].Index)
	}
	if *m.StartSection != 5 {
		t.Errorf("start section = %d, want 5", *m.StartSection)
	}
}

func TestModuleLeavesBelowPivotStartUnshifted(t *testing.T) {
	start := wasm.Index(2)
	m := &wasm.Module{StartSection: &start}
	Module(m, 3)
	if *m.StartSection != 2 {
		t.Errorf("start section = %d, want unchanged 2", *m.StartSection)
	}
}
