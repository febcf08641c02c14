package binary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazerogas/gasmeter/internal/wasm"
)

func minimalModule() *wasm.Module {
	return &wasm.Module{
		TypeSection: []*wasm.FunctionType{
			{Params: nil, Results: []wasm.ValueType{wasm.ValueTypeI32}},
		},
		FunctionSection: []wasm.Index{0},
		ExportSection: []*wasm.Export{
			{Type: wasm.ExternTypeFunc, Name: "answer", Index: 0},
		},
		CodeSection: []*wasm.Code{
			{Body: []byte{0x41, 0x2a, 0x0b}}, // i32.const 42; end
		},
	}
}

func TestEncodeDecodeModuleRoundTrip(t *testing.T) {
	m := minimalModule()
	encoded := EncodeModule(m)

	got, err := DecodeModule(encoded)
	require.NoError(t, err)

	require.Len(t, got.TypeSection, 1)
	require.True(t, got.TypeSection[0].EqualsSignature(nil, []wasm.ValueType{wasm.ValueTypeI32}))
	require.Len(t, got.ExportSection, 1)
	require.Equal(t, "answer", got.ExportSection[0].Name)
	require.Len(t, got.CodeSection, 1)
	require.Equal(t, m.CodeSection[0].Body, got.CodeSection[0].Body)

	reencoded := EncodeModule(got)
	require.Equal(t, encoded, reencoded)
}

func TestDecodeModuleRejectsBadMagic(t *testing.T) {
	_, err := DecodeModule([]byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestEncodeModuleWithStartAndElement(t *testing.T) {
	start := wasm.Index(0)
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{}},
		FunctionSection: []wasm.Index{0},
		StartSection:    &start,
		TableSection: []*wasm.TableType{
			{ElemType: wasm.ValueTypeFuncref, Limit: &wasm.LimitsType{Min: 1}},
		},
		ElementSection: []*wasm.ElementSegment{
			{TableIndex: 0, OffsetExpr: &wasm.ConstantExpression{Opcode: wasm.OpcodeI32Const, Data: []byte{0x00}}, Init: []wasm.Index{0}},
		},
		CodeSection: []*wasm.Code{{Body: []byte{0x0b}}},
	}
	encoded := EncodeModule(m)
	got, err := DecodeModule(encoded)
	require.NoError(t, err)
	require.NotNil(t, got.StartSection)
	require.EqualValues(t, 0, *got.StartSection)
	require.Len(t, got.ElementSection, 1)
	require.EqualValues(t, 0, got.ElementSection[0].Init[0])
}
