package splice

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wazerogas/gasmeter/internal/wasm"
	"github.com/wazerogas/gasmeter/internal/wasm/binary"
)

func TestImportAppendsTypeAndImport(t *testing.T) {
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{}},
		FunctionSection: []wasm.Index{0},
		CodeSection:     []*wasm.Code{{Body: []byte{0x0b}}},
	}

	idx, err := Import(m, "env", "add_gas", wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI64}})
	require.NoError(t, err)
	require.EqualValues(t, 0, idx, "no pre-existing imports means pivot 0")
	require.Len(t, m.TypeSection, 2)
	require.Len(t, m.ImportSection, 1)

	imp := m.ImportSection[0]
	require.Equal(t, "env", imp.Module)
	require.Equal(t, "add_gas", imp.Name)
	require.EqualValues(t, 1, imp.DescFunc)
}

func TestImportShiftsExistingCallsAndExports(t *testing.T) {
	// One existing defined function (index 0 pre-splice) calling itself,
	// exported. After splicing one new import at pivot 0, the defined
	// function moves to index 1 and all references must follow.
	m := &wasm.Module{
		TypeSection:     []*wasm.FunctionType{{}},
		FunctionSection: []wasm.Index{0},
		ExportSection:   []*wasm.Export{{Type: wasm.ExternTypeFunc, Name: "f", Index: 0}},
		CodeSection:     []*wasm.Code{{Body: []byte{0x10, 0x00, 0x0b}}}, // call 0; end
	}

	_, err := Import(m, "env", "add_gas", wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI64}})
	require.NoError(t, err)

	require.EqualValues(t, 1, m.ExportSection[0].Index)

	dec := binary.NewOperatorDecoder(m.CodeSection[0].Body)
	ins, err := dec.Next()
	require.NoError(t, err)

	target, ok := ins.CallTarget()
	require.True(t, ok)
	require.EqualValues(t, 1, target)
}
