// Package wasm is a right-sized module model for the subset of the
// WebAssembly binary format the gas-metering pipeline needs to read,
// rewrite, and re-encode. Field and opcode names follow the conventions
// wazero's own internal/wasm package uses.
package wasm

import "fmt"

// Index is a position into one of the module's index spaces (type, function,
// table, memory, global). The function index space is the concatenation of
// ImportSection entries of Type == ExternTypeFunc, followed by CodeSection
// entries (see Module.ImportedFunctionCount).
type Index = uint32

// ValueType is the encoding of a WebAssembly value type.
type ValueType = byte

const (
	ValueTypeI32       ValueType = 0x7f
	ValueTypeI64       ValueType = 0x7e
	ValueTypeF32       ValueType = 0x7d
	ValueTypeF64       ValueType = 0x7c
	ValueTypeFuncref   ValueType = 0x70
	ValueTypeExternref ValueType = 0x6f
)

// ValueTypeName returns the WAT-style name of a ValueType.
func ValueTypeName(t ValueType) string {
	switch t {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return fmt.Sprintf("0x%x", t)
	}
}

// ExternType classifies an Import or Export.
type ExternType = byte

const (
	ExternTypeFunc   ExternType = 0x00
	ExternTypeTable  ExternType = 0x01
	ExternTypeMemory ExternType = 0x02
	ExternTypeGlobal ExternType = 0x03
)

// ExternTypeName returns the name used in the text format, or a hex fallback.
func ExternTypeName(t ExternType) string {
	switch t {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	default:
		return fmt.Sprintf("0x%x", t)
	}
}

// SectionID identifies a top-level module section.
type SectionID = byte

const (
	SectionIDCustom SectionID = iota
	SectionIDType
	SectionIDImport
	SectionIDFunction
	SectionIDTable
	SectionIDMemory
	SectionIDGlobal
	SectionIDExport
	SectionIDStart
	SectionIDElement
	SectionIDCode
	SectionIDData
)

// SectionIDName returns the name used in error messages, or "unknown".
func SectionIDName(s SectionID) string {
	switch s {
	case SectionIDCustom:
		return "custom"
	case SectionIDType:
		return "type"
	case SectionIDImport:
		return "import"
	case SectionIDFunction:
		return "function"
	case SectionIDTable:
		return "table"
	case SectionIDMemory:
		return "memory"
	case SectionIDGlobal:
		return "global"
	case SectionIDExport:
		return "export"
	case SectionIDStart:
		return "start"
	case SectionIDElement:
		return "element"
	case SectionIDCode:
		return "code"
	case SectionIDData:
		return "data"
	default:
		return "unknown"
	}
}

// FunctionType is a function signature: an ordered list of parameter types
// and an ordered list of result types.
type FunctionType struct {
	Params  []ValueType
	Results []ValueType
}

// String renders a compact signature string, e.g. "i32i64_f32" or "null_null"
// when a side is empty.
func (t *FunctionType) String() string {
	return valueTypesString(t.Params) + "_" + valueTypesString(t.Results)
}

func valueTypesString(types []ValueType) string {
	if len(types) == 0 {
		return "null"
	}
	s := ""
	for _, v := range types {
		s += ValueTypeName(v)
	}
	return s
}

// EqualsSignature reports whether t has exactly the given params/results.
func (t *FunctionType) EqualsSignature(params, results []ValueType) bool {
	if len(t.Params) != len(params) || len(t.Results) != len(results) {
		return false
	}
	for i, p := range params {
		if t.Params[i] != p {
			return false
		}
	}
	for i, r := range results {
		if t.Results[i] != r {
			return false
		}
	}
	return true
}

// LimitsType is the min/max pair shared by table and memory declarations.
// Max is nil when unbounded.
type LimitsType struct {
	Min uint32
	Max *uint32
}

// MemoryType reuses LimitsType: a memory is a limits pair over page counts.
type MemoryType = LimitsType

// TableType is a table's element type plus its size limits.
type TableType struct {
	ElemType ValueType
	Limit    *LimitsType
}

// GlobalType is a global's value type plus its mutability.
type GlobalType struct {
	ValType ValueType
	Mutable bool
}

// ConstantExpression is a restricted single-instruction initializer used by
// globals and element/data segment offsets: one opcode plus its encoded
// immediate, terminated implicitly by "end" (not stored in Data).
type ConstantExpression struct {
	Opcode Opcode
	Data   []byte
}

// Import describes one entry of the import section. Only one of DescFunc,
// DescTable, DescMem, DescGlobal is meaningful, selected by Type.
type Import struct {
	Type   ExternType
	Module string
	Name   string

	DescFunc   Index
	DescTable  *TableType
	DescMem    *MemoryType
	DescGlobal *GlobalType
}

// Export describes one entry of the export section.
type Export struct {
	Type  ExternType
	Name  string
	Index Index
}

// Global is one entry of the global section: its declared type and its
// constant initializer.
type Global struct {
	Type *GlobalType
	Init *ConstantExpression
}

// ElementSegment is a table initializer: a target table, an offset
// expression, and the function indices to place starting at that offset.
// Passive and declarative element kinds are out of scope (spec Non-goals).
type ElementSegment struct {
	TableIndex Index
	OffsetExpr *ConstantExpression
	Init       []Index
}

// DataSegment is a memory initializer. The pipeline never inspects or
// rewrites its contents (spec Non-goals); it is carried through opaquely.
type DataSegment struct {
	MemoryIndex      Index
	OffsetExpression *ConstantExpression
	Init             []byte
}

// Code is a function definition: its local variable declarations (grouped by
// run already expanded to one ValueType per local) and its encoded operator
// stream.
type Code struct {
	LocalTypes []ValueType
	Body       []byte
}
