package wasm

// Module is the in-memory representation of a parsed WebAssembly module,
// restricted to the sections the gas-metering pipeline reads or rewrites.
//
// The function index space (spec: "a single flat index space whose low
// range is imports ... and whose high range is defs") is not stored as a
// separate slice: it is derived on demand as ImportSection entries of
// Type == ExternTypeFunc, in order, followed by CodeSection entries, in
// order. FunctionSection holds the type index for each CodeSection entry,
// at the same position.
type Module struct {
	TypeSection     []*FunctionType
	ImportSection   []*Import
	FunctionSection []Index
	TableSection    []*TableType
	MemorySection   []*MemoryType
	GlobalSection   []*Global
	ExportSection   []*Export
	StartSection    *Index
	ElementSection  []*ElementSegment
	CodeSection     []*Code
	DataSection     []*DataSegment
}

// ImportedFunctionCount returns the number of ImportSection entries that are
// function imports. This is the pivot spec.md §4.3 calls "canonically
// len(imports)": the boundary between the imported-function range and the
// defined-function range of the flat function index space.
func (m *Module) ImportedFunctionCount() Index {
	var n Index
	for _, imp := range m.ImportSection {
		if imp.Type == ExternTypeFunc {
			n++
		}
	}
	return n
}

// FunctionIndexSpaceLen returns the total size of the function index space:
// imported functions plus defined functions.
func (m *Module) FunctionIndexSpaceLen() Index {
	return m.ImportedFunctionCount() + Index(len(m.CodeSection))
}

// TypeOfFunction returns the FunctionType of the function at the given index
// in the flat function index space, or nil if idx is out of range.
func (m *Module) TypeOfFunction(idx Index) *FunctionType {
	importedCount := m.ImportedFunctionCount()
	if idx < importedCount {
		var seen Index
		for _, imp := range m.ImportSection {
			if imp.Type != ExternTypeFunc {
				continue
			}
			if seen == idx {
				if int(imp.DescFunc) >= len(m.TypeSection) {
					return nil
				}
				return m.TypeSection[imp.DescFunc]
			}
			seen++
		}
		return nil
	}
	defIdx := idx - importedCount
	if int(defIdx) >= len(m.FunctionSection) {
		return nil
	}
	typeIdx := m.FunctionSection[defIdx]
	if int(typeIdx) >= len(m.TypeSection) {
		return nil
	}
	return m.TypeSection[typeIdx]
}
