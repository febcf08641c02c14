package binary

import (
	"bytes"
	"fmt"

	"github.com/wazerogas/gasmeter/internal/leb128"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

var magic = [4]byte{0x00, 0x61, 0x73, 0x6d}
var version = [4]byte{0x01, 0x00, 0x00, 0x00}

// EncodeModule serializes m to the WebAssembly binary format.
func EncodeModule(m *wasm.Module) []byte {
	var out bytes.Buffer
	out.Write(magic[:])
	out.Write(version[:])

	writeSection(&out, wasm.SectionIDType, encodeTypeSection(m))
	writeSection(&out, wasm.SectionIDImport, encodeImportSection(m))
	writeSection(&out, wasm.SectionIDFunction, encodeFunctionSection(m))
	writeSection(&out, wasm.SectionIDTable, encodeTableSection(m))
	writeSection(&out, wasm.SectionIDMemory, encodeMemorySection(m))
	writeSection(&out, wasm.SectionIDGlobal, encodeGlobalSection(m))
	writeSection(&out, wasm.SectionIDExport, encodeExportSection(m))
	if m.StartSection != nil {
		writeSection(&out, wasm.SectionIDStart, leb128.EncodeUint32(*m.StartSection))
	}
	writeSection(&out, wasm.SectionIDElement, encodeElementSection(m))
	writeSection(&out, wasm.SectionIDCode, encodeCodeSection(m))
	writeSection(&out, wasm.SectionIDData, encodeDataSection(m))

	return out.Bytes()
}

func writeSection(out *bytes.Buffer, id wasm.SectionID, body []byte) {
	if len(body) == 0 {
		return
	}
	out.WriteByte(id)
	out.Write(leb128.EncodeUint32(uint32(len(body))))
	out.Write(body)
}

func vecCount(n int) []byte { return leb128.EncodeUint32(uint32(n)) }

func encodeTypeSection(m *wasm.Module) []byte {
	if len(m.TypeSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.TypeSection)))
	for _, ft := range m.TypeSection {
		b.WriteByte(0x60)
		b.Write(vecCount(len(ft.Params)))
		b.Write(ft.Params)
		b.Write(vecCount(len(ft.Results)))
		b.Write(ft.Results)
	}
	return b.Bytes()
}

func encodeLimits(l *wasm.LimitsType) []byte {
	var b bytes.Buffer
	if l.Max != nil {
		b.WriteByte(0x01)
		b.Write(leb128.EncodeUint32(l.Min))
		b.Write(leb128.EncodeUint32(*l.Max))
	} else {
		b.WriteByte(0x00)
		b.Write(leb128.EncodeUint32(l.Min))
	}
	return b.Bytes()
}

func encodeImportSection(m *wasm.Module) []byte {
	if len(m.ImportSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.ImportSection)))
	for _, imp := range m.ImportSection {
		writeName(&b, imp.Module)
		writeName(&b, imp.Name)
		b.WriteByte(imp.Type)
		switch imp.Type {
		case wasm.ExternTypeFunc:
			b.Write(leb128.EncodeUint32(imp.DescFunc))
		case wasm.ExternTypeTable:
			b.WriteByte(imp.DescTable.ElemType)
			b.Write(encodeLimits(imp.DescTable.Limit))
		case wasm.ExternTypeMemory:
			b.Write(encodeLimits(imp.DescMem))
		case wasm.ExternTypeGlobal:
			b.WriteByte(imp.DescGlobal.ValType)
			if imp.DescGlobal.Mutable {
				b.WriteByte(0x01)
			} else {
				b.WriteByte(0x00)
			}
		}
	}
	return b.Bytes()
}

func encodeFunctionSection(m *wasm.Module) []byte {
	if len(m.FunctionSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.FunctionSection)))
	for _, idx := range m.FunctionSection {
		b.Write(leb128.EncodeUint32(idx))
	}
	return b.Bytes()
}

func encodeTableSection(m *wasm.Module) []byte {
	if len(m.TableSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.TableSection)))
	for _, t := range m.TableSection {
		b.WriteByte(t.ElemType)
		b.Write(encodeLimits(t.Limit))
	}
	return b.Bytes()
}

func encodeMemorySection(m *wasm.Module) []byte {
	if len(m.MemorySection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.MemorySection)))
	for _, mem := range m.MemorySection {
		b.Write(encodeLimits(mem))
	}
	return b.Bytes()
}

func encodeConstExpr(ce *wasm.ConstantExpression) []byte {
	var b bytes.Buffer
	b.WriteByte(byte(ce.Opcode))
	b.Write(ce.Data)
	b.WriteByte(byte(wasm.OpcodeEnd))
	return b.Bytes()
}

func encodeGlobalSection(m *wasm.Module) []byte {
	if len(m.GlobalSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.GlobalSection)))
	for _, g := range m.GlobalSection {
		b.WriteByte(g.Type.ValType)
		if g.Type.Mutable {
			b.WriteByte(0x01)
		} else {
			b.WriteByte(0x00)
		}
		b.Write(encodeConstExpr(g.Init))
	}
	return b.Bytes()
}

func encodeExportSection(m *wasm.Module) []byte {
	if len(m.ExportSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.ExportSection)))
	for _, e := range m.ExportSection {
		writeName(&b, e.Name)
		b.WriteByte(e.Type)
		b.Write(leb128.EncodeUint32(e.Index))
	}
	return b.Bytes()
}

func encodeElementSection(m *wasm.Module) []byte {
	if len(m.ElementSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.ElementSection)))
	for _, el := range m.ElementSection {
		b.Write(leb128.EncodeUint32(el.TableIndex))
		b.Write(encodeConstExpr(el.OffsetExpr))
		b.Write(vecCount(len(el.Init)))
		for _, idx := range el.Init {
			b.Write(leb128.EncodeUint32(idx))
		}
	}
	return b.Bytes()
}

func encodeCodeSection(m *wasm.Module) []byte {
	if len(m.CodeSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.CodeSection)))
	for _, c := range m.CodeSection {
		body := encodeFunctionBody(c)
		b.Write(leb128.EncodeUint32(uint32(len(body))))
		b.Write(body)
	}
	return b.Bytes()
}

func encodeFunctionBody(c *wasm.Code) []byte {
	var b bytes.Buffer
	runs := groupLocals(c.LocalTypes)
	b.Write(vecCount(len(runs)))
	for _, r := range runs {
		b.Write(leb128.EncodeUint32(r.count))
		b.WriteByte(r.typ)
	}
	b.Write(c.Body)
	return b.Bytes()
}

type localRun struct {
	count uint32
	typ   wasm.ValueType
}

func groupLocals(types []wasm.ValueType) []localRun {
	var runs []localRun
	for _, t := range types {
		if len(runs) > 0 && runs[len(runs)-1].typ == t {
			runs[len(runs)-1].count++
			continue
		}
		runs = append(runs, localRun{count: 1, typ: t})
	}
	return runs
}

func encodeDataSection(m *wasm.Module) []byte {
	if len(m.DataSection) == 0 {
		return nil
	}
	var b bytes.Buffer
	b.Write(vecCount(len(m.DataSection)))
	for _, d := range m.DataSection {
		b.Write(leb128.EncodeUint32(d.MemoryIndex))
		b.Write(encodeConstExpr(d.OffsetExpression))
		b.Write(vecCount(len(d.Init)))
		b.Write(d.Init)
	}
	return b.Bytes()
}

func writeName(b *bytes.Buffer, s string) {
	b.Write(vecCount(len(s)))
	b.WriteString(s)
}

// DecodeModule parses the WebAssembly binary format into a Module. Only the
// sections the gas-metering pipeline reads or rewrites are decoded in full;
// custom sections are skipped.
func DecodeModule(b []byte) (*wasm.Module, error) {
	r := newSectionReader(b)
	if err := r.expectHeader(); err != nil {
		return nil, err
	}

	m := &wasm.Module{}
	for r.more() {
		id, body, err := r.nextSection()
		if err != nil {
			return nil, err
		}
		switch id {
		case wasm.SectionIDType:
			if m.TypeSection, err = decodeTypeSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDImport:
			if m.ImportSection, err = decodeImportSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDFunction:
			if m.FunctionSection, err = decodeFunctionSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDTable:
			if m.TableSection, err = decodeTableSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDMemory:
			if m.MemorySection, err = decodeMemorySection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDGlobal:
			if m.GlobalSection, err = decodeGlobalSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDExport:
			if m.ExportSection, err = decodeExportSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDStart:
			idx, _, err := leb128.LoadUint32(body)
			if err != nil {
				return nil, fmt.Errorf("decode start section: %w", err)
			}
			m.StartSection = &idx
		case wasm.SectionIDElement:
			if m.ElementSection, err = decodeElementSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDCode:
			if m.CodeSection, err = decodeCodeSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDData:
			if m.DataSection, err = decodeDataSection(body); err != nil {
				return nil, err
			}
		case wasm.SectionIDCustom:
			// Carried nowhere: custom sections are outside pipeline scope.
		default:
			return nil, fmt.Errorf("decode module: unknown section id 0x%x", id)
		}
	}
	return m, nil
}
