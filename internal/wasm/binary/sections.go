package binary

import (
	"fmt"

	"github.com/wazerogas/gasmeter/internal/wasm"
)

func decodeTypeSection(body []byte) ([]*wasm.FunctionType, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode type section: %w", err)
	}
	out := make([]*wasm.FunctionType, 0, n)
	for i := uint32(0); i < n; i++ {
		form, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("decode type %d: %w", i, err)
		}
		if form != 0x60 {
			return nil, fmt.Errorf("decode type %d: unsupported form 0x%x", i, form)
		}
		pc, err := r.u32()
		if err != nil {
			return nil, err
		}
		params, err := r.bytes(int(pc))
		if err != nil {
			return nil, err
		}
		rc, err := r.u32()
		if err != nil {
			return nil, err
		}
		results, err := r.bytes(int(rc))
		if err != nil {
			return nil, err
		}
		out = append(out, &wasm.FunctionType{
			Params:  append([]wasm.ValueType{}, params...),
			Results: append([]wasm.ValueType{}, results...),
		})
	}
	return out, nil
}

func decodeImportSection(body []byte) ([]*wasm.Import, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode import section: %w", err)
	}
	out := make([]*wasm.Import, 0, n)
	for i := uint32(0); i < n; i++ {
		mod, err := r.name()
		if err != nil {
			return nil, fmt.Errorf("decode import %d: %w", i, err)
		}
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		imp := &wasm.Import{Type: kind, Module: mod, Name: name}
		switch kind {
		case wasm.ExternTypeFunc:
			idx, err := r.u32()
			if err != nil {
				return nil, err
			}
			imp.DescFunc = idx
		case wasm.ExternTypeTable:
			elem, err := r.byte()
			if err != nil {
				return nil, err
			}
			lim, err := r.limits()
			if err != nil {
				return nil, err
			}
			imp.DescTable = &wasm.TableType{ElemType: elem, Limit: lim}
		case wasm.ExternTypeMemory:
			lim, err := r.limits()
			if err != nil {
				return nil, err
			}
			imp.DescMem = lim
		case wasm.ExternTypeGlobal:
			vt, err := r.byte()
			if err != nil {
				return nil, err
			}
			mut, err := r.byte()
			if err != nil {
				return nil, err
			}
			imp.DescGlobal = &wasm.GlobalType{ValType: vt, Mutable: mut == 0x01}
		default:
			return nil, fmt.Errorf("decode import %d: unknown kind 0x%x", i, kind)
		}
		out = append(out, imp)
	}
	return out, nil
}

func decodeFunctionSection(body []byte) ([]wasm.Index, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode function section: %w", err)
	}
	out := make([]wasm.Index, 0, n)
	for i := uint32(0); i < n; i++ {
		idx, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("decode function section entry %d: %w", i, err)
		}
		out = append(out, idx)
	}
	return out, nil
}

func decodeTableSection(body []byte) ([]*wasm.TableType, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode table section: %w", err)
	}
	out := make([]*wasm.TableType, 0, n)
	for i := uint32(0); i < n; i++ {
		elem, err := r.byte()
		if err != nil {
			return nil, err
		}
		lim, err := r.limits()
		if err != nil {
			return nil, err
		}
		out = append(out, &wasm.TableType{ElemType: elem, Limit: lim})
	}
	return out, nil
}

func decodeMemorySection(body []byte) ([]*wasm.MemoryType, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode memory section: %w", err)
	}
	out := make([]*wasm.MemoryType, 0, n)
	for i := uint32(0); i < n; i++ {
		lim, err := r.limits()
		if err != nil {
			return nil, err
		}
		out = append(out, lim)
	}
	return out, nil
}

func decodeGlobalSection(body []byte) ([]*wasm.Global, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode global section: %w", err)
	}
	out := make([]*wasm.Global, 0, n)
	for i := uint32(0); i < n; i++ {
		vt, err := r.byte()
		if err != nil {
			return nil, err
		}
		mut, err := r.byte()
		if err != nil {
			return nil, err
		}
		init, err := r.constExpr()
		if err != nil {
			return nil, fmt.Errorf("decode global %d init: %w", i, err)
		}
		out = append(out, &wasm.Global{Type: &wasm.GlobalType{ValType: vt, Mutable: mut == 0x01}, Init: init})
	}
	return out, nil
}

func decodeExportSection(body []byte) ([]*wasm.Export, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode export section: %w", err)
	}
	out := make([]*wasm.Export, 0, n)
	for i := uint32(0); i < n; i++ {
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		kind, err := r.byte()
		if err != nil {
			return nil, err
		}
		idx, err := r.u32()
		if err != nil {
			return nil, err
		}
		out = append(out, &wasm.Export{Type: kind, Name: name, Index: idx})
	}
	return out, nil
}

func decodeElementSection(body []byte) ([]*wasm.ElementSegment, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode element section: %w", err)
	}
	out := make([]*wasm.ElementSegment, 0, n)
	for i := uint32(0); i < n; i++ {
		tableIdx, err := r.u32()
		if err != nil {
			return nil, err
		}
		offset, err := r.constExpr()
		if err != nil {
			return nil, fmt.Errorf("decode element %d offset: %w", i, err)
		}
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		init := make([]wasm.Index, 0, count)
		for j := uint32(0); j < count; j++ {
			idx, err := r.u32()
			if err != nil {
				return nil, err
			}
			init = append(init, idx)
		}
		out = append(out, &wasm.ElementSegment{TableIndex: tableIdx, OffsetExpr: offset, Init: init})
	}
	return out, nil
}

func decodeCodeSection(body []byte) ([]*wasm.Code, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode code section: %w", err)
	}
	out := make([]*wasm.Code, 0, n)
	for i := uint32(0); i < n; i++ {
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		raw, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		code, err := decodeFunctionBody(raw)
		if err != nil {
			return nil, fmt.Errorf("decode code entry %d: %w", i, err)
		}
		out = append(out, code)
	}
	return out, nil
}

func decodeFunctionBody(raw []byte) (*wasm.Code, error) {
	r := newByteReader(raw)
	runCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	var locals []wasm.ValueType
	for i := uint32(0); i < runCount; i++ {
		count, err := r.u32()
		if err != nil {
			return nil, err
		}
		typ, err := r.byte()
		if err != nil {
			return nil, err
		}
		for j := uint32(0); j < count; j++ {
			locals = append(locals, typ)
		}
	}
	return &wasm.Code{LocalTypes: locals, Body: raw[r.pos:]}, nil
}

func decodeDataSection(body []byte) ([]*wasm.DataSegment, error) {
	r := newByteReader(body)
	n, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("decode data section: %w", err)
	}
	out := make([]*wasm.DataSegment, 0, n)
	for i := uint32(0); i < n; i++ {
		memIdx, err := r.u32()
		if err != nil {
			return nil, err
		}
		offset, err := r.constExpr()
		if err != nil {
			return nil, fmt.Errorf("decode data %d offset: %w", i, err)
		}
		size, err := r.u32()
		if err != nil {
			return nil, err
		}
		init, err := r.bytes(int(size))
		if err != nil {
			return nil, err
		}
		out = append(out, &wasm.DataSegment{MemoryIndex: memIdx, OffsetExpression: offset, Init: append([]byte{}, init...)})
	}
	return out, nil
}
