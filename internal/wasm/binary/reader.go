package binary

import (
	"bytes"
	"fmt"

	"github.com/wazerogas/gasmeter/internal/leb128"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

type sectionReader struct {
	r *bytes.Reader
}

func newSectionReader(b []byte) *sectionReader {
	return &sectionReader{r: bytes.NewReader(b)}
}

func (sr *sectionReader) expectHeader() error {
	var hdr [8]byte
	n, err := sr.r.Read(hdr[:])
	if err != nil || n != 8 {
		return fmt.Errorf("decode module header: %w", err)
	}
	if !bytes.Equal(hdr[0:4], magic[:]) {
		return fmt.Errorf("decode module header: bad magic %x", hdr[0:4])
	}
	if !bytes.Equal(hdr[4:8], version[:]) {
		return fmt.Errorf("decode module header: unsupported version %x", hdr[4:8])
	}
	return nil
}

func (sr *sectionReader) more() bool {
	return sr.r.Len() > 0
}

func (sr *sectionReader) nextSection() (wasm.SectionID, []byte, error) {
	id, err := sr.r.ReadByte()
	if err != nil {
		return 0, nil, fmt.Errorf("decode section id: %w", err)
	}
	size, _, err := leb128.DecodeUint32(sr.r)
	if err != nil {
		return 0, nil, fmt.Errorf("decode section size: %w", err)
	}
	body := make([]byte, size)
	if _, err := sr.r.Read(body); err != nil {
		return 0, nil, fmt.Errorf("decode section body (id 0x%x): %w", id, err)
	}
	return id, body, nil
}

// byteReader is a minimal cursor over a []byte exposing the primitives the
// section decoders need, tracking position explicitly so callers can report
// "bytes remaining" without re-slicing.
type byteReader struct {
	b   []byte
	pos int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) u32() (uint32, error) {
	v, n, err := leb128.LoadUint32(r.b[r.pos:])
	if err != nil {
		return 0, err
	}
	r.pos += int(n)
	return v, nil
}

func (r *byteReader) byte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, fmt.Errorf("unexpected end of input")
	}
	b := r.b[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, fmt.Errorf("unexpected end of input")
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) name() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	bs, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

func (r *byteReader) limits() (*wasm.LimitsType, error) {
	flag, err := r.byte()
	if err != nil {
		return nil, err
	}
	min, err := r.u32()
	if err != nil {
		return nil, err
	}
	l := &wasm.LimitsType{Min: min}
	if flag == 0x01 {
		max, err := r.u32()
		if err != nil {
			return nil, err
		}
		l.Max = &max
	}
	return l, nil
}

func (r *byteReader) constExpr() (*wasm.ConstantExpression, error) {
	op, err := r.byte()
	if err != nil {
		return nil, err
	}
	var data []byte
	switch wasm.Opcode(op) {
	case wasm.OpcodeI32Const:
		start := r.pos
		_, n, err := leb128.LoadInt32(r.b[r.pos:])
		if err != nil {
			return nil, err
		}
		r.pos += int(n)
		data = r.b[start:r.pos]
	case wasm.OpcodeI64Const:
		start := r.pos
		_, n, err := leb128.LoadUint64(r.b[r.pos:])
		if err != nil {
			return nil, err
		}
		r.pos += int(n)
		data = r.b[start:r.pos]
	case wasm.OpcodeGlobalGet:
		start := r.pos
		if _, err := r.u32(); err != nil {
			return nil, err
		}
		data = r.b[start:r.pos]
	case wasm.OpcodeRefNull:
		start := r.pos
		if _, err := r.byte(); err != nil {
			return nil, err
		}
		data = r.b[start:r.pos]
	case wasm.OpcodeRefFunc:
		start := r.pos
		if _, err := r.u32(); err != nil {
			return nil, err
		}
		data = r.b[start:r.pos]
	default:
		return nil, fmt.Errorf("decode constant expression: unsupported opcode 0x%x", op)
	}
	end, err := r.byte()
	if err != nil {
		return nil, err
	}
	if wasm.Opcode(end) != wasm.OpcodeEnd {
		return nil, fmt.Errorf("decode constant expression: missing end marker")
	}
	return &wasm.ConstantExpression{Opcode: wasm.Opcode(op), Data: data}, nil
}
