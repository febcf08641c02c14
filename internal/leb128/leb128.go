// Package leb128 implements the LEB128 variable-length integer encoding
// WebAssembly uses for every integer immediate in the binary format.
package leb128

import (
	"fmt"
	"io"
)

const (
	maxVarintLen32 = 5
	maxVarintLen64 = 10
)

// EncodeUint32 encodes v as unsigned LEB128.
func EncodeUint32(v uint32) []byte {
	return EncodeUint64(uint64(v))
}

// EncodeUint64 encodes v as unsigned LEB128.
func EncodeUint64(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// EncodeInt32 encodes v as signed LEB128.
func EncodeInt32(v int32) []byte {
	return EncodeInt64(int64(v))
}

// EncodeInt64 encodes v as signed LEB128.
func EncodeInt64(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		done := (v == 0 && !signBitSet) || (v == -1 && signBitSet)
		if !done {
			b |= 0x80
		}
		out = append(out, b)
		if done {
			return out
		}
	}
}

// LoadUint32 decodes an unsigned LEB128 value from the front of b, returning
// the value and the number of bytes consumed.
func LoadUint32(b []byte) (uint32, uint64, error) {
	v, n, err := LoadUint64(b)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff {
		return 0, 0, fmt.Errorf("invalid uint32: overflow")
	}
	return uint32(v), n, nil
}

// LoadUint64 decodes an unsigned LEB128 value from the front of b.
func LoadUint64(b []byte) (uint64, uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxVarintLen64; i++ {
		if i >= len(b) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		c := b[i]
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			if shift >= 64 {
				return 0, 0, fmt.Errorf("invalid uint64: too many continuation bytes")
			}
			return result, uint64(i + 1), nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("invalid uint64: too many continuation bytes")
}

// LoadInt32 decodes a signed LEB128 value from the front of b.
func LoadInt32(b []byte) (int32, uint64, error) {
	v, n, err := LoadInt64(b)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff || v < -0x80000000 {
		return 0, 0, fmt.Errorf("invalid int32: overflow")
	}
	return int32(v), n, nil
}

// LoadInt64 decodes a signed LEB128 value from the front of b.
func LoadInt64(b []byte) (int64, uint64, error) {
	var result int64
	var shift uint
	var c byte
	var i int
	for i = 0; i < maxVarintLen64; i++ {
		if i >= len(b) {
			return 0, 0, io.ErrUnexpectedEOF
		}
		c = b[i]
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			break
		}
	}
	if i == maxVarintLen64 && c&0x80 != 0 {
		return 0, 0, fmt.Errorf("invalid int64: too many continuation bytes")
	}
	if shift < 64 && c&0x40 != 0 {
		result |= -1 << shift
	}
	return result, uint64(i + 1), nil
}

// DecodeUint32 reads an unsigned LEB128 value from r, returning the value
// and the number of bytes consumed.
func DecodeUint32(r io.ByteReader) (uint32, uint64, error) {
	v, n, err := DecodeUint64(r)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff {
		return 0, 0, fmt.Errorf("invalid uint32: overflow")
	}
	return uint32(v), n, nil
}

// DecodeUint64 reads an unsigned LEB128 value from r.
func DecodeUint64(r io.ByteReader) (uint64, uint64, error) {
	var result uint64
	var shift uint
	var n uint64
	for {
		c, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		n++
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, n, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, 0, fmt.Errorf("invalid uint64: too many continuation bytes")
		}
	}
}

// DecodeInt32 reads a signed LEB128 value from r.
func DecodeInt32(r io.ByteReader) (int32, uint64, error) {
	v, n, err := DecodeInt64(r)
	if err != nil {
		return 0, 0, err
	}
	if v > 0xffffffff || v < -0x80000000 {
		return 0, 0, fmt.Errorf("invalid int32: overflow")
	}
	return int32(v), n, nil
}

// DecodeInt64 reads a signed LEB128 value from r.
func DecodeInt64(r io.ByteReader) (int64, uint64, error) {
	var result int64
	var shift uint
	var n uint64
	var c byte
	for {
		var err error
		c, err = r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		n++
		result |= int64(c&0x7f) << shift
		shift += 7
		if c&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, 0, fmt.Errorf("invalid int64: too many continuation bytes")
		}
	}
	if shift < 64 && c&0x40 != 0 {
		result |= -1 << shift
	}
	return result, n, nil
}
