// Copyright 2024 The go-viua Authors
// This file is part of the go-viua library.
//
// The go-viua library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-viua library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-viua library. If not, see <http://www.gnu.org/licenses/>.

package kernel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/viuavm/go-viua/bytecode"
)

// ErrTruncatedStream is returned when an operand runs past the end of the
// code space, and when a register operand carries an unknown access mode or
// register set.
var ErrTruncatedStream = errors.New("kernel: truncated instruction stream")

// decoder reads typed operands from the instruction stream.  Every reader
// advances the cursor by exactly the bytes consumed.
type decoder struct {
	code []byte
	pos  uint64
}

func newDecoder(code []byte, pos uint64) *decoder {
	return &decoder{code: code, pos: pos}
}

func (d *decoder) remaining(n uint64) error {
	if d.pos+n > uint64(len(d.code)) {
		return fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncatedStream, n, d.pos)
	}
	return nil
}

func (d *decoder) u8() (uint8, error) {
	if err := d.remaining(1); err != nil {
		return 0, err
	}
	v := d.code[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) u16() (uint16, error) {
	if err := d.remaining(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(d.code[d.pos:])
	d.pos += 2
	return v, nil
}

func (d *decoder) i32() (int32, error) {
	if err := d.remaining(4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(d.code[d.pos:]))
	d.pos += 4
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	if err := d.remaining(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.code[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) f64() (float64, error) {
	bits, err := d.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(bits), nil
}

// str reads a NUL-terminated string.
func (d *decoder) str() (string, error) {
	for end := d.pos; end < uint64(len(d.code)); end++ {
		if d.code[end] == 0 {
			s := string(d.code[d.pos:end])
			d.pos = end + 1
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unterminated string at offset %d", ErrTruncatedStream, d.pos)
}

// operand reads a tagged register operand.
func (d *decoder) operand() (bytecode.Operand, error) {
	access, err := d.u8()
	if err != nil {
		return bytecode.Operand{}, err
	}
	set, err := d.u8()
	if err != nil {
		return bytecode.Operand{}, err
	}
	index, err := d.u16()
	if err != nil {
		return bytecode.Operand{}, err
	}
	if bytecode.Access(access) > bytecode.AccessVoid {
		return bytecode.Operand{}, fmt.Errorf("%w: unknown access mode %d at offset %d", ErrTruncatedStream, access, d.pos-4)
	}
	if bytecode.RegisterSetID(set) > bytecode.Static {
		return bytecode.Operand{}, fmt.Errorf("%w: unknown register set %d at offset %d", ErrTruncatedStream, set, d.pos-3)
	}
	return bytecode.Operand{
		Access: bytecode.Access(access),
		Set:    bytecode.RegisterSetID(set),
		Index:  index,
	}, nil
}
