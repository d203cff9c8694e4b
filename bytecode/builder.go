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

package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Operand addresses a register: how it is accessed, which register set, and
// the slot index.
type Operand struct {
	Access Access
	Set    RegisterSetID
	Index  uint16
}

// R addresses local register i directly.
func R(i uint16) Operand { return Operand{Access: AccessDirect, Set: Local, Index: i} }

// Arg addresses argument register i directly.
func Arg(i uint16) Operand { return Operand{Access: AccessDirect, Set: Arguments, Index: i} }

// Stat addresses static register i directly.
func Stat(i uint16) Operand { return Operand{Access: AccessDirect, Set: Static, Index: i} }

// Deref marks the operand as a pointer dereference.
func Deref(o Operand) Operand { o.Access = AccessPointer; return o }

// Void is the absent operand.
func Void() Operand { return Operand{Access: AccessVoid} }

// fixup is a jump-target placeholder awaiting a label offset.
type fixup struct {
	pos   int
	label string
}

// FunctionBuilder assembles the body of one function or block.  Jump targets
// are labels resolved to function-relative offsets when the program is
// assembled.
type FunctionBuilder struct {
	name   string
	buf    bytes.Buffer
	labels map[string]uint64
	fixups []fixup
}

// Op appends an opcode byte.
func (b *FunctionBuilder) Op(op Opcode) *FunctionBuilder {
	b.buf.WriteByte(byte(op))
	return b
}

// Reg appends a register operand.
func (b *FunctionBuilder) Reg(o Operand) *FunctionBuilder {
	b.buf.WriteByte(byte(o.Access))
	b.buf.WriteByte(byte(o.Set))
	var idx [2]byte
	binary.LittleEndian.PutUint16(idx[:], o.Index)
	b.buf.Write(idx[:])
	return b
}

// U8 appends a byte immediate.
func (b *FunctionBuilder) U8(v uint8) *FunctionBuilder {
	b.buf.WriteByte(v)
	return b
}

// U16 appends a 16-bit immediate.
func (b *FunctionBuilder) U16(v uint16) *FunctionBuilder {
	var w [2]byte
	binary.LittleEndian.PutUint16(w[:], v)
	b.buf.Write(w[:])
	return b
}

// I32 appends a signed 32-bit immediate.
func (b *FunctionBuilder) I32(v int32) *FunctionBuilder {
	var w [4]byte
	binary.LittleEndian.PutUint32(w[:], uint32(v))
	b.buf.Write(w[:])
	return b
}

// U64 appends a 64-bit immediate.
func (b *FunctionBuilder) U64(v uint64) *FunctionBuilder {
	var w [8]byte
	binary.LittleEndian.PutUint64(w[:], v)
	b.buf.Write(w[:])
	return b
}

// F64 appends a float immediate as IEEE-754 bits.
func (b *FunctionBuilder) F64(v float64) *FunctionBuilder {
	return b.U64(math.Float64bits(v))
}

// Str appends a NUL-terminated string immediate.
func (b *FunctionBuilder) Str(s string) *FunctionBuilder {
	b.buf.WriteString(s)
	b.buf.WriteByte(0)
	return b
}

// Label marks the current offset with a name usable as a jump target.
func (b *FunctionBuilder) Label(name string) *FunctionBuilder {
	b.labels[name] = uint64(b.buf.Len())
	return b
}

// Target appends a u64 placeholder resolved to the named label's offset at
// assembly time.
func (b *FunctionBuilder) Target(label string) *FunctionBuilder {
	b.fixups = append(b.fixups, fixup{pos: b.buf.Len(), label: label})
	return b.U64(0)
}

// resolve patches all recorded fixups in place.
func (b *FunctionBuilder) resolve() ([]byte, error) {
	code := b.buf.Bytes()
	for _, f := range b.fixups {
		off, ok := b.labels[f.label]
		if !ok {
			return nil, fmt.Errorf("bytecode: undefined label %q in %q", f.label, b.name)
		}
		binary.LittleEndian.PutUint64(code[f.pos:], off)
	}
	return code, nil
}

// Program assembles a set of named functions and blocks into one code
// segment with a symbol table.
type Program struct {
	order []*FunctionBuilder
}

// NewProgram creates an empty program.
func NewProgram() *Program { return &Program{} }

// Function starts assembling a callable with the given "name/arity" name.
func (p *Program) Function(name string) *FunctionBuilder {
	b := &FunctionBuilder{name: name, labels: make(map[string]uint64)}
	p.order = append(p.order, b)
	return b
}

// Block starts assembling a named block; blocks share the symbol namespace
// with functions.
func (p *Program) Block(name string) *FunctionBuilder {
	return p.Function(name)
}

// Assemble concatenates all bodies and returns the code segment plus the
// symbol table of function and block entry offsets.
func (p *Program) Assemble() ([]byte, map[string]uint64, error) {
	var code []byte
	symbols := make(map[string]uint64, len(p.order))
	for _, b := range p.order {
		body, err := b.resolve()
		if err != nil {
			return nil, nil, err
		}
		if _, dup := symbols[b.name]; dup {
			return nil, nil, fmt.Errorf("bytecode: duplicate symbol %q", b.name)
		}
		symbols[b.name] = uint64(len(code))
		code = append(code, body...)
	}
	return code, symbols, nil
}

// Module assembles the program into a Module value.
func (p *Program) Module(executable bool) (*Module, error) {
	code, symbols, err := p.Assemble()
	if err != nil {
		return nil, err
	}
	return &Module{Executable: executable, Symbols: symbols, Code: code}, nil
}
