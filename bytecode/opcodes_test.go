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
	"encoding/binary"
	"testing"
)

func TestOpcodeString(t *testing.T) {
	cases := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "nop"},
		{OpIzero, "izero"},
		{OpInteger, "integer"},
		{OpAdd, "add"},
		{OpMove, "move"},
		{OpVpush, "vpush"},
		{OpStructKeys, "structkeys"},
		{OpFrame, "frame"},
		{OpAllocateRegisters, "allocate_registers"},
		{OpTailcall, "tailcall"},
		{OpTry, "try"},
		{OpDraw, "draw"},
		{OpProcess, "process"},
		{OpReceive, "receive"},
		{OpImport, "import"},
		{OpIOWait, "io_wait"},
	}
	for _, tc := range cases {
		if got := tc.op.String(); got != tc.want {
			t.Errorf("Opcode(%d).String() = %q; want %q", tc.op, got, tc.want)
		}
	}
}

func TestOpcodeUnknown(t *testing.T) {
	if got := Opcode(0xFF).String(); got != "UNKNOWN" {
		t.Errorf("unknown opcode String = %q; want UNKNOWN", got)
	}
	if Opcode(0xFF).Valid() {
		t.Error("Opcode(0xFF).Valid() = true; want false")
	}
}

func TestBuilderResolvesLabels(t *testing.T) {
	p := NewProgram()
	p.Function("f/0").
		Op(OpJump).Target("end").
		Label("end").
		Op(OpReturn)

	code, symbols, err := p.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if symbols["f/0"] != 0 {
		t.Errorf("entry offset = %d; want 0", symbols["f/0"])
	}
	// Layout: [OpJump][8-byte target][OpReturn]; the label lands after the
	// placeholder.
	target := binary.LittleEndian.Uint64(code[1:])
	if target != 9 {
		t.Errorf("jump target = %d; want 9", target)
	}
}

func TestBuilderUndefinedLabel(t *testing.T) {
	p := NewProgram()
	p.Function("f/0").Op(OpJump).Target("nowhere")
	if _, _, err := p.Assemble(); err == nil {
		t.Error("Assemble succeeded with an undefined label")
	}
}

func TestProgramRejectsDuplicateSymbols(t *testing.T) {
	p := NewProgram()
	p.Function("f/0").Op(OpReturn)
	p.Function("f/0").Op(OpReturn)
	if _, _, err := p.Assemble(); err == nil {
		t.Error("Assemble accepted duplicate symbol")
	}
}

func TestModuleEncodeLayout(t *testing.T) {
	mod := &Module{
		Executable: true,
		Symbols:    map[string]uint64{EntrySymbol: 0},
		Code:       []byte{byte(OpReturn)},
	}
	data := mod.Encode()

	if string(data[:4]) != Magic {
		t.Fatalf("magic = %q; want %q", data[:4], Magic)
	}
	if data[4] != TypeExecutable {
		t.Errorf("module type = %c; want %c", data[4], TypeExecutable)
	}
	// symbol name, NUL, 8-byte offset, separator, code
	wantLen := 5 + len(EntrySymbol) + 1 + 8 + 1 + 1
	if len(data) != wantLen {
		t.Errorf("encoded length = %d; want %d", len(data), wantLen)
	}
}
