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
	"sort"
)

// Module file layout: four magic bytes, a module-type byte, the symbol table
// (NUL-terminated name followed by a u64 little-endian code offset, repeated),
// a single separator byte, then the code segment running to EOF.
const (
	// Magic is the four-byte marker opening every module file.
	Magic = "VIUA"

	// TypeLinkable marks a module that only contributes symbols.
	TypeLinkable byte = 'L'

	// TypeExecutable marks a module with an entry function.
	TypeExecutable byte = 'E'

	// SegmentSeparator terminates the symbol table.
	SegmentSeparator byte = 0x00

	// EntrySymbol is the function an executable module starts in.
	EntrySymbol = "__entry"
)

// Module is the in-memory form of a bytecode module: a symbol table mapping
// callable and block names to offsets into the code segment.
type Module struct {
	Executable bool
	Symbols    map[string]uint64
	Code       []byte
}

// Encode serialises the module into the on-disk layout.  Symbols are written
// in sorted order so the encoding is deterministic.
func (m *Module) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	if m.Executable {
		buf.WriteByte(TypeExecutable)
	} else {
		buf.WriteByte(TypeLinkable)
	}

	names := make([]string, 0, len(m.Symbols))
	for name := range m.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	var off [8]byte
	for _, name := range names {
		buf.WriteString(name)
		buf.WriteByte(0)
		binary.LittleEndian.PutUint64(off[:], m.Symbols[name])
		buf.Write(off[:])
	}
	buf.WriteByte(SegmentSeparator)
	buf.Write(m.Code)
	return buf.Bytes()
}
