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

package loader

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/viuavm/go-viua/bytecode"
)

func testModule(t *testing.T, executable bool) *bytecode.Module {
	t.Helper()
	p := bytecode.NewProgram()
	name := "lib::f/0"
	if executable {
		name = bytecode.EntrySymbol
	}
	p.Function(name).
		Op(bytecode.OpAllocateRegisters).U16(1).
		Op(bytecode.OpReturn)
	mod, err := p.Module(executable)
	if err != nil {
		t.Fatalf("assembling module: %v", err)
	}
	return mod
}

func writeModule(t *testing.T, dir, name string, mod *bytecode.Module) string {
	t.Helper()
	path := filepath.Join(dir, name+".vlib")
	if err := ioutil.WriteFile(path, mod.Encode(), 0644); err != nil {
		t.Fatalf("writing module: %v", err)
	}
	return path
}

func TestParseRoundTrip(t *testing.T) {
	mod := testModule(t, true)

	parsed, err := Parse(mod.Encode())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Executable != mod.Executable {
		t.Error("executable flag lost in round trip")
	}
	if diff := cmp.Diff(mod.Symbols, parsed.Symbols); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(mod.Code, parsed.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	if _, err := Parse([]byte("NOPE\x00")); !errors.Is(err, ErrBadMagic) {
		t.Errorf("err = %v; want ErrBadMagic", err)
	}
}

func TestParseRejectsBadModuleType(t *testing.T) {
	data := append([]byte(bytecode.Magic), 'X')
	if _, err := Parse(data); !errors.Is(err, ErrBadModuleType) {
		t.Errorf("err = %v; want ErrBadModuleType", err)
	}
}

func TestParseRejectsTruncatedSymbolTable(t *testing.T) {
	data := append([]byte(bytecode.Magic), bytecode.TypeLinkable)
	data = append(data, []byte("f/0")...)
	// name not terminated, no offset, no separator
	if _, err := Parse(data); !errors.Is(err, ErrMalformedSymbolTable) {
		t.Errorf("err = %v; want ErrMalformedSymbolTable", err)
	}
}

func TestParseRejectsExecutableWithoutEntry(t *testing.T) {
	mod := testModule(t, false)
	mod.Executable = true
	if _, err := Parse(mod.Encode()); !errors.Is(err, ErrMalformedSymbolTable) {
		t.Errorf("err = %v; want ErrMalformedSymbolTable", err)
	}
}

func TestParseRejectsSymbolOffsetPastCode(t *testing.T) {
	mod := &bytecode.Module{
		Symbols: map[string]uint64{"f/0": 100},
		Code:    []byte{0},
	}
	if _, err := Parse(mod.Encode()); !errors.Is(err, ErrMalformedSymbolTable) {
		t.Errorf("err = %v; want ErrMalformedSymbolTable", err)
	}
}

func TestResolveSearchOrder(t *testing.T) {
	first, err := ioutil.TempDir("", "viua-loader-first")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(first)
	second, err := ioutil.TempDir("", "viua-loader-second")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(second)

	// The same module name exists in both directories; the earlier path
	// must win.
	winning := bytecode.NewProgram()
	winning.Function("m::winner/0").
		Op(bytecode.OpAllocateRegisters).U16(1).
		Op(bytecode.OpReturn)
	winMod, err := winning.Module(false)
	if err != nil {
		t.Fatal(err)
	}
	writeModule(t, first, "m", winMod)
	writeModule(t, second, "m", testModule(t, false))

	l := NewWithPaths([]string{first, second}, nil)
	mod, exports, err := l.Resolve("m")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if exports != nil {
		t.Error("bytecode module resolved with foreign exports")
	}
	if _, ok := mod.Symbols["m::winner/0"]; !ok {
		t.Error("Resolve did not pick the module from the first search path")
	}
}

func TestResolveMissingModule(t *testing.T) {
	dir, err := ioutil.TempDir("", "viua-loader-empty")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	l := NewWithPaths([]string{dir}, nil)
	if _, _, err := l.Resolve("ghost"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("err = %v; want ErrModuleNotFound", err)
	}
}

func TestSearchPathsHonourEnvironment(t *testing.T) {
	old := os.Getenv(PathEnvVar)
	defer os.Setenv(PathEnvVar, old)
	os.Setenv(PathEnvVar, "/opt/viua-extra:/opt/viua-more")

	paths := SearchPaths()
	if len(paths) < 2 {
		t.Fatalf("too few search paths: %v", paths)
	}
	last := paths[len(paths)-1]
	secondLast := paths[len(paths)-2]
	if secondLast != "/opt/viua-extra" || last != "/opt/viua-more" {
		t.Errorf("VIUAPATH entries not appended in order: %v", paths)
	}
	if paths[0] != "." {
		t.Errorf("first search path = %q; want current directory", paths[0])
	}
}
