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

// Package loader resolves module names to bytecode segments or native
// symbol tables.
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/inconshreveable/log15"

	"github.com/viuavm/go-viua/bytecode"
	"github.com/viuavm/go-viua/kernel"
)

// PathEnvVar is the environment variable appending module search prefixes.
const PathEnvVar = "VIUAPATH"

// File extensions probed for each module name.
const (
	bytecodeExtension = ".vlib"
	nativeExtension   = ".so"
)

// nativeEntrySymbol is the single symbol a native module must export.
const nativeEntrySymbol = "Exports"

var (
	// ErrModuleNotFound is returned when no search path holds the module.
	ErrModuleNotFound = errors.New("loader: module not found")

	// ErrBadMagic is returned for files not opening with the module marker.
	ErrBadMagic = errors.New("loader: bad magic marker")

	// ErrBadModuleType is returned for an unknown module-type byte.
	ErrBadModuleType = errors.New("loader: bad module type")

	// ErrMalformedSymbolTable is returned when the symbol table runs past
	// the end of the file.
	ErrMalformedSymbolTable = errors.New("loader: malformed symbol table")

	// ErrNoExports is returned for native modules without a usable Exports
	// symbol.
	ErrNoExports = errors.New("loader: native module exports nothing")
)

// SearchPaths returns the module search list in probe order: the current
// directory, the conventional library locations, then VIUAPATH entries.
func SearchPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "lib", "viua"))
	}
	paths = append(paths, "/usr/local/lib/viua", "/usr/lib/viua")
	for _, entry := range strings.Split(os.Getenv(PathEnvVar), ":") {
		if entry != "" {
			paths = append(paths, entry)
		}
	}
	return paths
}

// Loader resolves module names against an ordered path list.  It implements
// kernel.ModuleResolver.
type Loader struct {
	paths []string
	log   log15.Logger
}

// New creates a loader over the default search paths.
func New(logger log15.Logger) *Loader {
	return NewWithPaths(SearchPaths(), logger)
}

// NewWithPaths creates a loader over an explicit path list.
func NewWithPaths(paths []string, logger log15.Logger) *Loader {
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	return &Loader{paths: paths, log: logger}
}

// Resolve searches the path list for the named module, preferring bytecode
// over native modules within each directory.
func (l *Loader) Resolve(name string) (*bytecode.Module, []kernel.ForeignExport, error) {
	for _, dir := range l.paths {
		candidate := filepath.Join(dir, name+bytecodeExtension)
		if fileExists(candidate) {
			mod, err := ParseFile(candidate)
			if err != nil {
				return nil, nil, err
			}
			l.log.Debug("resolved bytecode module", "module", name, "path", candidate)
			return mod, nil, nil
		}
		candidate = filepath.Join(dir, name+nativeExtension)
		if fileExists(candidate) {
			exports, err := loadNative(candidate)
			if err != nil {
				return nil, nil, err
			}
			l.log.Debug("resolved native module", "module", name, "path", candidate)
			return nil, exports, nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ParseFile reads and parses a bytecode module file.
func ParseFile(path string) (*bytecode.Module, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mod, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mod, nil
}

// Parse decodes the on-disk module layout.
func Parse(data []byte) (*bytecode.Module, error) {
	if len(data) < len(bytecode.Magic)+1 {
		return nil, ErrBadMagic
	}
	if string(data[:len(bytecode.Magic)]) != bytecode.Magic {
		return nil, ErrBadMagic
	}
	pos := len(bytecode.Magic)

	mod := &bytecode.Module{Symbols: make(map[string]uint64)}
	switch data[pos] {
	case bytecode.TypeExecutable:
		mod.Executable = true
	case bytecode.TypeLinkable:
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrBadModuleType, data[pos])
	}
	pos++

	for {
		if pos >= len(data) {
			return nil, ErrMalformedSymbolTable
		}
		if data[pos] == bytecode.SegmentSeparator {
			pos++
			break
		}
		end := pos
		for end < len(data) && data[end] != 0 {
			end++
		}
		if end >= len(data) {
			return nil, ErrMalformedSymbolTable
		}
		name := string(data[pos:end])
		pos = end + 1
		if pos+8 > len(data) {
			return nil, ErrMalformedSymbolTable
		}
		mod.Symbols[name] = binary.LittleEndian.Uint64(data[pos:])
		pos += 8
	}

	mod.Code = append([]byte(nil), data[pos:]...)
	for name, off := range mod.Symbols {
		if off > uint64(len(mod.Code)) {
			return nil, fmt.Errorf("%w: symbol %q offset %d past code end %d",
				ErrMalformedSymbolTable, name, off, len(mod.Code))
		}
	}
	if mod.Executable {
		if _, ok := mod.Symbols[bytecode.EntrySymbol]; !ok {
			return nil, fmt.Errorf("%w: executable module lacks %s",
				ErrMalformedSymbolTable, bytecode.EntrySymbol)
		}
	}
	return mod, nil
}

// loadNative opens a shared library and calls its Exports symbol.
func loadNative(path string) ([]kernel.ForeignExport, error) {
	plug, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %v", path, err)
	}
	sym, err := plug.Lookup(nativeEntrySymbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no %s symbol", ErrNoExports, path, nativeEntrySymbol)
	}
	exporter, ok := sym.(func() []kernel.ForeignExport)
	if !ok {
		return nil, fmt.Errorf("%w: %s has an incompatible %s signature", ErrNoExports, path, nativeEntrySymbol)
	}
	exports := exporter()
	if len(exports) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoExports, path)
	}
	return exports, nil
}
