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

// Frame is the activation record of one call.
type Frame struct {
	// returnAddress is the absolute code offset the caller resumes at.
	returnAddress uint64

	// entry is the function's entry offset; jump targets are relative to it.
	entry uint64

	args  *RegisterSet
	local *RegisterSet

	function string

	// returnVoid is set when the caller discards the return value;
	// returnRegister is the caller-local slot receiving it otherwise.
	returnVoid     bool
	returnRegister int
}

// newFrame creates a frame for a call into function at entry, with the bound
// argument set.  The local set starts empty until allocate_registers runs.
func newFrame(function string, entry uint64, args *RegisterSet) *Frame {
	if args == nil {
		args = NewRegisterSet(0)
	}
	return &Frame{
		function:   function,
		entry:      entry,
		args:       args,
		local:      NewRegisterSet(0),
		returnVoid: true,
	}
}

// Arguments returns the frame's argument register set.
func (f *Frame) Arguments() *RegisterSet { return f.args }

// Locals returns the frame's local register set.
func (f *Frame) Locals() *RegisterSet { return f.local }

// Function returns the name of the callable the frame belongs to.
func (f *Frame) Function() string { return f.function }

// drop destroys both register sets.
func (f *Frame) drop() {
	f.args.Drop()
	f.local.Drop()
}

// Catcher is one registered exception handler: the block control transfers to
// when the guarded type is thrown.
type Catcher struct {
	Block   string
	Address uint64
}

// TryFrame is a scoped exception context.  It is strictly nested inside the
// frame whose depth it records: popping that frame pops the try-frame too.
type TryFrame struct {
	// returnAddress is where control resumes after the block leaves
	// normally; set when enter runs.
	returnAddress uint64

	// depth is the frame-stack depth the try-frame belongs to.
	depth int

	blockName string

	// handling is set once a catcher of this try-frame has fired, so a
	// throw inside the handler resumes unwinding at the enclosing
	// try-frame instead of looping.
	handling bool

	catchers map[string]*Catcher
}

func newTryFrame(depth int) *TryFrame {
	return &TryFrame{depth: depth, catchers: make(map[string]*Catcher)}
}

// match returns the catcher registered for the first matching name in the
// thrown value's inheritance chain.
func (tf *TryFrame) match(chain []string) *Catcher {
	for _, name := range chain {
		if c, ok := tf.catchers[name]; ok {
			return c
		}
	}
	return nil
}
