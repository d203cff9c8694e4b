// Copyright 2021 The go-viua Authors
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

package types

// Function is a named callable reference.
type Function struct {
	pointable
	name string
}

// NewFunction creates a reference to the named callable.
func NewFunction(name string) *Function { return &Function{name: name} }

func (f *Function) Type() string    { return "Function" }
func (f *Function) Str() string     { return "Function: " + f.name }
func (f *Function) Repr() string    { return f.Str() }
func (f *Function) Boolean() bool   { return true }
func (f *Function) Copy() Value     { return NewFunction(f.name) }
func (f *Function) Bases() []string { return basesValue }

// Name returns the "name/arity" string of the callable.
func (f *Function) Name() string { return f.name }

// Proc is a pid handle to a virtual process.
type Proc struct {
	pointable
	pid PID
}

// NewProc creates a handle to the process identified by pid.
func NewProc(pid PID) *Proc { return &Proc{pid: pid} }

func (p *Proc) Type() string    { return "Process" }
func (p *Proc) Str() string     { return "Process: " + p.pid.String() }
func (p *Proc) Repr() string    { return p.Str() }
func (p *Proc) Boolean() bool   { return true }
func (p *Proc) Copy() Value     { return NewProc(p.pid) }
func (p *Proc) Bases() []string { return basesValue }

// Pid returns the identified process's pid.
func (p *Proc) Pid() PID { return p.pid }

// IORequest is a handle to an in-flight I/O interaction owned by the I/O
// scheduler.  The holder redeems it with io_wait or aborts it with
// io_cancel.
type IORequest struct {
	pointable
	id uint64
}

// NewIORequest creates a handle to the interaction identified by id.
func NewIORequest(id uint64) *IORequest { return &IORequest{id: id} }

func (r *IORequest) Type() string    { return "IORequest" }
func (r *IORequest) Str() string     { return "IORequest" }
func (r *IORequest) Repr() string    { return r.Str() }
func (r *IORequest) Boolean() bool   { return true }
func (r *IORequest) Copy() Value     { return NewIORequest(r.id) }
func (r *IORequest) Bases() []string { return basesValue }

// ID returns the interaction identifier.
func (r *IORequest) ID() uint64 { return r.id }
