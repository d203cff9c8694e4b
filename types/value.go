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

// Package types implements the runtime value model of the virtual machine.
//
// Every value is exclusively owned by exactly one register slot, container,
// or in-flight message.  Pointers are non-owning back-references: a value
// keeps a list of the live pointers aimed at it and expires them the moment
// it is destroyed.
package types

import "sync"

// Value is the capability set every runtime value provides.
//
// Concrete values are always handled through pointers; the unexported
// backrefs method pins the set of implementations to this package, mirroring
// the closed value hierarchy of the VM.
type Value interface {
	// Type returns the value's type name as used by the typesystem and by
	// exception catcher matching.
	Type() string

	// Str returns the value formatted for program-visible output.
	Str() string

	// Repr returns the value formatted for diagnostics; strings and atoms
	// are quoted, other types usually match Str.
	Repr() string

	// Boolean reports the value's truthiness.
	Boolean() bool

	// Copy returns a deep copy of the value.  The copy starts with no
	// registered pointers.
	Copy() Value

	// Bases returns the type names the value inherits from, most derived
	// first, excluding the value's own type name.
	Bases() []string

	backrefs() *pointable
}

// InheritanceChain returns the full type-name chain of v: its own type name
// followed by its bases.  Exception catchers match against this chain.
func InheritanceChain(v Value) []string {
	return append([]string{v.Type()}, v.Bases()...)
}

// basesValue is the default base chain shared by most concrete values.
var basesValue = []string{"Value"}

// pointable is embedded by every concrete value and tracks the live pointers
// referring at it.  Access is guarded by its own lock because pointer
// invalidation may cross process boundaries.
type pointable struct {
	mu   sync.Mutex
	refs []*Pointer
}

func (p *pointable) backrefs() *pointable { return p }

func (p *pointable) attach(ptr *Pointer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs = append(p.refs, ptr)
}

func (p *pointable) detach(ptr *Pointer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, ref := range p.refs {
		if ref == ptr {
			p.refs = append(p.refs[:i], p.refs[i+1:]...)
			return
		}
	}
}

// invalidate expires every registered pointer and clears the list.
func (p *pointable) invalidate() {
	p.mu.Lock()
	refs := p.refs
	p.refs = nil
	p.mu.Unlock()
	for _, ref := range refs {
		ref.expire()
	}
}

// live returns the number of currently registered pointers.  Exposed for the
// invariant checks in tests.
func (p *pointable) live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.refs)
}

// Destroy expires every pointer reaching into v, recursing into containers,
// and detaches v itself if it is a pointer.  Owners must call it before
// dropping a value.
func Destroy(v Value) {
	if v == nil {
		return
	}
	v.backrefs().invalidate()
	switch c := v.(type) {
	case *Vector:
		for _, e := range c.elems {
			Destroy(e)
		}
		c.elems = nil
	case *Struct:
		c.destroyFields()
	case *Object:
		c.destroyFields()
	case *Exception:
		Destroy(c.payload)
	case *Pointer:
		c.detachTarget()
	}
}

// LivePointers reports how many non-expired pointers currently target v.
func LivePointers(v Value) int {
	return v.backrefs().live()
}
