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

package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrIndexOutOfRange is returned by vector access with an index outside the
// element range.
var ErrIndexOutOfRange = errors.New("types: vector index out of range")

// ErrNoSuchKey is returned by struct access with an unknown attribute name.
var ErrNoSuchKey = errors.New("types: struct has no such key")

// ---- Vector ----------------------------------------------------------------

// Vector is an ordered sequence of owned values.
type Vector struct {
	pointable
	elems []Value
}

// NewVector creates an empty Vector.
func NewVector() *Vector { return &Vector{} }

func (v *Vector) Type() string  { return "Vector" }
func (v *Vector) Boolean() bool { return len(v.elems) != 0 }

func (v *Vector) Str() string {
	parts := make([]string, len(v.elems))
	for i, e := range v.elems {
		parts[i] = e.Repr()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (v *Vector) Repr() string    { return v.Str() }
func (v *Vector) Bases() []string { return basesValue }

func (v *Vector) Copy() Value {
	c := NewVector()
	c.elems = make([]Value, len(v.elems))
	for i, e := range v.elems {
		c.elems[i] = e.Copy()
	}
	return c
}

// Push appends an owned value.
func (v *Vector) Push(e Value) { v.elems = append(v.elems, e) }

// Pop removes and returns the last element.
func (v *Vector) Pop() (Value, error) {
	if len(v.elems) == 0 {
		return nil, ErrIndexOutOfRange
	}
	e := v.elems[len(v.elems)-1]
	v.elems = v.elems[:len(v.elems)-1]
	return e, nil
}

// At returns the element at index i without transferring ownership.
// Negative indexes count from the end.
func (v *Vector) At(i int64) (Value, error) {
	if i < 0 {
		i += int64(len(v.elems))
	}
	if i < 0 || i >= int64(len(v.elems)) {
		return nil, fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, i, len(v.elems))
	}
	return v.elems[i], nil
}

// Len returns the number of elements.
func (v *Vector) Len() int { return len(v.elems) }

// ---- Struct ----------------------------------------------------------------

// Struct maps attribute names to owned values.  Iteration order is not part
// of its identity; stringification sorts keys.
type Struct struct {
	pointable
	fields map[string]Value
}

// NewStruct creates an empty Struct.
func NewStruct() *Struct {
	return &Struct{fields: make(map[string]Value)}
}

func (s *Struct) Type() string  { return "Struct" }
func (s *Struct) Boolean() bool { return len(s.fields) != 0 }

func (s *Struct) Str() string {
	keys := s.Keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + s.fields[k].Repr()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s *Struct) Repr() string    { return s.Str() }
func (s *Struct) Bases() []string { return basesValue }

func (s *Struct) Copy() Value {
	c := NewStruct()
	for k, v := range s.fields {
		c.fields[k] = v.Copy()
	}
	return c
}

// Insert stores an owned value under key, destroying any previous value.
func (s *Struct) Insert(key string, v Value) {
	if old, ok := s.fields[key]; ok {
		Destroy(old)
	}
	s.fields[key] = v
}

// Remove transfers the value under key out of the struct.
func (s *Struct) Remove(key string) (Value, error) {
	v, ok := s.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchKey, key)
	}
	delete(s.fields, key)
	return v, nil
}

// At returns the value under key without transferring ownership.
func (s *Struct) At(key string) (Value, error) {
	v, ok := s.fields[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoSuchKey, key)
	}
	return v, nil
}

// Keys returns the attribute names in sorted order.
func (s *Struct) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of attributes.
func (s *Struct) Len() int { return len(s.fields) }

func (s *Struct) destroyFields() {
	for _, v := range s.fields {
		Destroy(v)
	}
	s.fields = make(map[string]Value)
}

// ---- Object ----------------------------------------------------------------

// Object is a Struct tagged with a user-chosen class name.
type Object struct {
	Struct
	class string
}

// NewObject creates an empty Object of the given class.
func NewObject(class string) *Object {
	return &Object{Struct: Struct{fields: make(map[string]Value)}, class: class}
}

func (o *Object) Type() string { return o.class }

func (o *Object) Str() string {
	return o.class + o.Struct.Str()
}

func (o *Object) Repr() string { return o.Str() }

func (o *Object) Bases() []string { return []string{"Object", "Value"} }

func (o *Object) Copy() Value {
	c := NewObject(o.class)
	for k, v := range o.fields {
		c.fields[k] = v.Copy()
	}
	return c
}

// Class returns the user-chosen class name.
func (o *Object) Class() string { return o.class }

// ---- Prototype -------------------------------------------------------------

// Prototype describes a user-defined class: its name and the ordered list of
// ancestor type names.
type Prototype struct {
	pointable
	name      string
	ancestors []string
}

// NewPrototype creates a Prototype for the named class.
func NewPrototype(name string, ancestors ...string) *Prototype {
	return &Prototype{name: name, ancestors: ancestors}
}

func (p *Prototype) Type() string  { return "Prototype" }
func (p *Prototype) Str() string   { return "Prototype for " + p.name }
func (p *Prototype) Repr() string  { return p.Str() }
func (p *Prototype) Boolean() bool { return true }

func (p *Prototype) Copy() Value {
	ancestors := make([]string, len(p.ancestors))
	copy(ancestors, p.ancestors)
	return NewPrototype(p.name, ancestors...)
}

func (p *Prototype) Bases() []string { return basesValue }

// Name returns the described class name.
func (p *Prototype) Name() string { return p.name }

// Ancestors returns the declared ancestor chain.
func (p *Prototype) Ancestors() []string { return p.ancestors }

// Derive appends an ancestor to the chain.
func (p *Prototype) Derive(ancestor string) { p.ancestors = append(p.ancestors, ancestor) }
