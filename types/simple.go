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
	"fmt"
	"strconv"
)

// ---- Integer ---------------------------------------------------------------

// Integer is a signed 64-bit integer value.
type Integer struct {
	pointable
	val int64
}

// NewInteger creates an Integer holding v.
func NewInteger(v int64) *Integer { return &Integer{val: v} }

func (i *Integer) Type() string    { return "Integer" }
func (i *Integer) Str() string     { return strconv.FormatInt(i.val, 10) }
func (i *Integer) Repr() string    { return i.Str() }
func (i *Integer) Boolean() bool   { return i.val != 0 }
func (i *Integer) Copy() Value     { return NewInteger(i.val) }
func (i *Integer) Bases() []string { return basesValue }

// Int returns the held integer.
func (i *Integer) Int() int64 { return i.val }

// Set replaces the held integer.
func (i *Integer) Set(v int64) { i.val = v }

// Increment adds one to the held integer.
func (i *Integer) Increment() { i.val++ }

// Decrement subtracts one from the held integer.
func (i *Integer) Decrement() { i.val-- }

// ---- Float -----------------------------------------------------------------

// Float is a 64-bit floating point value.
type Float struct {
	pointable
	val float64
}

// NewFloat creates a Float holding v.
func NewFloat(v float64) *Float { return &Float{val: v} }

func (f *Float) Type() string    { return "Float" }
func (f *Float) Str() string     { return strconv.FormatFloat(f.val, 'g', -1, 64) }
func (f *Float) Repr() string    { return f.Str() }
func (f *Float) Boolean() bool   { return f.val != 0 }
func (f *Float) Copy() Value     { return NewFloat(f.val) }
func (f *Float) Bases() []string { return basesValue }

// Float returns the held float.
func (f *Float) Float() float64 { return f.val }

// Set replaces the held float.
func (f *Float) Set(v float64) { f.val = v }

// ---- Boolean ---------------------------------------------------------------

// Boolean is a truth value.
type Boolean struct {
	pointable
	val bool
}

// NewBoolean creates a Boolean holding v.
func NewBoolean(v bool) *Boolean { return &Boolean{val: v} }

func (b *Boolean) Type() string    { return "Boolean" }
func (b *Boolean) Str() string     { return strconv.FormatBool(b.val) }
func (b *Boolean) Repr() string    { return b.Str() }
func (b *Boolean) Boolean() bool   { return b.val }
func (b *Boolean) Copy() Value     { return NewBoolean(b.val) }
func (b *Boolean) Bases() []string { return basesValue }

// ---- Byte ------------------------------------------------------------------

// Byte is a single octet value.
type Byte struct {
	pointable
	val byte
}

// NewByte creates a Byte holding v.
func NewByte(v byte) *Byte { return &Byte{val: v} }

func (b *Byte) Type() string    { return "Byte" }
func (b *Byte) Str() string     { return string(rune(b.val)) }
func (b *Byte) Repr() string    { return fmt.Sprintf("0x%02x", b.val) }
func (b *Byte) Boolean() bool   { return b.val != 0 }
func (b *Byte) Copy() Value     { return NewByte(b.val) }
func (b *Byte) Bases() []string { return basesValue }

// Byte returns the held octet.
func (b *Byte) Byte() byte { return b.val }

// ---- String ----------------------------------------------------------------

// String is a text value.
type String struct {
	pointable
	val string
}

// NewString creates a String holding v.
func NewString(v string) *String { return &String{val: v} }

func (s *String) Type() string    { return "String" }
func (s *String) Str() string     { return s.val }
func (s *String) Repr() string    { return strconv.Quote(s.val) }
func (s *String) Boolean() bool   { return len(s.val) != 0 }
func (s *String) Copy() Value     { return NewString(s.val) }
func (s *String) Bases() []string { return basesValue }

// String returns the held text.
func (s *String) String() string { return s.val }

// ---- Atom ------------------------------------------------------------------

// Atom is an interned symbolic tag, compared by content.
type Atom struct {
	pointable
	val string
}

// NewAtom creates an Atom with the given tag.
func NewAtom(v string) *Atom { return &Atom{val: v} }

func (a *Atom) Type() string    { return "Atom" }
func (a *Atom) Str() string     { return a.val }
func (a *Atom) Repr() string    { return "'" + a.val + "'" }
func (a *Atom) Boolean() bool   { return true }
func (a *Atom) Copy() Value     { return NewAtom(a.val) }
func (a *Atom) Bases() []string { return basesValue }

// Equals reports whether two atoms carry the same tag.
func (a *Atom) Equals(other *Atom) bool { return a.val == other.val }
