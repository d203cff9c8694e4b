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
	"sync"
)

// ErrExpiredPointer is returned when dereferencing a pointer whose target has
// been destroyed.
var ErrExpiredPointer = errors.New("types: dereference of expired pointer")

// ErrForeignPointer is returned when a pointer is dereferenced on a process
// other than the one it originated on.
var ErrForeignPointer = errors.New("types: dereference of foreign pointer")

// Pointer is a non-owning reference to a value living on a particular
// process.  The target tracks the pointer in its back-reference list and
// expires it on destruction.
type Pointer struct {
	pointable

	mu     sync.Mutex
	origin PID
	target Value
	valid  bool
}

// NewPointer creates a pointer at target, originating on the process
// identified by origin, and registers it with the target.
func NewPointer(target Value, origin PID) *Pointer {
	p := &Pointer{origin: origin, target: target, valid: true}
	target.backrefs().attach(p)
	return p
}

func (p *Pointer) Type() string { return "Pointer" }

func (p *Pointer) Str() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.valid {
		return "Pointer (expired)"
	}
	return "Pointer to " + p.target.Type()
}

func (p *Pointer) Repr() string { return p.Str() }

// Boolean reports whether the pointer is still valid.
func (p *Pointer) Boolean() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.valid
}

// Copy returns a fresh pointer at the same target.  Copying an expired
// pointer yields another expired pointer.
func (p *Pointer) Copy() Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.valid {
		return &Pointer{origin: p.origin}
	}
	return NewPointer(p.target, p.origin)
}

func (p *Pointer) Bases() []string { return basesValue }

// Expired reports whether the target has been destroyed.
func (p *Pointer) Expired() bool { return !p.Boolean() }

// Origin returns the pid of the process the pointer was taken on.
func (p *Pointer) Origin() PID { return p.origin }

// Deref returns the target value.  It fails if the pointer has expired or if
// current is not the originating process.
func (p *Pointer) Deref(current PID) (Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.valid {
		return nil, ErrExpiredPointer
	}
	if p.origin != current {
		return nil, ErrForeignPointer
	}
	return p.target, nil
}

// Reset redirects the pointer at a new target, detaching from the old one.
func (p *Pointer) Reset(target Value) {
	p.detachTarget()
	p.mu.Lock()
	p.target = target
	p.valid = true
	p.mu.Unlock()
	target.backrefs().attach(p)
}

// expire is called by the target when it is destroyed.
func (p *Pointer) expire() {
	p.mu.Lock()
	p.valid = false
	p.target = nil
	p.mu.Unlock()
}

// detachTarget removes the pointer from its target's back-reference list,
// used when the pointer itself is destroyed or redirected.
func (p *Pointer) detachTarget() {
	p.mu.Lock()
	target := p.target
	p.target = nil
	p.valid = false
	p.mu.Unlock()
	if target != nil {
		target.backrefs().detach(p)
	}
}
