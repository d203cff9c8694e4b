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
	"testing"
)

func TestPointerInvalidation(t *testing.T) {
	emitter := NewPidEmitter()
	pid := emitter.Emit()

	vec := NewVector()
	vec.Push(NewInteger(1))

	first := NewPointer(vec, pid)
	second := NewPointer(vec, pid)
	if LivePointers(vec) != 2 {
		t.Fatalf("live pointers = %d; want 2", LivePointers(vec))
	}

	Destroy(vec)

	if !first.Expired() || !second.Expired() {
		t.Error("pointers survived target destruction")
	}
	if _, err := first.Deref(pid); !errors.Is(err, ErrExpiredPointer) {
		t.Errorf("Deref after destroy: err = %v; want ErrExpiredPointer", err)
	}
}

func TestPointerDeref(t *testing.T) {
	emitter := NewPidEmitter()
	owner := emitter.Emit()
	other := emitter.Emit()

	n := NewInteger(42)
	ptr := NewPointer(n, owner)

	got, err := ptr.Deref(owner)
	if err != nil {
		t.Fatalf("Deref: %v", err)
	}
	if got.(*Integer).Int() != 42 {
		t.Errorf("Deref = %d; want 42", got.(*Integer).Int())
	}

	if _, err := ptr.Deref(other); !errors.Is(err, ErrForeignPointer) {
		t.Errorf("foreign Deref: err = %v; want ErrForeignPointer", err)
	}
}

func TestPointerReset(t *testing.T) {
	emitter := NewPidEmitter()
	pid := emitter.Emit()

	first := NewInteger(1)
	second := NewInteger(2)
	ptr := NewPointer(first, pid)

	ptr.Reset(second)
	if LivePointers(first) != 0 {
		t.Errorf("old target still lists pointer: %d refs", LivePointers(first))
	}
	if LivePointers(second) != 1 {
		t.Errorf("new target refs = %d; want 1", LivePointers(second))
	}

	Destroy(first)
	if ptr.Expired() {
		t.Error("pointer expired with the old target after Reset")
	}
}

func TestPointerDestroyDetaches(t *testing.T) {
	emitter := NewPidEmitter()
	pid := emitter.Emit()

	target := NewInteger(7)
	ptr := NewPointer(target, pid)

	Destroy(ptr)
	if LivePointers(target) != 0 {
		t.Errorf("target refs after pointer destroy = %d; want 0", LivePointers(target))
	}
}

func TestPidOrderingAndFormat(t *testing.T) {
	emitter := NewPidEmitter()
	a := emitter.Emit()
	b := emitter.Emit()

	if !a.Less(b) {
		t.Errorf("pid %s does not sort before %s", a, b)
	}
	if a.Compare(a) != 0 {
		t.Error("pid does not compare equal to itself")
	}
	if a.String() == "" || a.String() == b.String() {
		t.Errorf("pid strings not distinct: %q vs %q", a, b)
	}
}
