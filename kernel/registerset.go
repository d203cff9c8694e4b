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

import (
	"errors"
	"fmt"

	"github.com/viuavm/go-viua/types"
)

// ErrRegisterOutOfRange is returned for register indexes outside the
// allocated slot range.
var ErrRegisterOutOfRange = errors.New("kernel: register index out of range")

// RegisterSet is a fixed array of slots, each owning at most one value.
// Slot 0 is the return slot by convention.
type RegisterSet struct {
	slots []types.Value
}

// NewRegisterSet allocates a set of n empty slots.
func NewRegisterSet(n int) *RegisterSet {
	return &RegisterSet{slots: make([]types.Value, n)}
}

// Size returns the number of slots.
func (rs *RegisterSet) Size() int { return len(rs.slots) }

func (rs *RegisterSet) check(i int) error {
	if i < 0 || i >= len(rs.slots) {
		return fmt.Errorf("%w: %d (size %d)", ErrRegisterOutOfRange, i, len(rs.slots))
	}
	return nil
}

// At returns the value in slot i without transferring ownership; the slot may
// be empty.
func (rs *RegisterSet) At(i int) (types.Value, error) {
	if err := rs.check(i); err != nil {
		return nil, err
	}
	return rs.slots[i], nil
}

// Set stores an owned value in slot i, destroying the previous occupant.
func (rs *RegisterSet) Set(i int, v types.Value) error {
	if err := rs.check(i); err != nil {
		return err
	}
	if old := rs.slots[i]; old != nil && old != v {
		types.Destroy(old)
	}
	rs.slots[i] = v
	return nil
}

// Pop transfers the value out of slot i, leaving it empty.
func (rs *RegisterSet) Pop(i int) (types.Value, error) {
	if err := rs.check(i); err != nil {
		return nil, err
	}
	v := rs.slots[i]
	rs.slots[i] = nil
	return v, nil
}

// Clear destroys the value in slot i, leaving it empty.
func (rs *RegisterSet) Clear(i int) error {
	if err := rs.check(i); err != nil {
		return err
	}
	types.Destroy(rs.slots[i])
	rs.slots[i] = nil
	return nil
}

// Swap exchanges the contents of two slots.
func (rs *RegisterSet) Swap(i, j int) error {
	if err := rs.check(i); err != nil {
		return err
	}
	if err := rs.check(j); err != nil {
		return err
	}
	rs.slots[i], rs.slots[j] = rs.slots[j], rs.slots[i]
	return nil
}

// Drop destroys every held value.  The set is unusable afterwards.
func (rs *RegisterSet) Drop() {
	for i, v := range rs.slots {
		if v != nil {
			types.Destroy(v)
			rs.slots[i] = nil
		}
	}
	rs.slots = nil
}
