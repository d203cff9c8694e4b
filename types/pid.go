// Copyright 2022 The go-viua Authors
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
	"bytes"
	"encoding/binary"
	"net"
	"sync"

	"github.com/google/uuid"
)

// PID identifies a virtual process.  The high eight bytes carry the node
// identity, the low eight bytes a process-local counter; the whole value is
// totally ordered by byte comparison and rendered in IPv6 textual form.
type PID [16]byte

// String returns the canonical textual form of the pid.
func (p PID) String() string {
	return net.IP(p[:]).String()
}

// Compare orders two pids; the result follows bytes.Compare.
func (p PID) Compare(other PID) int {
	return bytes.Compare(p[:], other[:])
}

// Less reports whether p sorts before other.
func (p PID) Less(other PID) bool {
	return p.Compare(other) < 0
}

// PidEmitter hands out pids for one kernel instance.  The node half is
// derived from a random UUID at construction, the counter half is a simple
// monotone sequence.
type PidEmitter struct {
	mu      sync.Mutex
	node    [8]byte
	counter uint64
}

// NewPidEmitter creates an emitter with a freshly drawn node identity.
func NewPidEmitter() *PidEmitter {
	e := new(PidEmitter)
	id := uuid.New()
	copy(e.node[:], id[:8])
	return e
}

// Emit returns the next pid.  Counter zero is never emitted so the zero PID
// stays available as a sentinel.
func (e *PidEmitter) Emit() PID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counter++
	var p PID
	copy(p[:8], e.node[:])
	binary.BigEndian.PutUint64(p[8:], e.counter)
	return p
}
