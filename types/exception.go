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

// Type names of the exceptions the runtime itself raises.  User code can
// catch any of them by name.
const (
	ExceptionType          = "Exception"
	DecodeFailureType      = "DecodeFailure"
	TypeMismatchType       = "TypeMismatch"
	ArityMismatchType      = "ArityMismatch"
	StaleReferenceType     = "StaleReference"
	OutOfRangeType         = "OutOfRange"
	ResourceExhaustionType = "ResourceExhaustion"
	ModuleNotFoundType     = "ModuleNotFound"
	IOErrorType            = "IOError"
	EmptyMailboxType       = "EmptyMailbox"
)

// ThrowEntry is one level of the throw trace captured while an exception
// unwinds the stack.
type ThrowEntry struct {
	Function string
	Offset   uint64
}

// Exception is a first-class value carrying an error condition: a type name
// used for catcher matching, a message, an optional payload value, and the
// throw trace.
type Exception struct {
	pointable
	typeName string
	message  string
	payload  Value
	trace    []ThrowEntry
}

// NewException creates a plain Exception with the given message.
func NewException(message string) *Exception {
	return &Exception{typeName: ExceptionType, message: message}
}

// NewExceptionOfType creates an exception with a caller-chosen type name,
// catchable both under that name and under "Exception".
func NewExceptionOfType(typeName, message string) *Exception {
	return &Exception{typeName: typeName, message: message}
}

// NewExceptionWithPayload wraps an owned payload value in an exception.
func NewExceptionWithPayload(typeName, message string, payload Value) *Exception {
	return &Exception{typeName: typeName, message: message, payload: payload}
}

func (e *Exception) Type() string { return e.typeName }

func (e *Exception) Str() string {
	if e.message == "" {
		return e.typeName
	}
	return e.typeName + ": " + e.message
}

func (e *Exception) Repr() string  { return e.Str() }
func (e *Exception) Boolean() bool { return true }

func (e *Exception) Copy() Value {
	c := &Exception{typeName: e.typeName, message: e.message}
	if e.payload != nil {
		c.payload = e.payload.Copy()
	}
	c.trace = append(c.trace, e.trace...)
	return c
}

func (e *Exception) Bases() []string {
	if e.typeName == ExceptionType {
		return basesValue
	}
	return []string{ExceptionType, "Value"}
}

// Message returns the error message.
func (e *Exception) Message() string { return e.message }

// Payload returns the carried payload value, or nil.
func (e *Exception) Payload() Value { return e.payload }

// TakePayload transfers the payload out of the exception.
func (e *Exception) TakePayload() Value {
	p := e.payload
	e.payload = nil
	return p
}

// AddTraceEntry appends one unwound frame to the throw trace.
func (e *Exception) AddTraceEntry(function string, offset uint64) {
	e.trace = append(e.trace, ThrowEntry{Function: function, Offset: offset})
}

// Trace returns the captured throw trace, innermost frame first.
func (e *Exception) Trace() []ThrowEntry { return e.trace }
