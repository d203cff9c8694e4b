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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viuavm/go-viua/bytecode"
	"github.com/viuavm/go-viua/types"
)

// nativePlus adds two Integer arguments, in the shape a native module's
// exported function takes.
func nativePlus(frame *Frame, static *RegisterSet, proc *Process, k *Kernel) (types.Value, error) {
	lhs, err := frame.Arguments().At(0)
	if err != nil {
		return nil, err
	}
	rhs, err := frame.Arguments().At(1)
	if err != nil {
		return nil, err
	}
	a, ok := lhs.(*types.Integer)
	if !ok {
		return nil, fmt.Errorf("plus/2: argument 0 is %s, expected Integer", lhs.Type())
	}
	b, ok := rhs.(*types.Integer)
	if !ok {
		return nil, fmt.Errorf("plus/2: argument 1 is %s, expected Integer", rhs.Type())
	}
	return types.NewInteger(a.Int() + b.Int()), nil
}

func TestForeignCallReturnsValue(t *testing.T) {
	k, _ := newTestKernel(t)
	k.RegisterForeignModule("math", []ForeignExport{
		{Name: "math::plus/2", Fn: nativePlus},
	})

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpInteger).Reg(bytecode.R(1)).I32(40).
		Op(bytecode.OpInteger).Reg(bytecode.R(2)).I32(2).
		Op(bytecode.OpFrame).U16(2).
		Op(bytecode.OpPamv).U16(0).Reg(bytecode.R(1)).
		Op(bytecode.OpPamv).U16(1).Reg(bytecode.R(2)).
		Op(bytecode.OpCall).Reg(bytecode.R(1)).Str("math::plus/2").
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.EqualValues(t, 42, mainResultInt(t, k))
}

func TestForeignCallResumesOnBytecodeScheduler(t *testing.T) {
	k, _ := newTestKernel(t)
	k.RegisterForeignModule("math", []ForeignExport{
		{Name: "math::plus/2", Fn: nativePlus},
	})

	// The process keeps computing after the native call returns, proving
	// it was re-queued onto the bytecode scheduler.
	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpInteger).Reg(bytecode.R(1)).I32(20).
		Op(bytecode.OpInteger).Reg(bytecode.R(2)).I32(21).
		Op(bytecode.OpFrame).U16(2).
		Op(bytecode.OpPamv).U16(0).Reg(bytecode.R(1)).
		Op(bytecode.OpPamv).U16(1).Reg(bytecode.R(2)).
		Op(bytecode.OpCall).Reg(bytecode.R(1)).Str("math::plus/2").
		Op(bytecode.OpIinc).Reg(bytecode.R(1)).
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.EqualValues(t, 42, mainResultInt(t, k))
}

func TestForeignErrorRaisesCatchableException(t *testing.T) {
	k, out := newTestKernel(t)
	k.RegisterForeignModule("broken", []ForeignExport{
		{
			Name: "broken::explode/0",
			Fn: func(frame *Frame, static *RegisterSet, proc *Process, k *Kernel) (types.Value, error) {
				return nil, errors.New("native failure")
			},
		},
	})

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str(types.ExceptionType).Str("handle_native").
		Op(bytecode.OpEnter).Str("body").
		Op(bytecode.OpReturn)
	p.Block("body").
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpCall).Reg(bytecode.Void()).Str("broken::explode/0").
		Op(bytecode.OpLeave)
	p.Block("handle_native").
		Op(bytecode.OpDraw).Reg(bytecode.R(1)).
		Op(bytecode.OpPrint).Reg(bytecode.R(1)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	lines := out.Lines()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "native failure")
}

func TestForeignStaticSetPersists(t *testing.T) {
	k, _ := newTestKernel(t)
	k.RegisterForeignModule("stateful", []ForeignExport{
		{
			Name: "stateful::count/0",
			Fn: func(frame *Frame, static *RegisterSet, proc *Process, k *Kernel) (types.Value, error) {
				slot, err := static.At(0)
				if err != nil {
					return nil, err
				}
				n, ok := slot.(*types.Integer)
				if !ok {
					n = types.NewInteger(0)
					if err := static.Set(0, n); err != nil {
						return nil, err
					}
				}
				n.Increment()
				return types.NewInteger(n.Int()), nil
			},
		},
	})

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpCall).Reg(bytecode.Void()).Str("stateful::count/0").
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpCall).Reg(bytecode.R(1)).Str("stateful::count/0").
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.EqualValues(t, 2, mainResultInt(t, k))
}
