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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viuavm/go-viua/bytecode"
	"github.com/viuavm/go-viua/types"
)

func TestCatchDepositsThrownValue(t *testing.T) {
	k, out := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(4).
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str("MyErr").Str("handler").
		Op(bytecode.OpEnter).Str("body").
		Op(bytecode.OpString).Reg(bytecode.R(3)).Str("after").
		Op(bytecode.OpPrint).Reg(bytecode.R(3)).
		Op(bytecode.OpReturn)
	p.Block("body").
		Op(bytecode.OpObject).Reg(bytecode.R(1)).Str("MyErr").
		Op(bytecode.OpThrow).Reg(bytecode.R(1)).
		Op(bytecode.OpLeave)
	p.Block("handler").
		Op(bytecode.OpDraw).Reg(bytecode.R(2)).
		Op(bytecode.OpString).Reg(bytecode.R(3)).Str("handler-ran").
		Op(bytecode.OpPrint).Reg(bytecode.R(3)).
		Op(bytecode.OpPrint).Reg(bytecode.R(2)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"handler-ran", "MyErr{}", "after"}, out.Lines())
}

func TestUncaughtExceptionExitsWithTwo(t *testing.T) {
	k, _ := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpObject).Reg(bytecode.R(1)).Str("MyErr").
		Op(bytecode.OpThrow).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)

	require.Equal(t, ExitUncaught, runProgram(t, k, p))
}

func TestCatchMatchesBaseType(t *testing.T) {
	k, out := newTestKernel(t)

	// Objects report the chain [class, Object, Value]; a catcher keyed on
	// the base type must fire for a derived throw.
	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str("Object").Str("handler").
		Op(bytecode.OpEnter).Str("body").
		Op(bytecode.OpReturn)
	p.Block("body").
		Op(bytecode.OpObject).Reg(bytecode.R(1)).Str("VerySpecificError").
		Op(bytecode.OpThrow).Reg(bytecode.R(1)).
		Op(bytecode.OpLeave)
	p.Block("handler").
		Op(bytecode.OpDraw).Reg(bytecode.R(2)).
		Op(bytecode.OpString).Reg(bytecode.R(2)).Str("caught-by-base").
		Op(bytecode.OpPrint).Reg(bytecode.R(2)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"caught-by-base"}, out.Lines())
}

func TestThrowInsideHandlerUnwindsToEnclosingTry(t *testing.T) {
	k, out := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str("Outer").Str("outer_handler").
		Op(bytecode.OpEnter).Str("outer_body").
		Op(bytecode.OpReturn)
	p.Block("outer_body").
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str("MyErr").Str("inner_handler").
		Op(bytecode.OpEnter).Str("inner_body").
		Op(bytecode.OpLeave)
	p.Block("inner_body").
		Op(bytecode.OpObject).Reg(bytecode.R(1)).Str("MyErr").
		Op(bytecode.OpThrow).Reg(bytecode.R(1)).
		Op(bytecode.OpLeave)
	p.Block("inner_handler").
		// Re-throwing from a live handler must not re-enter its own
		// try-frame; unwinding continues outward.
		Op(bytecode.OpDraw).Reg(bytecode.R(2)).
		Op(bytecode.OpDelete).Reg(bytecode.R(2)).
		Op(bytecode.OpObject).Reg(bytecode.R(1)).Str("Outer").
		Op(bytecode.OpThrow).Reg(bytecode.R(1)).
		Op(bytecode.OpLeave)
	p.Block("outer_handler").
		Op(bytecode.OpDraw).Reg(bytecode.R(2)).
		Op(bytecode.OpString).Reg(bytecode.R(2)).Str("outer-handler").
		Op(bytecode.OpPrint).Reg(bytecode.R(2)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"outer-handler"}, out.Lines())
}

func TestExceptionPropagatesThroughCalls(t *testing.T) {
	k, out := newTestKernel(t)

	// The throw happens two calls deep; the catcher sits in the entry
	// function, so unwinding must pop both callee frames.
	p := bytecode.NewProgram()
	p.Function("inner/0").
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpObject).Reg(bytecode.R(1)).Str("DeepErr").
		Op(bytecode.OpThrow).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)
	p.Function("middle/0").
		Op(bytecode.OpAllocateRegisters).U16(1).
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpCall).Reg(bytecode.Void()).Str("inner/0").
		Op(bytecode.OpReturn)
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str("DeepErr").Str("handler").
		Op(bytecode.OpEnter).Str("body").
		Op(bytecode.OpReturn)
	p.Block("body").
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpCall).Reg(bytecode.Void()).Str("middle/0").
		Op(bytecode.OpLeave)
	p.Block("handler").
		Op(bytecode.OpDraw).Reg(bytecode.R(1)).
		Op(bytecode.OpString).Reg(bytecode.R(1)).Str("deep-caught").
		Op(bytecode.OpPrint).Reg(bytecode.R(1)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"deep-caught"}, out.Lines())
}

func TestExceptionTraceKeepsEntryOrder(t *testing.T) {
	exc := types.NewExceptionOfType("MyErr", "boom")
	exc.AddTraceEntry("inner/0", 12)
	exc.AddTraceEntry("middle/0", 30)

	trace := exc.Trace()
	require.Len(t, trace, 2)
	require.Equal(t, "inner/0", trace[0].Function)
	require.Equal(t, "middle/0", trace[1].Function)
}
