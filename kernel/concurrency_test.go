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

func TestMessagePassingPingPong(t *testing.T) {
	k, _ := newTestKernel(t)

	// The main process spawns an echo worker, hands it its own pid, sends
	// ping, and waits for pong.
	p := bytecode.NewProgram()
	p.Function("worker/1").
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpMove).Reg(bytecode.R(1)).Reg(bytecode.Arg(0)).
		Op(bytecode.OpReceive).Reg(bytecode.R(2)).I32(-1).
		Op(bytecode.OpDelete).Reg(bytecode.R(2)).
		Op(bytecode.OpAtom).Reg(bytecode.R(2)).Str("pong").
		Op(bytecode.OpSend).Reg(bytecode.R(1)).Reg(bytecode.R(2)).
		Op(bytecode.OpReturn)
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(4).
		Op(bytecode.OpSelf).Reg(bytecode.R(1)).
		Op(bytecode.OpFrame).U16(1).
		Op(bytecode.OpPamv).U16(0).Reg(bytecode.R(1)).
		Op(bytecode.OpProcess).Reg(bytecode.R(2)).Str("worker/1").
		Op(bytecode.OpAtom).Reg(bytecode.R(3)).Str("ping").
		Op(bytecode.OpSend).Reg(bytecode.R(2)).Reg(bytecode.R(3)).
		Op(bytecode.OpReceive).Reg(bytecode.R(3)).I32(100).
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(3)).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)

	result := k.MainResult()
	require.NotNil(t, result)
	require.Equal(t, "Atom", result.Type())
	require.Equal(t, "pong", result.Str())
}

func TestReceiveTimeoutZeroRaisesEmptyMailbox(t *testing.T) {
	k, out := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str(types.EmptyMailboxType).Str("handle_empty").
		Op(bytecode.OpEnter).Str("body").
		Op(bytecode.OpReturn)
	p.Block("body").
		Op(bytecode.OpReceive).Reg(bytecode.R(1)).I32(0).
		Op(bytecode.OpLeave)
	p.Block("handle_empty").
		Op(bytecode.OpDraw).Reg(bytecode.R(2)).
		Op(bytecode.OpString).Reg(bytecode.R(2)).Str("empty").
		Op(bytecode.OpPrint).Reg(bytecode.R(2)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"empty"}, out.Lines())
}

func TestReceiveTimeoutExpires(t *testing.T) {
	k, out := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str(types.EmptyMailboxType).Str("handle_empty").
		Op(bytecode.OpEnter).Str("body").
		Op(bytecode.OpReturn)
	p.Block("body").
		Op(bytecode.OpReceive).Reg(bytecode.R(1)).I32(20).
		Op(bytecode.OpLeave)
	p.Block("handle_empty").
		Op(bytecode.OpDraw).Reg(bytecode.R(2)).
		Op(bytecode.OpString).Reg(bytecode.R(2)).Str("timed-out").
		Op(bytecode.OpPrint).Reg(bytecode.R(2)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"timed-out"}, out.Lines())
}

func TestJoinCollectsResult(t *testing.T) {
	k, _ := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function("child/0").
		Op(bytecode.OpAllocateRegisters).U16(1).
		Op(bytecode.OpInteger).Reg(bytecode.R(0)).I32(7).
		Op(bytecode.OpReturn)
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpProcess).Reg(bytecode.R(1)).Str("child/0").
		Op(bytecode.OpJoin).Reg(bytecode.R(2)).Reg(bytecode.R(1)).I32(-1).
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(2)).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.EqualValues(t, 7, mainResultInt(t, k))
}

func TestJoinRethrowsChildCrash(t *testing.T) {
	k, out := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function("crasher/0").
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpObject).Reg(bytecode.R(1)).Str("ChildErr").
		Op(bytecode.OpThrow).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(4).
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpProcess).Reg(bytecode.R(1)).Str("crasher/0").
		Op(bytecode.OpTry).
		Op(bytecode.OpCatch).Str("ChildErr").Str("handle_crash").
		Op(bytecode.OpEnter).Str("join_child").
		Op(bytecode.OpReturn)
	p.Block("join_child").
		Op(bytecode.OpJoin).Reg(bytecode.R(2)).Reg(bytecode.R(1)).I32(-1).
		Op(bytecode.OpLeave)
	p.Block("handle_crash").
		Op(bytecode.OpDraw).Reg(bytecode.R(3)).
		Op(bytecode.OpString).Reg(bytecode.R(3)).Str("child-crashed").
		Op(bytecode.OpPrint).Reg(bytecode.R(3)).
		Op(bytecode.OpLeave)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"child-crashed"}, out.Lines())
}

func TestSpawnFanOutAndJoin(t *testing.T) {
	k, _ := newTestKernel(t)

	// Spawn eight children computing arg+1 and sum the joined results.
	p := bytecode.NewProgram()
	p.Function("bump/1").
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpMove).Reg(bytecode.R(1)).Reg(bytecode.Arg(0)).
		Op(bytecode.OpIinc).Reg(bytecode.R(1)).
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)

	entry := p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(14).
		Op(bytecode.OpIzero).Reg(bytecode.R(1)) // running sum
	for i := 0; i < 8; i++ {
		handle := uint16(2 + i)
		entry.
			Op(bytecode.OpInteger).Reg(bytecode.R(12)).I32(int32(i)).
			Op(bytecode.OpFrame).U16(1).
			Op(bytecode.OpPamv).U16(0).Reg(bytecode.R(12)).
			Op(bytecode.OpProcess).Reg(bytecode.R(handle)).Str("bump/1")
	}
	for i := 0; i < 8; i++ {
		handle := uint16(2 + i)
		entry.
			Op(bytecode.OpJoin).Reg(bytecode.R(13)).Reg(bytecode.R(handle)).I32(-1).
			Op(bytecode.OpAdd).Reg(bytecode.R(1)).Reg(bytecode.R(1)).Reg(bytecode.R(13))
	}
	entry.
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(1)).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	// sum of (i+1) for i in 0..7
	require.EqualValues(t, 36, mainResultInt(t, k))
}

func TestSendToDeadProcessIsDropped(t *testing.T) {
	k, _ := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function("short/0").
		Op(bytecode.OpAllocateRegisters).U16(1).
		Op(bytecode.OpReturn)
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpProcess).Reg(bytecode.R(1)).Str("short/0").
		Op(bytecode.OpJoin).Reg(bytecode.Void()).Reg(bytecode.R(1)).I32(-1).
		Op(bytecode.OpAtom).Reg(bytecode.R(2)).Str("late").
		Op(bytecode.OpSend).Reg(bytecode.R(1)).Reg(bytecode.R(2)).
		Op(bytecode.OpInteger).Reg(bytecode.R(0)).I32(1).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.EqualValues(t, 1, mainResultInt(t, k))
}

func TestSelfYieldsUsablePid(t *testing.T) {
	k, _ := newTestKernel(t)

	// A process can send to itself through its own handle.
	p := bytecode.NewProgram()
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpSelf).Reg(bytecode.R(1)).
		Op(bytecode.OpAtom).Reg(bytecode.R(2)).Str("note").
		Op(bytecode.OpSend).Reg(bytecode.R(1)).Reg(bytecode.R(2)).
		Op(bytecode.OpReceive).Reg(bytecode.R(2)).I32(100).
		Op(bytecode.OpMove).Reg(bytecode.R(0)).Reg(bytecode.R(2)).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	result := k.MainResult()
	require.NotNil(t, result)
	require.Equal(t, "note", result.Str())
}

func TestMessagesArriveInSendOrder(t *testing.T) {
	k, out := newTestKernel(t)

	p := bytecode.NewProgram()
	entry := p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(3).
		Op(bytecode.OpSelf).Reg(bytecode.R(1))
	for _, tag := range []string{"first", "second", "third"} {
		entry.
			Op(bytecode.OpAtom).Reg(bytecode.R(2)).Str(tag).
			Op(bytecode.OpSend).Reg(bytecode.R(1)).Reg(bytecode.R(2))
	}
	for i := 0; i < 3; i++ {
		entry.
			Op(bytecode.OpReceive).Reg(bytecode.R(2)).I32(100).
			Op(bytecode.OpPrint).Reg(bytecode.R(2))
	}
	entry.Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.Equal(t, []string{"first", "second", "third"}, out.Lines())
}

func TestJoinVoidDiscardsChildCrashless(t *testing.T) {
	k, _ := newTestKernel(t)

	p := bytecode.NewProgram()
	p.Function("quiet/0").
		Op(bytecode.OpAllocateRegisters).U16(1).
		Op(bytecode.OpReturn)
	p.Function(bytecode.EntrySymbol).
		Op(bytecode.OpAllocateRegisters).U16(2).
		Op(bytecode.OpFrame).U16(0).
		Op(bytecode.OpProcess).Reg(bytecode.R(1)).Str("quiet/0").
		Op(bytecode.OpJoin).Reg(bytecode.Void()).Reg(bytecode.R(1)).I32(-1).
		Op(bytecode.OpInteger).Reg(bytecode.R(0)).I32(5).
		Op(bytecode.OpReturn)

	code := runProgram(t, k, p)
	require.Equal(t, ExitClean, code)
	require.EqualValues(t, 5, mainResultInt(t, k))
}
