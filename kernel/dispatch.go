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

import "github.com/viuavm/go-viua/bytecode"

// handler executes one decoded instruction.  Handlers consume their operands
// from the decoder, mutate process state, and either let the step loop
// commit the advanced cursor or take control themselves via jumpTo.
type handler func(k *Kernel, p *Process, d *decoder) error

// handlers is the dispatch table, one entry per opcode.
var handlers = [bytecode.OpcodeCount]handler{
	bytecode.OpNop:               opNop,
	bytecode.OpIzero:             opIzero,
	bytecode.OpInteger:           opInteger,
	bytecode.OpFloat:             opFloat,
	bytecode.OpString:            opString,
	bytecode.OpAtom:              opAtom,
	bytecode.OpByte:              opByte,
	bytecode.OpVector:            opVector,
	bytecode.OpStruct:            opStruct,
	bytecode.OpObject:            opObject,
	bytecode.OpPrototype:         opPrototype,
	bytecode.OpDerive:            opDerive,
	bytecode.OpAdd:               opAdd,
	bytecode.OpSub:               opSub,
	bytecode.OpMul:               opMul,
	bytecode.OpDiv:               opDiv,
	bytecode.OpMod:               opMod,
	bytecode.OpLt:                opLt,
	bytecode.OpLte:               opLte,
	bytecode.OpGt:                opGt,
	bytecode.OpGte:               opGte,
	bytecode.OpEq:                opEq,
	bytecode.OpIinc:              opIinc,
	bytecode.OpIdec:              opIdec,
	bytecode.OpMove:              opMove,
	bytecode.OpCopy:              opCopy,
	bytecode.OpSwap:              opSwap,
	bytecode.OpDelete:            opDelete,
	bytecode.OpPtr:               opPtr,
	bytecode.OpVpush:             opVpush,
	bytecode.OpVpop:              opVpop,
	bytecode.OpVat:               opVat,
	bytecode.OpVlen:              opVlen,
	bytecode.OpStructInsert:      opStructInsert,
	bytecode.OpStructRemove:      opStructRemove,
	bytecode.OpStructAt:          opStructAt,
	bytecode.OpStructKeys:        opStructKeys,
	bytecode.OpJump:              opJump,
	bytecode.OpIf:                opIf,
	bytecode.OpFrame:             opFrame,
	bytecode.OpParam:             opParam,
	bytecode.OpPamv:              opPamv,
	bytecode.OpAllocateRegisters: opAllocateRegisters,
	bytecode.OpCall:              opCall,
	bytecode.OpTailcall:          opTailcall,
	bytecode.OpReturn:            opReturn,
	bytecode.OpHalt:              opHalt,
	bytecode.OpPrint:             opPrint,
	bytecode.OpTry:               opTry,
	bytecode.OpCatch:             opCatch,
	bytecode.OpEnter:             opEnter,
	bytecode.OpLeave:             opLeave,
	bytecode.OpThrow:             opThrow,
	bytecode.OpDraw:              opDraw,
	bytecode.OpProcess:           opProcess,
	bytecode.OpSend:              opSend,
	bytecode.OpReceive:           opReceive,
	bytecode.OpJoin:              opJoin,
	bytecode.OpSelf:              opSelf,
	bytecode.OpImport:            opImport,
	bytecode.OpIORead:            opIORead,
	bytecode.OpIOWrite:           opIOWrite,
	bytecode.OpIOClose:           opIOClose,
	bytecode.OpIOWait:            opIOWait,
	bytecode.OpIOCancel:          opIOCancel,
}

func handlerFor(op bytecode.Opcode) handler {
	if int(op) >= len(handlers) {
		return nil
	}
	return handlers[op]
}
