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
	"strconv"
	"strings"

	"github.com/viuavm/go-viua/bytecode"
	"github.com/viuavm/go-viua/types"
)

func opJump(k *Kernel, p *Process, d *decoder) error {
	off, err := d.u64()
	if err != nil {
		return err
	}
	p.jumpTo(p.frame().entry + off)
	return nil
}

func opIf(k *Kernel, p *Process, d *decoder) error {
	cond, err := d.operand()
	if err != nil {
		return err
	}
	onTrue, err := d.u64()
	if err != nil {
		return err
	}
	onFalse, err := d.u64()
	if err != nil {
		return err
	}
	v, err := p.load(cond)
	if err != nil {
		return err
	}
	if v.Boolean() {
		p.jumpTo(p.frame().entry + onTrue)
	} else {
		p.jumpTo(p.frame().entry + onFalse)
	}
	return nil
}

func opFrame(k *Kernel, p *Process, d *decoder) error {
	n, err := d.u16()
	if err != nil {
		return err
	}
	if p.pendingFrame != nil {
		p.pendingFrame.drop()
	}
	p.pendingFrame = newFrame("", 0, NewRegisterSet(int(n)))
	return nil
}

func opParam(k *Kernel, p *Process, d *decoder) error {
	slot, err := d.u16()
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	if p.pendingFrame == nil {
		return throwNew(types.ExceptionType, "param without a prepared frame")
	}
	v, err := p.load(src)
	if err != nil {
		return err
	}
	if err := p.pendingFrame.args.Set(int(slot), v.Copy()); err != nil {
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return nil
}

func opPamv(k *Kernel, p *Process, d *decoder) error {
	slot, err := d.u16()
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	if p.pendingFrame == nil {
		return throwNew(types.ExceptionType, "pamv without a prepared frame")
	}
	v, err := p.take(src)
	if err != nil {
		return err
	}
	if err := p.pendingFrame.args.Set(int(slot), v); err != nil {
		types.Destroy(v)
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return nil
}

func opAllocateRegisters(k *Kernel, p *Process, d *decoder) error {
	n, err := d.u16()
	if err != nil {
		return err
	}
	f := p.frame()
	f.local.Drop()
	f.local = NewRegisterSet(int(n))
	return nil
}

// declaredArity parses the "/arity" suffix of a callable name; names without
// one skip the arity check.
func declaredArity(name string) (int, bool) {
	slash := strings.LastIndex(name, "/")
	if slash < 0 || slash == len(name)-1 {
		return 0, false
	}
	arity, err := strconv.Atoi(name[slash+1:])
	if err != nil || arity < 0 {
		return 0, false
	}
	return arity, true
}

// takePendingFrame consumes the prepared argument frame, substituting an
// empty one for zero-argument calls, and enforces the callee's declared
// arity.
func (p *Process) takePendingFrame(name string) (*Frame, error) {
	fr := p.pendingFrame
	p.pendingFrame = nil
	if fr == nil {
		fr = newFrame("", 0, NewRegisterSet(0))
	}
	if arity, ok := declaredArity(name); ok && fr.args.Size() != arity {
		got := fr.args.Size()
		fr.drop()
		return nil, throwNew(types.ArityMismatchType, "%s called with %d arguments", name, got)
	}
	return fr, nil
}

func opCall(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	name, err := d.str()
	if err != nil {
		return err
	}
	if dst.Access == bytecode.AccessPointer {
		return throwNew(types.TypeMismatchType, "call return target must be direct or void")
	}

	fr, err := p.takePendingFrame(name)
	if err != nil {
		return err
	}

	if fn, ok := k.foreignFor(name); ok {
		// Native call: hand the prepared frame to the FFI scheduler and
		// park until the return value comes back.
		p.ip = d.pos
		p.suspend(WaitingFFI)
		k.ffi.enqueue(&ffiRequest{
			function:       name,
			fn:             fn,
			args:           fr.args,
			caller:         p,
			targetFrame:    p.frame(),
			returnVoid:     dst.Access == bytecode.AccessVoid,
			returnRegister: int(dst.Index),
		})
		return errSuspended
	}

	entry, ok := k.entryFor(name)
	if !ok {
		fr.drop()
		return throwNew(types.ModuleNotFoundType, "call to unresolved function %s", name)
	}
	callee := newFrame(name, entry, fr.args)
	callee.returnAddress = d.pos
	callee.returnVoid = dst.Access == bytecode.AccessVoid
	callee.returnRegister = int(dst.Index)
	p.frames = append(p.frames, callee)
	p.jumpTo(entry)
	return nil
}

func opTailcall(k *Kernel, p *Process, d *decoder) error {
	name, err := d.str()
	if err != nil {
		return err
	}
	fr, err := p.takePendingFrame(name)
	if err != nil {
		return err
	}

	if fn, ok := k.foreignFor(name); ok {
		// The current frame is replaced outright, so the native return
		// value flows to whatever the current frame would have returned
		// into.
		dying := p.popFrame()
		var target *Frame
		if len(p.frames) > 0 {
			target = p.frame()
		}
		// The process resumes where the replaced frame would have
		// returned to.
		p.ip = dying.returnAddress
		p.suspend(WaitingFFI)
		k.ffi.enqueue(&ffiRequest{
			function:       name,
			fn:             fn,
			args:           fr.args,
			caller:         p,
			targetFrame:    target,
			returnVoid:     dying.returnVoid,
			returnRegister: dying.returnRegister,
		})
		return errSuspended
	}

	entry, ok := k.entryFor(name)
	if !ok {
		fr.drop()
		return throwNew(types.ModuleNotFoundType, "tailcall to unresolved function %s", name)
	}
	f := p.frame()
	f.args.Drop()
	f.local.Drop()
	f.args = fr.args
	f.local = NewRegisterSet(0)
	f.function = name
	f.entry = entry
	p.jumpTo(entry)
	return nil
}

func opReturn(k *Kernel, p *Process, d *decoder) error {
	f := p.frame()
	ret, _ := f.local.Pop(0)

	depth := len(p.frames)
	p.popFrame()
	if depth == 1 {
		p.result = ret
		return errFinished
	}
	if !f.returnVoid {
		if ret == nil {
			return throwNew(types.ExceptionType, "no return value from %s", f.function)
		}
		if err := p.frame().local.Set(f.returnRegister, ret); err != nil {
			types.Destroy(ret)
			return throwNew(types.OutOfRangeType, "%s", err)
		}
	} else if ret != nil {
		types.Destroy(ret)
	}
	p.jumpTo(f.returnAddress)
	return nil
}

func opHalt(k *Kernel, p *Process, d *decoder) error {
	return errFinished
}
