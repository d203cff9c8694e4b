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

import "github.com/viuavm/go-viua/types"

func opProcess(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	name, err := d.str()
	if err != nil {
		return err
	}
	fr, err := p.takePendingFrame(name)
	if err != nil {
		return err
	}
	if _, foreign := k.foreignFor(name); foreign {
		fr.drop()
		return throwNew(types.TypeMismatchType, "cannot spawn a process from native function %s", name)
	}
	entry, ok := k.entryFor(name)
	if !ok {
		fr.drop()
		return throwNew(types.ModuleNotFoundType, "process spawn of unresolved function %s", name)
	}
	child, err := k.spawn(name, entry, fr.args)
	if err != nil {
		fr.drop()
		return throwNew(types.ResourceExhaustionType, "%s", err)
	}
	return p.store(dst, types.NewProc(child.pid))
}

func (p *Process) loadProc(d *decoder) (*types.Proc, error) {
	op, err := d.operand()
	if err != nil {
		return nil, err
	}
	v, err := p.load(op)
	if err != nil {
		return nil, err
	}
	proc, ok := v.(*types.Proc)
	if !ok {
		return nil, throwNew(types.TypeMismatchType, "expected Process handle, got %s", v.Type())
	}
	return proc, nil
}

func opSend(k *Kernel, p *Process, d *decoder) error {
	proc, err := p.loadProc(d)
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	msg, err := p.take(src)
	if err != nil {
		return err
	}
	k.send(proc.Pid(), msg)
	return nil
}

func opReceive(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	timeout, err := d.i32()
	if err != nil {
		return err
	}
	if msg := p.popMessage(); msg != nil {
		p.consumeTimeout()
		return p.store(dst, msg)
	}
	if p.consumeTimeout() || timeout == 0 {
		return throwNew(types.EmptyMailboxType, "no message arrived")
	}
	seq := p.suspend(WaitingMessage)
	// A message may have raced in between the inbox check and the state
	// change; the re-issued instruction will pick it up.
	if msg := p.peekMailbox(); msg {
		p.wakeSeq(seq, false)
		return errSuspended
	}
	if timeout > 0 {
		k.armTimeout(p, seq, timeout)
	}
	return errSuspended
}

func opJoin(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	proc, err := p.loadProc(d)
	if err != nil {
		return err
	}
	timeout, err := d.i32()
	if err != nil {
		return err
	}
	pid := proc.Pid()

	if p.consumeTimeout() {
		return throwNew(types.ExceptionType, "join of %s timed out", pid)
	}

	if target := k.findProcess(pid); target != nil {
		target.watchers.Add(p)
		seq := p.suspend(WaitingJoin)
		if k.findProcess(pid) == nil {
			// The target died while we were registering; re-issue.
			p.wakeSeq(seq, false)
			return errSuspended
		}
		if timeout == 0 {
			p.wakeSeq(seq, true)
			return errSuspended
		}
		if timeout > 0 {
			k.armTimeout(p, seq, timeout)
		}
		return errSuspended
	}

	rec, ok := k.deadResult(pid)
	if !ok {
		return throwNew(types.ExceptionType, "join of unknown process %s", pid)
	}
	if rec.fatal != nil {
		return throwValue(rec.fatal.Copy())
	}
	if rec.result != nil {
		return p.store(dst, rec.result.Copy())
	}
	return p.store(dst, types.NewBoolean(true))
}

func opSelf(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewProc(p.pid))
}
