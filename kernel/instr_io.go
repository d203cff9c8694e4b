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

func (p *Process) loadFd(d *decoder) (int, error) {
	op, err := d.operand()
	if err != nil {
		return 0, err
	}
	v, err := p.load(op)
	if err != nil {
		return 0, err
	}
	n, ok := v.(*types.Integer)
	if !ok {
		return 0, throwNew(types.TypeMismatchType, "file descriptor is %s, expected Integer", v.Type())
	}
	return int(n.Int()), nil
}

func opIORead(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	fd, err := p.loadFd(d)
	if err != nil {
		return err
	}
	limitOp, err := d.operand()
	if err != nil {
		return err
	}
	limitVal, err := p.load(limitOp)
	if err != nil {
		return err
	}
	limit, ok := limitVal.(*types.Integer)
	if !ok {
		return throwNew(types.TypeMismatchType, "read limit is %s, expected Integer", limitVal.Type())
	}
	if limit.Int() <= 0 {
		return throwNew(types.OutOfRangeType, "read limit must be positive, got %d", limit.Int())
	}
	id, err := k.io.submitRead(fd, int(limit.Int()))
	if err != nil {
		return throwNew(types.IOErrorType, "%s", err)
	}
	return p.store(dst, types.NewIORequest(id))
}

func opIOWrite(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	fd, err := p.loadFd(d)
	if err != nil {
		return err
	}
	bufOp, err := d.operand()
	if err != nil {
		return err
	}
	bufVal, err := p.load(bufOp)
	if err != nil {
		return err
	}
	buf, ok := bufVal.(*types.String)
	if !ok {
		return throwNew(types.TypeMismatchType, "write buffer is %s, expected String", bufVal.Type())
	}
	id, err := k.io.submitWrite(fd, []byte(buf.String()))
	if err != nil {
		return throwNew(types.IOErrorType, "%s", err)
	}
	return p.store(dst, types.NewIORequest(id))
}

func opIOClose(k *Kernel, p *Process, d *decoder) error {
	fd, err := p.loadFd(d)
	if err != nil {
		return err
	}
	if err := k.io.closeFd(fd); err != nil {
		return throwNew(types.IOErrorType, "%s", err)
	}
	return nil
}

func (p *Process) loadIORequest(d *decoder) (*types.IORequest, error) {
	op, err := d.operand()
	if err != nil {
		return nil, err
	}
	v, err := p.load(op)
	if err != nil {
		return nil, err
	}
	req, ok := v.(*types.IORequest)
	if !ok {
		return nil, throwNew(types.TypeMismatchType, "expected IORequest, got %s", v.Type())
	}
	return req, nil
}

func opIOWait(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	req, err := p.loadIORequest(d)
	if err != nil {
		return err
	}
	timeout, err := d.i32()
	if err != nil {
		return err
	}

	result, done, err := k.io.redeem(req.ID())
	if err != nil {
		return throwNew(types.IOErrorType, "%s", err)
	}
	if done {
		p.consumeTimeout()
		return p.store(dst, result)
	}
	if p.consumeTimeout() || timeout == 0 {
		return throwNew(types.IOErrorType, "interaction did not complete in time")
	}

	seq := p.suspend(WaitingIO)
	if !k.io.addWaiter(req.ID(), p) {
		// Completed while suspending; re-issue.
		p.wakeSeq(seq, false)
		return errSuspended
	}
	if timeout > 0 {
		k.armTimeout(p, seq, timeout)
	}
	return errSuspended
}

func opIOCancel(k *Kernel, p *Process, d *decoder) error {
	req, err := p.loadIORequest(d)
	if err != nil {
		return err
	}
	k.io.cancel(req.ID())
	return nil
}
