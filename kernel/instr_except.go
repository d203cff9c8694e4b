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

func opTry(k *Kernel, p *Process, d *decoder) error {
	p.tryframes = append(p.tryframes, newTryFrame(len(p.frames)))
	return nil
}

func (p *Process) topTryFrame() (*TryFrame, error) {
	if len(p.tryframes) == 0 || p.tryframes[len(p.tryframes)-1].depth != len(p.frames) {
		return nil, throwNew(types.ExceptionType, "no active try-frame")
	}
	return p.tryframes[len(p.tryframes)-1], nil
}

func opCatch(k *Kernel, p *Process, d *decoder) error {
	typeName, err := d.str()
	if err != nil {
		return err
	}
	block, err := d.str()
	if err != nil {
		return err
	}
	tf, err := p.topTryFrame()
	if err != nil {
		return err
	}
	addr, ok := k.entryFor(block)
	if !ok {
		return throwNew(types.ModuleNotFoundType, "catch block %s is not registered", block)
	}
	tf.catchers[typeName] = &Catcher{Block: block, Address: addr}
	return nil
}

func opEnter(k *Kernel, p *Process, d *decoder) error {
	block, err := d.str()
	if err != nil {
		return err
	}
	tf, err := p.topTryFrame()
	if err != nil {
		return err
	}
	addr, ok := k.entryFor(block)
	if !ok {
		return throwNew(types.ModuleNotFoundType, "block %s is not registered", block)
	}
	tf.returnAddress = d.pos
	tf.blockName = block
	p.jumpTo(addr)
	return nil
}

func opLeave(k *Kernel, p *Process, d *decoder) error {
	tf, err := p.topTryFrame()
	if err != nil {
		return err
	}
	p.tryframes = p.tryframes[:len(p.tryframes)-1]
	p.jumpTo(tf.returnAddress)
	return nil
}

func opThrow(k *Kernel, p *Process, d *decoder) error {
	src, err := d.operand()
	if err != nil {
		return err
	}
	v, err := p.take(src)
	if err != nil {
		return err
	}
	return throwValue(v)
}

func opDraw(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	if p.caught == nil {
		return throwNew(types.ExceptionType, "draw with no caught exception")
	}
	v := p.caught
	p.caught = nil
	return p.store(dst, v)
}
