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
	"github.com/viuavm/go-viua/bytecode"
	"github.com/viuavm/go-viua/types"
)

// ---- Constructors ----------------------------------------------------------

func opNop(k *Kernel, p *Process, d *decoder) error { return nil }

func opIzero(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewInteger(0))
}

func opInteger(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	v, err := d.i32()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewInteger(int64(v)))
}

func opFloat(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	v, err := d.f64()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewFloat(v))
}

func opString(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	s, err := d.str()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewString(s))
}

func opAtom(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	s, err := d.str()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewAtom(s))
}

func opByte(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	v, err := d.u8()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewByte(v))
}

func opVector(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewVector())
}

func opStruct(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewStruct())
}

func opObject(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	class, err := d.str()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewObject(class))
}

func opPrototype(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	name, err := d.str()
	if err != nil {
		return err
	}
	return p.store(dst, types.NewPrototype(name))
}

func opDerive(k *Kernel, p *Process, d *decoder) error {
	target, err := d.operand()
	if err != nil {
		return err
	}
	ancestor, err := d.str()
	if err != nil {
		return err
	}
	v, err := p.load(target)
	if err != nil {
		return err
	}
	proto, ok := v.(*types.Prototype)
	if !ok {
		return throwNew(types.TypeMismatchType, "derive on %s, expected Prototype", v.Type())
	}
	proto.Derive(ancestor)
	return nil
}

// ---- Data movement ---------------------------------------------------------

func opMove(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	v, err := p.take(src)
	if err != nil {
		return err
	}
	return p.store(dst, v)
}

func opCopy(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	v, err := p.load(src)
	if err != nil {
		return err
	}
	return p.store(dst, v.Copy())
}

func opSwap(k *Kernel, p *Process, d *decoder) error {
	a, err := d.operand()
	if err != nil {
		return err
	}
	b, err := d.operand()
	if err != nil {
		return err
	}
	if a.Access != bytecode.AccessDirect || b.Access != bytecode.AccessDirect {
		return throwNew(types.TypeMismatchType, "swap requires direct register operands")
	}
	if a.Set != b.Set {
		av, err := p.take(a)
		if err != nil {
			return err
		}
		bv, err := p.take(b)
		if err != nil {
			types.Destroy(av)
			return err
		}
		if err := p.store(a, bv); err != nil {
			types.Destroy(av)
			return err
		}
		return p.store(b, av)
	}
	if err := p.setFor(a.Set).Swap(int(a.Index), int(b.Index)); err != nil {
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return nil
}

func opDelete(k *Kernel, p *Process, d *decoder) error {
	target, err := d.operand()
	if err != nil {
		return err
	}
	if target.Access != bytecode.AccessDirect {
		return throwNew(types.TypeMismatchType, "delete requires a direct register operand")
	}
	if err := p.setFor(target.Set).Clear(int(target.Index)); err != nil {
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return nil
}

func opPtr(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	v, err := p.load(src)
	if err != nil {
		return err
	}
	return p.store(dst, types.NewPointer(v, p.pid))
}

func opPrint(k *Kernel, p *Process, d *decoder) error {
	src, err := d.operand()
	if err != nil {
		return err
	}
	v, err := p.load(src)
	if err != nil {
		return err
	}
	k.stdout(v.Str())
	return nil
}
