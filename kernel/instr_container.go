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

func (p *Process) loadVector(op bytecode.Operand) (*types.Vector, error) {
	v, err := p.load(op)
	if err != nil {
		return nil, err
	}
	vec, ok := v.(*types.Vector)
	if !ok {
		return nil, throwNew(types.TypeMismatchType, "vector operation on %s", v.Type())
	}
	return vec, nil
}

func (p *Process) loadStruct(op bytecode.Operand) (*types.Struct, error) {
	v, err := p.load(op)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case *types.Struct:
		return s, nil
	case *types.Object:
		return &s.Struct, nil
	}
	return nil, throwNew(types.TypeMismatchType, "struct operation on %s", v.Type())
}

func (p *Process) loadAtomKey(op bytecode.Operand) (string, error) {
	v, err := p.load(op)
	if err != nil {
		return "", err
	}
	atom, ok := v.(*types.Atom)
	if !ok {
		return "", throwNew(types.TypeMismatchType, "struct key is %s, expected Atom", v.Type())
	}
	return atom.Str(), nil
}

func opVpush(k *Kernel, p *Process, d *decoder) error {
	target, err := d.operand()
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	vec, err := p.loadVector(target)
	if err != nil {
		return err
	}
	v, err := p.take(src)
	if err != nil {
		return err
	}
	vec.Push(v)
	return nil
}

func opVpop(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	target, err := d.operand()
	if err != nil {
		return err
	}
	vec, err := p.loadVector(target)
	if err != nil {
		return err
	}
	v, err := vec.Pop()
	if err != nil {
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return p.store(dst, v)
}

func opVat(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	target, err := d.operand()
	if err != nil {
		return err
	}
	idxOp, err := d.operand()
	if err != nil {
		return err
	}
	vec, err := p.loadVector(target)
	if err != nil {
		return err
	}
	idxVal, err := p.load(idxOp)
	if err != nil {
		return err
	}
	idx, ok := idxVal.(*types.Integer)
	if !ok {
		return throwNew(types.TypeMismatchType, "vector index is %s, expected Integer", idxVal.Type())
	}
	v, err := vec.At(idx.Int())
	if err != nil {
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return p.store(dst, v.Copy())
}

func opVlen(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	target, err := d.operand()
	if err != nil {
		return err
	}
	vec, err := p.loadVector(target)
	if err != nil {
		return err
	}
	return p.store(dst, types.NewInteger(int64(vec.Len())))
}

func opStructInsert(k *Kernel, p *Process, d *decoder) error {
	target, err := d.operand()
	if err != nil {
		return err
	}
	keyOp, err := d.operand()
	if err != nil {
		return err
	}
	src, err := d.operand()
	if err != nil {
		return err
	}
	st, err := p.loadStruct(target)
	if err != nil {
		return err
	}
	key, err := p.loadAtomKey(keyOp)
	if err != nil {
		return err
	}
	v, err := p.take(src)
	if err != nil {
		return err
	}
	st.Insert(key, v)
	return nil
}

func opStructRemove(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	target, err := d.operand()
	if err != nil {
		return err
	}
	keyOp, err := d.operand()
	if err != nil {
		return err
	}
	st, err := p.loadStruct(target)
	if err != nil {
		return err
	}
	key, err := p.loadAtomKey(keyOp)
	if err != nil {
		return err
	}
	v, err := st.Remove(key)
	if err != nil {
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return p.store(dst, v)
}

func opStructAt(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	target, err := d.operand()
	if err != nil {
		return err
	}
	keyOp, err := d.operand()
	if err != nil {
		return err
	}
	st, err := p.loadStruct(target)
	if err != nil {
		return err
	}
	key, err := p.loadAtomKey(keyOp)
	if err != nil {
		return err
	}
	v, err := st.At(key)
	if err != nil {
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return p.store(dst, v.Copy())
}

func opStructKeys(k *Kernel, p *Process, d *decoder) error {
	dst, err := d.operand()
	if err != nil {
		return err
	}
	target, err := d.operand()
	if err != nil {
		return err
	}
	st, err := p.loadStruct(target)
	if err != nil {
		return err
	}
	keys := types.NewVector()
	for _, key := range st.Keys() {
		keys.Push(types.NewAtom(key))
	}
	return p.store(dst, keys)
}
