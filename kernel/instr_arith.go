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

// binaryOperands decodes the dst, lhs, rhs operand triple and loads both
// source values.
func binaryOperands(p *Process, d *decoder) (dst bytecode.Operand, lhs, rhs types.Value, err error) {
	if dst, err = d.operand(); err != nil {
		return
	}
	var a, b bytecode.Operand
	if a, err = d.operand(); err != nil {
		return
	}
	if b, err = d.operand(); err != nil {
		return
	}
	if lhs, err = p.load(a); err != nil {
		return
	}
	rhs, err = p.load(b)
	return
}

// arith applies a binary arithmetic operation over two Integers or two
// Floats, storing the result of the matching kind.
func arith(p *Process, d *decoder, name string,
	intOp func(a, b int64) (int64, error),
	floatOp func(a, b float64) float64) error {

	dst, lhs, rhs, err := binaryOperands(p, d)
	if err != nil {
		return err
	}
	switch l := lhs.(type) {
	case *types.Integer:
		r, ok := rhs.(*types.Integer)
		if !ok {
			return throwNew(types.TypeMismatchType, "%s of Integer and %s", name, rhs.Type())
		}
		v, err := intOp(l.Int(), r.Int())
		if err != nil {
			return err
		}
		return p.store(dst, types.NewInteger(v))
	case *types.Float:
		r, ok := rhs.(*types.Float)
		if !ok {
			return throwNew(types.TypeMismatchType, "%s of Float and %s", name, rhs.Type())
		}
		if floatOp == nil {
			return throwNew(types.TypeMismatchType, "%s is not defined for Float", name)
		}
		return p.store(dst, types.NewFloat(floatOp(l.Float(), r.Float())))
	default:
		return throwNew(types.TypeMismatchType, "%s of %s", name, lhs.Type())
	}
}

// compare applies a binary comparison over two Integers or two Floats,
// storing a Boolean.
func compare(p *Process, d *decoder, name string,
	intOp func(a, b int64) bool,
	floatOp func(a, b float64) bool) error {

	dst, lhs, rhs, err := binaryOperands(p, d)
	if err != nil {
		return err
	}
	switch l := lhs.(type) {
	case *types.Integer:
		r, ok := rhs.(*types.Integer)
		if !ok {
			return throwNew(types.TypeMismatchType, "%s of Integer and %s", name, rhs.Type())
		}
		return p.store(dst, types.NewBoolean(intOp(l.Int(), r.Int())))
	case *types.Float:
		r, ok := rhs.(*types.Float)
		if !ok {
			return throwNew(types.TypeMismatchType, "%s of Float and %s", name, rhs.Type())
		}
		return p.store(dst, types.NewBoolean(floatOp(l.Float(), r.Float())))
	default:
		return throwNew(types.TypeMismatchType, "%s of %s", name, lhs.Type())
	}
}

func opAdd(k *Kernel, p *Process, d *decoder) error {
	return arith(p, d, "add",
		func(a, b int64) (int64, error) { return a + b, nil },
		func(a, b float64) float64 { return a + b })
}

func opSub(k *Kernel, p *Process, d *decoder) error {
	return arith(p, d, "sub",
		func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b float64) float64 { return a - b })
}

func opMul(k *Kernel, p *Process, d *decoder) error {
	return arith(p, d, "mul",
		func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b float64) float64 { return a * b })
}

func opDiv(k *Kernel, p *Process, d *decoder) error {
	return arith(p, d, "div",
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, throwNew(types.ExceptionType, "division by zero")
			}
			return a / b, nil
		},
		func(a, b float64) float64 { return a / b })
}

func opMod(k *Kernel, p *Process, d *decoder) error {
	return arith(p, d, "mod",
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, throwNew(types.ExceptionType, "division by zero")
			}
			return a % b, nil
		},
		nil)
}

func opLt(k *Kernel, p *Process, d *decoder) error {
	return compare(p, d, "lt",
		func(a, b int64) bool { return a < b },
		func(a, b float64) bool { return a < b })
}

func opLte(k *Kernel, p *Process, d *decoder) error {
	return compare(p, d, "lte",
		func(a, b int64) bool { return a <= b },
		func(a, b float64) bool { return a <= b })
}

func opGt(k *Kernel, p *Process, d *decoder) error {
	return compare(p, d, "gt",
		func(a, b int64) bool { return a > b },
		func(a, b float64) bool { return a > b })
}

func opGte(k *Kernel, p *Process, d *decoder) error {
	return compare(p, d, "gte",
		func(a, b int64) bool { return a >= b },
		func(a, b float64) bool { return a >= b })
}

func opEq(k *Kernel, p *Process, d *decoder) error {
	return compare(p, d, "eq",
		func(a, b int64) bool { return a == b },
		func(a, b float64) bool { return a == b })
}

func opIinc(k *Kernel, p *Process, d *decoder) error {
	target, err := d.operand()
	if err != nil {
		return err
	}
	v, err := p.load(target)
	if err != nil {
		return err
	}
	n, ok := v.(*types.Integer)
	if !ok {
		return throwNew(types.TypeMismatchType, "iinc of %s", v.Type())
	}
	n.Increment()
	return nil
}

func opIdec(k *Kernel, p *Process, d *decoder) error {
	target, err := d.operand()
	if err != nil {
		return err
	}
	v, err := p.load(target)
	if err != nil {
		return err
	}
	n, ok := v.(*types.Integer)
	if !ok {
		return throwNew(types.TypeMismatchType, "idec of %s", v.Type())
	}
	n.Decrement()
	return nil
}
