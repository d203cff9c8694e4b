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

func opImport(k *Kernel, p *Process, d *decoder) error {
	name, err := d.str()
	if err != nil {
		return err
	}
	if err := k.Import(name); err != nil {
		return throwNew(types.ModuleNotFoundType, "%s", err)
	}
	return nil
}
