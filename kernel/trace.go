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
	"io"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/olekukonko/tablewriter"

	"github.com/viuavm/go-viua/bytecode"
)

// TraceCounts returns the executed-instruction count per opcode mnemonic.
// Counters only advance when the kernel was configured with Trace.
func (k *Kernel) TraceCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	for op := 0; op < bytecode.OpcodeCount; op++ {
		if n := atomic.LoadUint64(&k.opCounts[op]); n > 0 {
			counts[bytecode.Opcode(op).String()] = n
		}
	}
	return counts
}

// WriteTraceTable renders the execution counters as a table, busiest opcode
// first.
func (k *Kernel) WriteTraceTable(w io.Writer) {
	counts := k.TraceCounts()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Opcode", "Executed"})
	var total uint64
	for _, name := range names {
		table.Append([]string{name, strconv.FormatUint(counts[name], 10)})
		total += counts[name]
	}
	table.SetFooter([]string{"total", strconv.FormatUint(total, 10)})
	table.Render()
}
