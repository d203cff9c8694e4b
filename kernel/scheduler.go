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

// schedulerBatchSize bounds how many runnable processes one worker pulls
// from the shared intake queue per refill.
const schedulerBatchSize = 4

// enqueue puts a runnable process on the shared intake queue and wakes one
// bytecode worker.
func (k *Kernel) enqueue(p *Process) {
	k.runMu.Lock()
	k.runqueue = append(k.runqueue, p)
	k.runMu.Unlock()
	k.runCond.Signal()
}

// pullBatch transfers up to schedulerBatchSize processes from the shared
// queue into local, blocking until work arrives or shutdown begins.  It
// reports false when the worker should exit.
func (k *Kernel) pullBatch(local *[]*Process, block bool) bool {
	k.runMu.Lock()
	defer k.runMu.Unlock()
	if block {
		for len(k.runqueue) == 0 && !k.stopping {
			k.runCond.Wait()
		}
	}
	if len(k.runqueue) == 0 {
		return !k.stopping
	}
	n := schedulerBatchSize
	if n > len(k.runqueue) {
		n = len(k.runqueue)
	}
	*local = append(*local, k.runqueue[:n]...)
	k.runqueue = append([]*Process(nil), k.runqueue[n:]...)
	return true
}

// vpWorker is one bytecode scheduler thread: it owns a local FIFO of
// runnable processes and runs each for one quantum in round-robin order.
// Preemption is cooperative at instruction boundaries and mandatory at the
// quantum edge.
func (k *Kernel) vpWorker(id int) {
	logger := k.log.New("scheduler", id)
	logger.Debug("bytecode scheduler online")
	var local []*Process
	for {
		if len(local) == 0 {
			if !k.pullBatch(&local, true) {
				logger.Debug("bytecode scheduler offline")
				return
			}
			continue
		}
		// Keep the local queue fed so freshly spawned processes are not
		// starved by a busy worker.
		k.pullBatch(&local, false)

		p := local[0]
		local = local[1:]
		p.beginSlice()
		p.executeQuantum(k)
		if p.endSlice() {
			local = append(local, p)
		}
	}
}
