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
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/viuavm/go-viua/types"
)

// ErrIOCancelled marks an interaction aborted by io_cancel.
var ErrIOCancelled = errors.New("kernel: interaction cancelled")

// ErrUnknownInteraction is returned when redeeming a handle the scheduler
// does not track.
var ErrUnknownInteraction = errors.New("kernel: unknown I/O interaction")

type ioKind int

const (
	ioRead ioKind = iota
	ioWrite
)

// ioInteraction is one long-running I/O operation pumped by the scheduler
// until it completes, fails, or is cancelled.
type ioInteraction struct {
	id   uint64
	fd   int
	kind ioKind

	limit int    // read: byte budget
	buf   []byte // read: collected bytes; write: payload
	off   int    // write: bytes flushed so far

	done      bool
	cancelled bool
	err       error

	waiter *Process
}

// ioScheduler owns a single thread multiplexing every in-flight interaction
// with non-blocking syscalls.
type ioScheduler struct {
	k *Kernel

	mu           sync.Mutex
	interactions map[uint64]*ioInteraction
	order        []uint64
	nextID       uint64

	wake chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup
}

func newIOScheduler(k *Kernel) *ioScheduler {
	return &ioScheduler{
		k:            k,
		interactions: make(map[uint64]*ioInteraction),
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
	}
}

func (s *ioScheduler) start() {
	s.wg.Add(1)
	go s.loop()
}

func (s *ioScheduler) stop() {
	close(s.quit)
	s.wg.Wait()
}

func (s *ioScheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *ioScheduler) submit(i *ioInteraction) (uint64, error) {
	if err := unix.SetNonblock(i.fd, true); err != nil {
		return 0, fmt.Errorf("kernel: fd %d: %v", i.fd, err)
	}
	s.mu.Lock()
	s.nextID++
	i.id = s.nextID
	s.interactions[i.id] = i
	s.order = append(s.order, i.id)
	s.mu.Unlock()
	s.signal()
	return i.id, nil
}

// submitRead starts reading up to limit bytes from fd.
func (s *ioScheduler) submitRead(fd, limit int) (uint64, error) {
	return s.submit(&ioInteraction{fd: fd, kind: ioRead, limit: limit})
}

// submitWrite starts writing buf to fd.
func (s *ioScheduler) submitWrite(fd int, buf []byte) (uint64, error) {
	return s.submit(&ioInteraction{fd: fd, kind: ioWrite, buf: buf})
}

// closeFd closes a descriptor.
func (s *ioScheduler) closeFd(fd int) error {
	return unix.Close(fd)
}

// redeem returns the result of a completed interaction and forgets it.  A
// pending interaction reports done=false; the caller suspends and retries.
func (s *ioScheduler) redeem(id uint64) (types.Value, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.interactions[id]
	if !ok {
		return nil, false, ErrUnknownInteraction
	}
	if !i.done {
		return nil, false, nil
	}
	delete(s.interactions, id)
	if i.err != nil {
		return nil, false, i.err
	}
	switch i.kind {
	case ioWrite:
		return types.NewInteger(int64(i.off)), true, nil
	default:
		return types.NewString(string(i.buf)), true, nil
	}
}

// addWaiter registers p to be woken when the interaction completes.  It
// reports false if the interaction already completed or is unknown, in which
// case the caller must not stay suspended.
func (s *ioScheduler) addWaiter(id uint64, p *Process) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.interactions[id]
	if !ok || i.done {
		return false
	}
	i.waiter = p
	return true
}

// cancel marks the interaction for best-effort cancellation; the next pump
// completes it with ErrIOCancelled.
func (s *ioScheduler) cancel(id uint64) {
	s.mu.Lock()
	if i, ok := s.interactions[id]; ok && !i.done {
		i.cancelled = true
	}
	s.mu.Unlock()
	s.signal()
}

func (s *ioScheduler) loop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		pending := make([]*ioInteraction, 0, len(s.order))
		order := s.order[:0]
		for _, id := range s.order {
			if i, ok := s.interactions[id]; ok && !i.done {
				pending = append(pending, i)
				order = append(order, id)
			}
		}
		s.order = order
		s.mu.Unlock()

		if len(pending) == 0 {
			select {
			case <-s.quit:
				return
			case <-s.wake:
				continue
			}
		}

		for _, i := range pending {
			s.pump(i)
		}

		select {
		case <-s.quit:
			return
		case <-time.After(time.Millisecond):
		}
	}
}

// pump advances one interaction until it completes or would block.
func (s *ioScheduler) pump(i *ioInteraction) {
	s.mu.Lock()
	cancelled := i.cancelled
	s.mu.Unlock()

	if cancelled {
		s.complete(i, ErrIOCancelled)
		return
	}

	switch i.kind {
	case ioRead:
		tmp := make([]byte, i.limit-len(i.buf))
		n, err := unix.Read(i.fd, tmp)
		switch {
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
			return
		case err != nil:
			s.complete(i, fmt.Errorf("kernel: read on fd %d: %v", i.fd, err))
		case n == 0:
			// EOF completes with whatever arrived so far.
			s.complete(i, nil)
		default:
			i.buf = append(i.buf, tmp[:n]...)
			if len(i.buf) >= i.limit {
				s.complete(i, nil)
			}
		}
	case ioWrite:
		n, err := unix.Write(i.fd, i.buf[i.off:])
		switch {
		case err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
			return
		case err != nil:
			s.complete(i, fmt.Errorf("kernel: write on fd %d: %v", i.fd, err))
		default:
			i.off += n
			if i.off >= len(i.buf) {
				s.complete(i, nil)
			}
		}
	}
}

// complete finishes an interaction and wakes its waiter, if any.
func (s *ioScheduler) complete(i *ioInteraction, err error) {
	s.mu.Lock()
	i.done = true
	i.err = err
	waiter := i.waiter
	i.waiter = nil
	s.mu.Unlock()

	if waiter != nil && waiter.wakeIfWaiting(WaitingIO) {
		s.k.enqueue(waiter)
	}
}
