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
	"sync"

	"github.com/viuavm/go-viua/types"
)

// ForeignFunction is the signature of a native callable.  It receives the
// bound argument frame, the function's static register set on the calling
// process, the calling process, and the kernel.  The returned value is
// placed per the call's return target; a non-nil error is raised in the
// caller as an exception.
type ForeignFunction func(frame *Frame, static *RegisterSet, proc *Process, k *Kernel) (types.Value, error)

// ForeignExport is one name-to-function binding contributed by a native
// module.
type ForeignExport struct {
	Name string
	Fn   ForeignFunction
}

// ffiRequest is a native call in flight: the prepared arguments plus the
// bookkeeping needed to deposit the return value back into the caller.
type ffiRequest struct {
	function string
	fn       ForeignFunction
	args     *RegisterSet
	caller   *Process

	// targetFrame receives the return value; nil when a tailcall replaced
	// the caller's bottom frame, in which case the value becomes the
	// process result.
	targetFrame    *Frame
	returnVoid     bool
	returnRegister int
}

// ffiScheduler runs native calls on a fixed worker pool, keeping blocking
// foreign code off the bytecode workers.  The FFI path is not preemptible: a
// long-running native call occupies its worker until it returns.
type ffiScheduler struct {
	k *Kernel

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*ffiRequest
	closed bool

	wg sync.WaitGroup
}

func newFFIScheduler(k *Kernel) *ffiScheduler {
	s := &ffiScheduler{k: k}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *ffiScheduler) start(workers int) {
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

func (s *ffiScheduler) stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}

func (s *ffiScheduler) enqueue(req *ffiRequest) {
	s.mu.Lock()
	s.queue = append(s.queue, req)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *ffiScheduler) worker(id int) {
	defer s.wg.Done()
	logger := s.k.log.New("ffi", id)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.closed {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		req := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		logger.Debug("dispatching native call", "function", req.function, "caller", req.caller.pid)
		s.execute(req)
	}
}

// execute runs one native call and transfers the outcome back into the
// suspended caller before waking it.
func (s *ffiScheduler) execute(req *ffiRequest) {
	frame := newFrame(req.function, 0, req.args)
	value, err := req.fn(frame, req.caller.staticFor(req.function), req.caller, s.k)
	frame.drop()

	switch {
	case err != nil:
		if value != nil {
			types.Destroy(value)
		}
		if t, ok := err.(*throwError); ok {
			req.caller.injectThrow(t.value)
		} else {
			req.caller.injectThrow(types.NewExceptionOfType(types.ExceptionType, err.Error()))
		}
	case req.targetFrame == nil:
		// A tailcall consumed the caller's bottom frame: the native
		// return value is the process result.
		req.caller.result = value
		req.caller.mu.Lock()
		req.caller.state = Finished
		req.caller.mu.Unlock()
		s.k.processTerminated(req.caller)
		return
	case req.returnVoid:
		if value != nil {
			types.Destroy(value)
		}
	case value == nil:
		req.caller.injectThrow(types.NewExceptionOfType(types.ExceptionType,
			"no return value from native function "+req.function))
	default:
		if serr := req.targetFrame.local.Set(req.returnRegister, value); serr != nil {
			types.Destroy(value)
			req.caller.injectThrow(types.NewExceptionOfType(types.OutOfRangeType, serr.Error()))
		}
	}

	if req.caller.wakeIfWaiting(WaitingFFI) {
		s.k.enqueue(req.caller)
	}
}
