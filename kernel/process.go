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

	mapset "github.com/deckarep/golang-set"

	"github.com/viuavm/go-viua/bytecode"
	"github.com/viuavm/go-viua/types"
)

// State is a process's scheduling state.
type State int

const (
	// Runnable processes sit on a scheduler queue.
	Runnable State = iota
	// WaitingMessage marks a process suspended in receive.
	WaitingMessage
	// WaitingFFI marks a process suspended in a native call.
	WaitingFFI
	// WaitingIO marks a process suspended in io_wait.
	WaitingIO
	// WaitingJoin marks a process suspended joining another process.
	WaitingJoin
	// Finished marks a cleanly terminated process.
	Finished
	// Crashed marks a process terminated by an unhandled exception.
	Crashed
)

// String returns the state's name for logging.
func (s State) String() string {
	switch s {
	case Runnable:
		return "runnable"
	case WaitingMessage:
		return "waiting-message"
	case WaitingFFI:
		return "waiting-ffi"
	case WaitingIO:
		return "waiting-io"
	case WaitingJoin:
		return "waiting-join"
	case Finished:
		return "finished"
	case Crashed:
		return "crashed"
	}
	return "unknown"
}

// Flow-control sentinels returned by instruction handlers.  The quantum loop
// interprets them; they never escape the scheduler.
var (
	errSuspended = errors.New("kernel: process suspended")
	errFinished  = errors.New("kernel: process finished")
)

// throwError carries a raised value through the handler return path into the
// unwinder.
type throwError struct {
	value types.Value
}

func (e *throwError) Error() string {
	return "kernel: uncaught " + e.value.Repr()
}

func throwValue(v types.Value) error { return &throwError{value: v} }

func throwNew(typeName, format string, args ...interface{}) error {
	return &throwError{value: types.NewExceptionOfType(typeName, fmt.Sprintf(format, args...))}
}

// decodeError marks a fatal decode failure; it terminates the process
// without consulting catchers.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }

// Process is a virtual, preemptible execution context: a call stack, a
// parallel try-frame stack, per-function static registers, an inbox, and a
// pid.
type Process struct {
	pid types.PID

	// Execution state below is owned by whichever scheduler thread is
	// currently running the process; it needs no locking.
	ip        uint64
	jumped    bool
	frames    []*Frame
	tryframes []*TryFrame
	statics   map[string]*RegisterSet

	// pendingFrame is the argument set prepared by frame/param/pamv and
	// consumed by the next call, tailcall, or process instruction.
	pendingFrame *Frame

	// caught holds the exception deposited by a fired catcher until draw
	// picks it up.
	caught types.Value

	// result is the value slot 0 of the bottom frame held on clean return.
	result types.Value

	// fatal is the unhandled exception a crashed process died with.
	fatal types.Value

	// mu guards the cross-thread fields: state, wake bookkeeping, and the
	// pending injected throw.
	mu           sync.Mutex
	state        State
	running      bool
	suspendSeq   uint64
	timeoutFired bool
	pendingThrow types.Value

	inboxMu sync.Mutex
	inbox   []types.Value

	// watchers is the set of processes suspended in join on this one.
	watchers mapset.Set
}

func newProcess(pid types.PID, bottom *Frame) *Process {
	return &Process{
		pid:      pid,
		ip:       bottom.entry,
		frames:   []*Frame{bottom},
		statics:  make(map[string]*RegisterSet),
		watchers: mapset.NewSet(),
	}
}

// Pid returns the process identifier.
func (p *Process) Pid() types.PID { return p.pid }

// StateOf returns the current scheduling state.
func (p *Process) StateOf() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Result returns the value the process returned from its bottom frame, or
// nil.
func (p *Process) Result() types.Value { return p.result }

// Fatal returns the unhandled exception a crashed process died with, or nil.
func (p *Process) Fatal() types.Value { return p.fatal }

// Depth returns the current frame-stack depth.
func (p *Process) Depth() int { return len(p.frames) }

func (p *Process) frame() *Frame { return p.frames[len(p.frames)-1] }

// staticFor returns the static register set of the named function, creating
// it on first use.  Static sets live until the process is destroyed.
func (p *Process) staticFor(function string) *RegisterSet {
	rs, ok := p.statics[function]
	if !ok {
		rs = NewRegisterSet(staticRegisterCount)
		p.statics[function] = rs
	}
	return rs
}

// staticRegisterCount is the fixed size of per-function static sets.
const staticRegisterCount = 16

// ---- Operand access --------------------------------------------------------

func (p *Process) setFor(id bytecode.RegisterSetID) *RegisterSet {
	switch id {
	case bytecode.Arguments:
		return p.frame().args
	case bytecode.Static:
		return p.staticFor(p.frame().function)
	default:
		return p.frame().local
	}
}

// load resolves an operand for reading without transferring ownership.
func (p *Process) load(op bytecode.Operand) (types.Value, error) {
	if op.Access == bytecode.AccessVoid {
		return nil, throwNew(types.TypeMismatchType, "read from void operand")
	}
	v, err := p.setFor(op.Set).At(int(op.Index))
	if err != nil {
		return nil, throwNew(types.OutOfRangeType, "%s", err)
	}
	if v == nil {
		return nil, throwNew(types.ExceptionType, "read from empty register %s %d", op.Set, op.Index)
	}
	if op.Access == bytecode.AccessPointer {
		ptr, ok := v.(*types.Pointer)
		if !ok {
			return nil, throwNew(types.TypeMismatchType, "dereference of %s, expected Pointer", v.Type())
		}
		target, err := ptr.Deref(p.pid)
		if err != nil {
			return nil, throwNew(types.StaleReferenceType, "%s", err)
		}
		return target, nil
	}
	return v, nil
}

// take resolves an operand and transfers the value out of its slot.
func (p *Process) take(op bytecode.Operand) (types.Value, error) {
	if op.Access == bytecode.AccessVoid {
		return nil, throwNew(types.TypeMismatchType, "move from void operand")
	}
	if op.Access == bytecode.AccessPointer {
		return nil, throwNew(types.TypeMismatchType, "move through pointer dereference")
	}
	rs := p.setFor(op.Set)
	v, err := rs.Pop(int(op.Index))
	if err != nil {
		return nil, throwNew(types.OutOfRangeType, "%s", err)
	}
	if v == nil {
		return nil, throwNew(types.ExceptionType, "move from empty register %s %d", op.Set, op.Index)
	}
	return v, nil
}

// store places an owned value at the operand's slot; a void operand destroys
// the value instead.
func (p *Process) store(op bytecode.Operand, v types.Value) error {
	if op.Access == bytecode.AccessVoid {
		types.Destroy(v)
		return nil
	}
	if op.Access == bytecode.AccessPointer {
		return throwNew(types.TypeMismatchType, "store through pointer dereference")
	}
	if err := p.setFor(op.Set).Set(int(op.Index), v); err != nil {
		types.Destroy(v)
		return throwNew(types.OutOfRangeType, "%s", err)
	}
	return nil
}

// ---- Inbox -----------------------------------------------------------------

// deliver appends a message to the inbox, taking ownership.
func (p *Process) deliver(msg types.Value) {
	p.inboxMu.Lock()
	p.inbox = append(p.inbox, msg)
	p.inboxMu.Unlock()
}

// peekMailbox reports whether a message is queued.
func (p *Process) peekMailbox() bool {
	p.inboxMu.Lock()
	defer p.inboxMu.Unlock()
	return len(p.inbox) > 0
}

// popMessage removes the oldest message, or returns nil.
func (p *Process) popMessage() types.Value {
	p.inboxMu.Lock()
	defer p.inboxMu.Unlock()
	if len(p.inbox) == 0 {
		return nil
	}
	msg := p.inbox[0]
	p.inbox = p.inbox[1:]
	return msg
}

// ---- Suspension and waking -------------------------------------------------

// suspend parks the process in the given waiting state.  The instruction
// pointer is expected to still address the suspending instruction when the
// caller returns errSuspended, so the instruction is re-issued on wake.
func (p *Process) suspend(state State) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	p.suspendSeq++
	p.timeoutFired = false
	return p.suspendSeq
}

// beginSlice marks the process as owned by a scheduler worker for the
// duration of one quantum.  Wakers never enqueue an owned process; its
// worker requeues it when the slice ends.
func (p *Process) beginSlice() {
	p.mu.Lock()
	p.running = true
	p.mu.Unlock()
}

// endSlice releases worker ownership and reports whether the worker must
// requeue the process itself.
func (p *Process) endSlice() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	return p.state == Runnable
}

// wakeSeq moves the process back to runnable if it is still parked in the
// suspension identified by seq, and reports whether the caller must enqueue
// it.  A timeout wake records the fact for the re-issued instruction.
func (p *Process) wakeSeq(seq uint64, timedOut bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case WaitingMessage, WaitingFFI, WaitingIO, WaitingJoin:
	default:
		return false
	}
	if seq != p.suspendSeq {
		// Stale timer; the process has been through another suspension
		// since the timer was armed.
		return false
	}
	p.state = Runnable
	p.timeoutFired = timedOut
	return !p.running
}

// wakeIfWaiting moves the process back to runnable if it is parked in the
// given waiting state, regardless of suspension sequence, and reports
// whether the caller must enqueue it.
func (p *Process) wakeIfWaiting(state State) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != state {
		return false
	}
	p.state = Runnable
	p.timeoutFired = false
	return !p.running
}

// consumeTimeout reports and clears the timeout flag set by a timer wake.
func (p *Process) consumeTimeout() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	fired := p.timeoutFired
	p.timeoutFired = false
	return fired
}

// injectThrow queues an exception raised outside the interpreter loop (by
// the FFI scheduler) for the next quantum.
func (p *Process) injectThrow(v types.Value) {
	p.mu.Lock()
	p.pendingThrow = v
	p.mu.Unlock()
}

func (p *Process) takeInjectedThrow() types.Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	v := p.pendingThrow
	p.pendingThrow = nil
	return v
}

// ---- Interpretation --------------------------------------------------------

// step fetches, decodes, and executes exactly one instruction.
func (p *Process) step(k *Kernel) error {
	d := newDecoder(k.code(), p.ip)
	opByte, err := d.u8()
	if err != nil {
		return &decodeError{err: err}
	}
	op := bytecode.Opcode(opByte)
	h := handlerFor(op)
	if h == nil {
		return &decodeError{err: fmt.Errorf("kernel: unknown opcode 0x%02x at offset %d", opByte, p.ip)}
	}
	k.countOp(op)
	if err := h(k, p, d); err != nil {
		if _, ok := err.(*throwError); !ok {
			if errors.Is(err, ErrTruncatedStream) {
				return &decodeError{err: err}
			}
		}
		return err
	}
	if p.jumped {
		p.jumped = false
	} else {
		p.ip = d.pos
	}
	return nil
}

// executeQuantum runs the process until its time slice is exhausted, it
// suspends, finishes, or dies.
func (p *Process) executeQuantum(k *Kernel) {
	if v := p.takeInjectedThrow(); v != nil {
		p.unwind(k, v)
	}
	for slice := 0; slice < k.cfg.Quantum; slice++ {
		if p.StateOf() != Runnable {
			return
		}
		err := p.step(k)
		if err == nil {
			continue
		}
		switch e := err.(type) {
		case *throwError:
			p.unwind(k, e.value)
		case *decodeError:
			p.crash(k, types.NewExceptionOfType(types.DecodeFailureType, e.err.Error()))
			return
		default:
			if errors.Is(err, errSuspended) {
				return
			}
			if errors.Is(err, errFinished) {
				p.finish(k)
				return
			}
			// Invariant violation inside a handler: kernel-fatal.
			k.fatal(fmt.Errorf("kernel: process %s: %v", p.pid, err))
			p.crash(k, types.NewExceptionOfType(types.ExceptionType, err.Error()))
			return
		}
	}
}

// jumpTo transfers control to an absolute code offset.
func (p *Process) jumpTo(addr uint64) {
	p.ip = addr
	p.jumped = true
}

// unwind implements throw: walk try-frames top-down, popping call frames as
// their try-frames are exhausted, until a catcher matches the thrown value's
// inheritance chain.
func (p *Process) unwind(k *Kernel, v types.Value) {
	chain := types.InheritanceChain(v)
	for {
		depth := len(p.frames)
		for len(p.tryframes) > 0 {
			tf := p.tryframes[len(p.tryframes)-1]
			if tf.depth < depth {
				break
			}
			if !tf.handling {
				if c := tf.match(chain); c != nil {
					tf.handling = true
					if p.caught != nil {
						types.Destroy(p.caught)
					}
					p.caught = v
					p.jumpTo(c.Address)
					return
				}
			}
			p.tryframes = p.tryframes[:len(p.tryframes)-1]
		}
		if exc, ok := v.(*types.Exception); ok {
			frame := p.frame()
			offset := uint64(0)
			if p.ip >= frame.entry {
				offset = p.ip - frame.entry
			}
			exc.AddTraceEntry(frame.function, offset)
		}
		popped := p.popFrame()
		p.ip = popped.returnAddress
		if len(p.frames) == 0 {
			p.crash(k, v)
			return
		}
	}
}

// popFrame drops the top frame and every try-frame nested in it.
func (p *Process) popFrame() *Frame {
	depth := len(p.frames)
	for len(p.tryframes) > 0 && p.tryframes[len(p.tryframes)-1].depth >= depth {
		p.tryframes = p.tryframes[:len(p.tryframes)-1]
	}
	f := p.frames[depth-1]
	p.frames = p.frames[:depth-1]
	f.drop()
	return f
}

// finish marks a clean termination; the kernel detaches the process.
func (p *Process) finish(k *Kernel) {
	p.mu.Lock()
	p.state = Finished
	p.mu.Unlock()
	k.processTerminated(p)
}

// crash marks termination by unhandled exception.
func (p *Process) crash(k *Kernel, v types.Value) {
	p.fatal = v
	p.mu.Lock()
	p.state = Crashed
	p.mu.Unlock()
	k.processTerminated(p)
}

// release destroys everything the process still owns: frames, static sets,
// and queued messages.
func (p *Process) release() {
	for len(p.frames) > 0 {
		p.popFrame()
	}
	for name, rs := range p.statics {
		rs.Drop()
		delete(p.statics, name)
	}
	if p.pendingFrame != nil {
		p.pendingFrame.drop()
		p.pendingFrame = nil
	}
	if p.caught != nil {
		types.Destroy(p.caught)
		p.caught = nil
	}
	p.inboxMu.Lock()
	for _, msg := range p.inbox {
		types.Destroy(msg)
	}
	p.inbox = nil
	p.inboxMu.Unlock()
}
