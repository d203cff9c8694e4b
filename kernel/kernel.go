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

// Package kernel implements the execution runtime: the process population,
// the bytecode, FFI, and I/O schedulers, and the instruction dispatch that
// mutates per-process state.
package kernel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	mapset "github.com/deckarep/golang-set"
	lru "github.com/hashicorp/golang-lru"
	"github.com/inconshreveable/log15"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"

	"github.com/viuavm/go-viua/bytecode"
	"github.com/viuavm/go-viua/types"
)

// ErrNotExecutable is returned when booting a module without an entry
// function.
var ErrNotExecutable = errors.New("kernel: module is not executable")

// ErrNoResolver is returned when import runs without a module resolver
// configured.
var ErrNoResolver = errors.New("kernel: no module resolver configured")

// Exit codes of a finished runtime.
const (
	// ExitClean is returned on clean process-tree termination.
	ExitClean = 0
	// ExitKernelFailure is returned when the runtime itself failed.
	ExitKernelFailure = 1
	// ExitUncaught is returned when the main process died on an unhandled
	// exception.
	ExitUncaught = 2
)

// deadResultCacheSize bounds how many terminated-process results are kept
// for late joins.
const deadResultCacheSize = 1024

// maxProcesses caps the process population; spawns beyond it fail with
// resource exhaustion.
const maxProcesses = 1 << 16

// Config carries the tunables of one kernel instance.
type Config struct {
	// VPSchedulers is the bytecode worker count; defaults to NumCPU.
	VPSchedulers int
	// FFISchedulers is the native-call worker count.
	FFISchedulers int
	// Quantum is the instruction budget of one scheduling slice.
	Quantum int
	// Trace enables per-opcode execution counters.
	Trace bool
	// Stdout receives program output from the print instruction.
	Stdout io.Writer `toml:"-"`
	// Logger is the root logger; a discarding one is installed if nil.
	Logger log15.Logger `toml:"-"`
}

// DefaultConfig are the kernel defaults used by the driver.
var DefaultConfig = Config{
	VPSchedulers:  runtime.NumCPU(),
	FFISchedulers: 2,
	Quantum:       256,
}

// ModuleResolver locates a module by name and returns either its bytecode
// form or the foreign functions it exports.
type ModuleResolver interface {
	Resolve(name string) (*bytecode.Module, []ForeignExport, error)
}

// deathRecord preserves a terminated process's outcome for late joins.
type deathRecord struct {
	result types.Value
	fatal  types.Value
}

// Kernel owns every scheduler and the process registry.  All previously
// global mutable state (foreign-function map, code space, search paths)
// lives in kernel fields handed explicitly to the components using them.
type Kernel struct {
	cfg Config
	log log15.Logger

	// codeMu guards codeSpace growth and the entry map; running processes
	// read the code space through the immutable slice snapshot.
	codeMu    sync.RWMutex
	codeSpace []byte
	entries   map[string]uint64

	foreignMu sync.RWMutex
	foreign   map[string]ForeignFunction

	importMu sync.Mutex
	loaded   mapset.Set
	resolver ModuleResolver

	procMu     sync.Mutex
	processes  map[types.PID]*Process
	population int
	emitter    *types.PidEmitter
	mainPid    types.PID
	mainDeath  *deathRecord

	deadResults *lru.Cache

	runMu    sync.Mutex
	runCond  *sync.Cond
	runqueue []*Process
	stopping bool

	ffi *ffiScheduler
	io  *ioScheduler

	quiesce   sync.Once
	quiescent chan struct{}

	fatalMu  sync.Mutex
	fatalErr error

	outMu sync.Mutex

	programArgs []string

	opCounts []uint64
}

// New creates a kernel with sanitised configuration.
func New(cfg Config) *Kernel {
	logger := cfg.Logger
	if logger == nil {
		logger = log15.New()
		logger.SetHandler(log15.DiscardHandler())
	}
	if cfg.VPSchedulers < 1 {
		logger.Warn("sanitizing bytecode scheduler count", "provided", cfg.VPSchedulers, "updated", DefaultConfig.VPSchedulers)
		cfg.VPSchedulers = DefaultConfig.VPSchedulers
	}
	if cfg.FFISchedulers < 1 {
		logger.Warn("sanitizing ffi scheduler count", "provided", cfg.FFISchedulers, "updated", DefaultConfig.FFISchedulers)
		cfg.FFISchedulers = DefaultConfig.FFISchedulers
	}
	if cfg.Quantum < 1 {
		cfg.Quantum = DefaultConfig.Quantum
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}

	cache, _ := lru.New(deadResultCacheSize)
	k := &Kernel{
		cfg:         cfg,
		log:         logger,
		entries:     make(map[string]uint64),
		foreign:     make(map[string]ForeignFunction),
		loaded:      mapset.NewSet(),
		processes:   make(map[types.PID]*Process),
		emitter:     types.NewPidEmitter(),
		deadResults: cache,
		quiescent:   make(chan struct{}),
		opCounts:    make([]uint64, bytecode.OpcodeCount),
	}
	k.runCond = sync.NewCond(&k.runMu)
	k.ffi = newFFIScheduler(k)
	k.io = newIOScheduler(k)
	return k
}

// SetResolver installs the module resolver used by import.
func (k *Kernel) SetResolver(r ModuleResolver) { k.resolver = r }

// SetProgramArguments stores the command-line arguments handed to the main
// process as a Vector of Strings in argument register 0.
func (k *Kernel) SetProgramArguments(args []string) { k.programArgs = args }

// ---- Code space and symbol registries --------------------------------------

func (k *Kernel) code() []byte {
	k.codeMu.RLock()
	defer k.codeMu.RUnlock()
	return k.codeSpace
}

func (k *Kernel) entryFor(name string) (uint64, bool) {
	k.codeMu.RLock()
	defer k.codeMu.RUnlock()
	addr, ok := k.entries[name]
	return addr, ok
}

func (k *Kernel) foreignFor(name string) (ForeignFunction, bool) {
	k.foreignMu.RLock()
	defer k.foreignMu.RUnlock()
	fn, ok := k.foreign[name]
	return fn, ok
}

// AttachModule appends a module's code segment to the kernel's code space
// and merges its symbols into the function-address map.
func (k *Kernel) AttachModule(name string, mod *bytecode.Module) {
	k.codeMu.Lock()
	base := uint64(len(k.codeSpace))
	// Rebuild instead of appending in place: running processes hold the
	// previous slice and must not observe reallocation.
	grown := make([]byte, 0, len(k.codeSpace)+len(mod.Code))
	grown = append(grown, k.codeSpace...)
	grown = append(grown, mod.Code...)
	k.codeSpace = grown
	for sym, off := range mod.Symbols {
		k.entries[sym] = base + off
	}
	k.codeMu.Unlock()

	digest := sha3.Sum256(mod.Code)
	k.log.Info("module attached", "module", name, "symbols", len(mod.Symbols),
		"bytes", len(mod.Code), "digest", fmt.Sprintf("%x", digest[:8]))
}

// RegisterForeignModule merges a native module's exports into the
// foreign-function registry.
func (k *Kernel) RegisterForeignModule(name string, exports []ForeignExport) {
	k.foreignMu.Lock()
	for _, e := range exports {
		k.foreign[e.Name] = e.Fn
	}
	k.foreignMu.Unlock()
	k.log.Info("native module registered", "module", name, "functions", len(exports))
}

// Import loads the named module at most once; repeated imports are no-ops.
func (k *Kernel) Import(name string) error {
	k.importMu.Lock()
	defer k.importMu.Unlock()
	if k.loaded.Contains(name) {
		k.log.Debug("module already loaded", "module", name)
		return nil
	}
	if k.resolver == nil {
		return ErrNoResolver
	}
	mod, exports, err := k.resolver.Resolve(name)
	if err != nil {
		return err
	}
	if mod != nil {
		k.AttachModule(name, mod)
	}
	if len(exports) > 0 {
		k.RegisterForeignModule(name, exports)
	}
	k.loaded.Add(name)
	return nil
}

// MarkLoaded records a module name as loaded without resolving it; used for
// modules attached out of band.
func (k *Kernel) MarkLoaded(name string) {
	k.importMu.Lock()
	k.loaded.Add(name)
	k.importMu.Unlock()
}

// ForeignFunctionCount reports the size of the foreign registry; tests use
// it to verify import idempotence.
func (k *Kernel) ForeignFunctionCount() int {
	k.foreignMu.RLock()
	defer k.foreignMu.RUnlock()
	return len(k.foreign)
}

// ---- Process registry ------------------------------------------------------

// spawn creates a process with a bottom frame calling function at entry and
// puts it on the runqueue.
func (k *Kernel) spawn(function string, entry uint64, args *RegisterSet) (*Process, error) {
	k.procMu.Lock()
	if k.population >= maxProcesses {
		k.procMu.Unlock()
		return nil, fmt.Errorf("kernel: process population limit (%d) reached", maxProcesses)
	}
	pid := k.emitter.Emit()
	bottom := newFrame(function, entry, args)
	p := newProcess(pid, bottom)
	k.processes[pid] = p
	k.population++
	k.procMu.Unlock()

	k.log.Debug("process spawned", "pid", pid, "function", function)
	k.enqueue(p)
	return p, nil
}

// findProcess returns the live process with the given pid, or nil.
func (k *Kernel) findProcess(pid types.PID) *Process {
	k.procMu.Lock()
	defer k.procMu.Unlock()
	return k.processes[pid]
}

// deadResult returns the preserved outcome of a terminated process.
func (k *Kernel) deadResult(pid types.PID) (*deathRecord, bool) {
	if rec, ok := k.deadResults.Get(pid.String()); ok {
		return rec.(*deathRecord), true
	}
	return nil, false
}

// send delivers a message into the inbox of the process identified by pid,
// transferring ownership.  Messages to dead processes are destroyed.
func (k *Kernel) send(pid types.PID, msg types.Value) {
	target := k.findProcess(pid)
	if target == nil {
		types.Destroy(msg)
		return
	}
	target.deliver(msg)
	if target.wakeIfWaiting(WaitingMessage) {
		k.enqueue(target)
	}
}

// armTimeout schedules a timed wake-up for the suspension identified by seq.
func (k *Kernel) armTimeout(p *Process, seq uint64, ms int32) {
	time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		if p.wakeSeq(seq, true) {
			k.enqueue(p)
		}
	})
}

// processTerminated detaches a finished or crashed process: its outcome is
// preserved for joins, its watchers wake, and its resources are released.
func (k *Kernel) processTerminated(p *Process) {
	rec := &deathRecord{result: p.result, fatal: p.fatal}
	p.result = nil

	k.procMu.Lock()
	delete(k.processes, p.pid)
	k.population--
	remaining := k.population
	if p.pid == k.mainPid {
		k.mainDeath = rec
	}
	k.procMu.Unlock()

	k.deadResults.Add(p.pid.String(), rec)

	if rec.fatal != nil {
		k.log.Warn("process died on unhandled exception", "pid", p.pid, "exception", rec.fatal.Repr())
	} else {
		k.log.Debug("process finished", "pid", p.pid)
	}

	for _, w := range p.watchers.ToSlice() {
		watcher := w.(*Process)
		if watcher.wakeIfWaiting(WaitingJoin) {
			k.enqueue(watcher)
		}
	}
	p.watchers.Clear()
	p.release()

	if remaining == 0 {
		k.quiesce.Do(func() { close(k.quiescent) })
	}
}

// fatal records an invariant violation and aborts the runtime.
func (k *Kernel) fatal(err error) {
	k.fatalMu.Lock()
	if k.fatalErr == nil {
		k.fatalErr = err
	}
	k.fatalMu.Unlock()
	k.log.Crit("kernel failure", "err", err)
	k.quiesce.Do(func() { close(k.quiescent) })
}

func (k *Kernel) failure() error {
	k.fatalMu.Lock()
	defer k.fatalMu.Unlock()
	return k.fatalErr
}

// stdout writes one line of program output.
func (k *Kernel) stdout(line string) {
	k.outMu.Lock()
	fmt.Fprintln(k.cfg.Stdout, line)
	k.outMu.Unlock()
}

func (k *Kernel) countOp(op bytecode.Opcode) {
	if !k.cfg.Trace {
		return
	}
	atomic.AddUint64(&k.opCounts[op], 1)
}

// ---- Lifecycle -------------------------------------------------------------

// Boot checks that the module is executable and has an entry symbol, then
// attaches it and marks it loaded.  The main process is spawned by Run.
func (k *Kernel) Boot(name string, mod *bytecode.Module) error {
	if !mod.Executable {
		return ErrNotExecutable
	}
	if _, ok := mod.Symbols[bytecode.EntrySymbol]; !ok {
		return fmt.Errorf("%w: no %s symbol", ErrNotExecutable, bytecode.EntrySymbol)
	}
	k.AttachModule(name, mod)
	k.MarkLoaded(name)
	return nil
}

// Run spawns the main process, brings up all schedulers, and blocks until
// the process tree terminates.  It returns the process-level exit code;
// kernel-level failures are returned as an error.
func (k *Kernel) Run() (int, error) {
	entry, ok := k.entryFor(bytecode.EntrySymbol)
	if !ok {
		return ExitKernelFailure, fmt.Errorf("%w: no %s symbol", ErrNotExecutable, bytecode.EntrySymbol)
	}

	argv := types.NewVector()
	for _, arg := range k.programArgs {
		argv.Push(types.NewString(arg))
	}
	mainArgs := NewRegisterSet(1)
	if err := mainArgs.Set(0, argv); err != nil {
		return ExitKernelFailure, err
	}

	main, err := k.spawn(bytecode.EntrySymbol, entry, mainArgs)
	if err != nil {
		return ExitKernelFailure, err
	}
	k.procMu.Lock()
	k.mainPid = main.pid
	k.procMu.Unlock()

	k.log.Info("kernel booting",
		"schedulers-vp", k.cfg.VPSchedulers,
		"schedulers-ffi", k.cfg.FFISchedulers,
		"main", main.pid)

	k.io.start()
	k.ffi.start(k.cfg.FFISchedulers)

	var g errgroup.Group
	for i := 0; i < k.cfg.VPSchedulers; i++ {
		id := i
		g.Go(func() error {
			k.vpWorker(id)
			return nil
		})
	}

	<-k.quiescent

	// Shutdown joins schedulers in reverse dependency order: I/O first,
	// then FFI, then the bytecode workers.
	k.io.stop()
	k.ffi.stop()
	k.runMu.Lock()
	k.stopping = true
	k.runMu.Unlock()
	k.runCond.Broadcast()
	if err := g.Wait(); err != nil {
		return ExitKernelFailure, err
	}

	if err := k.failure(); err != nil {
		return ExitKernelFailure, err
	}

	k.procMu.Lock()
	death := k.mainDeath
	k.procMu.Unlock()
	if death != nil && death.fatal != nil {
		k.reportUncaught(death.fatal)
		return ExitUncaught, nil
	}
	k.log.Info("kernel shut down cleanly")
	return ExitClean, nil
}

// reportUncaught logs the main process's fatal exception with its throw
// trace.
func (k *Kernel) reportUncaught(v types.Value) {
	k.log.Error("uncaught exception in main process", "exception", v.Repr())
	if exc, ok := v.(*types.Exception); ok {
		for _, entry := range exc.Trace() {
			k.log.Error("  thrown through", "function", entry.Function, "offset", entry.Offset)
		}
	}
}

// MainResult returns the value the main process returned, if any.
func (k *Kernel) MainResult() types.Value {
	k.procMu.Lock()
	defer k.procMu.Unlock()
	if k.mainDeath == nil {
		return nil
	}
	return k.mainDeath.result
}
