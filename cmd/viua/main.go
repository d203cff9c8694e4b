// Copyright 2024 The go-viua Authors
// This file is part of go-viua.
//
// go-viua is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-viua is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-viua. If not, see <http://www.gnu.org/licenses/>.

// viua is the kernel driver: it loads an executable module and runs its
// process tree to completion.
//
//	viua <executable-module> [args...]
//
// Exit status is 0 on clean termination, 1 on kernel failure, and 2 when
// the main process dies on an unhandled exception.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/inconshreveable/log15"
	"gopkg.in/urfave/cli.v1"

	"github.com/viuavm/go-viua/kernel"
	"github.com/viuavm/go-viua/loader"
)

const clientIdentifier = "viua"

var (
	schedulersVPFlag = cli.IntFlag{
		Name:  "schedulers-vp",
		Usage: "Number of bytecode scheduler threads (default: number of CPUs)",
	}
	schedulersFFIFlag = cli.IntFlag{
		Name:  "schedulers-ffi",
		Usage: "Number of FFI scheduler threads",
	}
	traceFlag = cli.BoolFlag{
		Name:  "trace",
		Usage: "Print per-opcode execution counts on exit",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=crit, 1=error, 2=warn, 3=info, 4=debug",
		Value: 2,
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = clientIdentifier
	app.Usage = "run a bytecode module on the virtual machine"
	app.ArgsUsage = "<executable-module> [args...]"
	app.Flags = []cli.Flag{
		configFileFlag,
		schedulersVPFlag,
		schedulersFFIFlag,
		traceFlag,
		verbosityFlag,
	}
	app.Commands = []cli.Command{dumpConfigCommand}
	app.Action = run
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		Fatalf("%v", err)
	}
}

func makeLogger(ctx *cli.Context) log15.Logger {
	logger := log15.New()
	lvl := log15.Lvl(ctx.GlobalInt(verbosityFlag.Name))
	if lvl > log15.LvlDebug {
		lvl = log15.LvlDebug
	}
	logger.SetHandler(log15.LvlFilterHandler(lvl, log15.StreamHandler(os.Stderr, log15.TerminalFormat())))
	return logger
}

func run(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		cli.ShowAppHelpAndExit(ctx, kernel.ExitKernelFailure)
	}
	path := ctx.Args().First()
	logger := makeLogger(ctx)

	cfg := makeConfig(ctx)
	cfg.Kernel.Logger = logger

	mod, err := loader.ParseFile(path)
	if err != nil {
		Fatalf("Failed to load module: %v", err)
	}

	k := kernel.New(cfg.Kernel)
	k.SetResolver(loader.New(logger))
	k.SetProgramArguments(ctx.Args().Tail())

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := k.Boot(name, mod); err != nil {
		Fatalf("Failed to boot %s: %v", name, err)
	}

	code, err := k.Run()
	if err != nil {
		Fatalf("Kernel failure: %v", err)
	}
	if cfg.Kernel.Trace {
		k.WriteTraceTable(os.Stderr)
	}
	if code != kernel.ExitClean {
		os.Exit(code)
	}
	return nil
}

// Fatalf formats a message to standard error and exits with the
// kernel-failure status.
func Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Fatal: "+colourise(format)+"\n", args...)
	os.Exit(kernel.ExitKernelFailure)
}
