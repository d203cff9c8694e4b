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

package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColourEnvVar selects diagnostic colouring: default, never, or always.
const ColourEnvVar = "VIUA_COLOUR"

// colourEnabled resolves the VIUA_COLOUR policy against the terminal.
func colourEnabled() bool {
	switch os.Getenv(ColourEnvVar) {
	case "never":
		return false
	case "always":
		return true
	default:
		return isatty.IsTerminal(os.Stderr.Fd())
	}
}

// colourise wraps diagnostic text in red when colouring is on.
func colourise(s string) string {
	if !colourEnabled() {
		return s
	}
	return color.New(color.FgRed).Sprint(s)
}
