// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Code is an ANSI SGR parameter.
type Code int

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"

	escape = "\033["
	final  = "m"
)

// Text attributes.
const (
	Reset Code = 0
	Bold  Code = 1
	Faint Code = 2
)

// Foreground colors.
const (
	FgRed Code = iota + 31
	FgGreen
	FgYellow
	FgBlue
	FgMagenta
	FgCyan
	FgWhite
)

// Hi-intensity foreground colors.
const (
	FgHiRed Code = iota + 91
	FgHiGreen
	FgHiYellow
	FgHiBlue
	FgHiMagenta
	FgHiCyan
	FgHiWhite
)

var enabled = capable(os.Stdout)

// Enabled reports whether colorized output is switched on for this process.
func Enabled() bool {
	return enabled
}

// SetEnabled overrides terminal detection. Mostly useful in tests.
func SetEnabled(on bool) {
	enabled = on
}

// Sequence renders the escape sequence for the given codes.
// It returns an empty string when color is disabled.
func Sequence(codes ...Code) string {
	if !enabled || len(codes) == 0 {
		return ""
	}

	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(int(c))
	}

	return escape + strings.Join(parts, ";") + final
}

// Colorize wraps str in the given codes and resets afterwards.
func Colorize(str string, codes ...Code) string {
	if !enabled {
		return str
	}

	return Sequence(codes...) + str + Sequence(Reset)
}

// capable honours NO_COLOR first, then FORCE_COLOR, then falls back to TTY detection.
func capable(f *os.File) bool {
	if os.Getenv(NoColor) != "" {
		return false
	}

	if os.Getenv(ForceColor) != "" {
		return true
	}

	return term.IsTerminal(int(f.Fd()))
}
