// Package ui provides terminal output styling for the lanping CLI
package ui

import (
	"os"

	"golang.org/x/term"
)

// ANSI escape codes used by the renderers
const (
	Reset   = "\033[0m"
	Bold    = "\033[1m"
	Dim     = "\033[2m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
)

// Colors are on only for a terminal stdout and when NO_COLOR is unset
// (https://no-color.org/).
var colorEnabled = os.Getenv("NO_COLOR") == "" && IsTerminal(os.Stdout)

// SetNoColor turns colors off. Passing false leaves the detected setting.
func SetNoColor(disable bool) {
	if disable {
		colorEnabled = false
	}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Color wraps text in an ANSI code when colors are enabled
func Color(code, text string) string {
	if !colorEnabled {
		return text
	}
	return code + text + Reset
}
