package io

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal returns true if the file is an interactive terminal.
func IsTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}
