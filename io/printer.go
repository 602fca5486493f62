package io

import (
	"fmt"
	"io"
	"sync"
)

// Printer is a console output writing one formatted word per line.
type Printer struct {
	Writer io.Writer // Destination, may be nil to only record output.
	Base   int       // 8 or 10. Zero selects octal.

	mutex   sync.Mutex
	printed []uint16
	err     error
}

var _ Output = (*Printer)(nil)

// Rewind forgets the recorded output.
func (pr *Printer) Rewind() {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	pr.printed = nil
	pr.err = nil
}

// Print formats and writes a word.
func (pr *Printer) Print(value uint16) {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	pr.printed = append(pr.printed, value)

	if pr.Writer == nil || pr.err != nil {
		return
	}

	text, err := FormatWord(value, pr.Base)
	if err == nil {
		_, err = fmt.Fprintln(pr.Writer, text)
	}
	pr.err = err
}

// Printed returns a copy of every word printed since the last rewind.
func (pr *Printer) Printed() []uint16 {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	return append([]uint16(nil), pr.printed...)
}

// Err returns the first error encountered while writing.
func (pr *Printer) Err() error {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()

	return pr.err
}
