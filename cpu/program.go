package cpu

import (
	"fmt"
	"io"
	"iter"
)

// Word is a single emitted memory word.
type Word struct {
	Address int
	Value   uint16
}

// Entry is one listing line. Lines that emit nothing (LOC, blank and
// comment-only lines) have Emitted false.
type Entry struct {
	LineNo  int
	Source  string
	Emitted bool
	Code    bool // Emitted word is an instruction, not DATA.
	Word
}

// Program is the output of an assembly run.
type Program struct {
	Entries []Entry        // Listing, in source line order.
	Symbol  map[string]int // Resolved labels.
	End     int            // Final location counter.
}

// Words iterates over the load image in emission order.
func (prog *Program) Words() iter.Seq2[int, uint16] {
	return func(yield func(address int, value uint16) bool) {
		for _, entry := range prog.Entries {
			if !entry.Emitted {
				continue
			}
			if !yield(entry.Address, entry.Value) {
				return
			}
		}
	}
}

// Entry returns the address of the first emitted instruction.
func (prog *Program) Entry() (address int, ok bool) {
	for _, entry := range prog.Entries {
		if entry.Emitted && entry.Code {
			return entry.Address, true
		}
	}
	return
}

// Image returns the load image in emission order.
func (prog *Program) Image() (image []Word) {
	for address, value := range prog.Words() {
		image = append(image, Word{Address: address, Value: value})
	}
	return
}

// Debug returns the listing entry that last emitted a word at address,
// or nil if nothing was emitted there.
func (prog *Program) Debug(address int) (entry *Entry) {
	for n := range prog.Entries {
		op := &prog.Entries[n]
		if op.Emitted && op.Address == address {
			entry = op
		}
	}
	return
}

// WriteListing writes the listing file, one line per source line.
func (prog *Program) WriteListing(w io.Writer) (err error) {
	for _, entry := range prog.Entries {
		if entry.Emitted {
			_, err = fmt.Fprintf(w, "%06o %06o %s\n", entry.Address, entry.Value, entry.Source)
		} else {
			_, err = fmt.Fprintln(w, entry.Source)
		}
		if err != nil {
			return
		}
	}
	return
}

// WriteLoad writes the load file, one octal address/value pair per emitted word.
func (prog *Program) WriteLoad(w io.Writer) (err error) {
	for address, value := range prog.Words() {
		_, err = fmt.Fprintf(w, "%06o %06o\n", address, value)
		if err != nil {
			return
		}
	}
	return
}
