// Package memory provides the physical memory of the csim machine, and the
// cache that sits between it and the CPU.
package memory

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"log"
	"strconv"
	"strings"
)

const (
	MEMORY_SIZE = 2048 // Words of physical memory.
)

// Memory is a flat array of 16-bit words.
type Memory struct {
	word [MEMORY_SIZE]uint16
}

// NewMemory returns zeroed memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Size returns the number of words.
func (mem *Memory) Size() int {
	return len(mem.word)
}

// Reset zeroes every word.
func (mem *Memory) Reset() {
	clear(mem.word[:])
}

func (mem *Memory) check(address int) (err error) {
	if address < 0 || address >= len(mem.word) {
		err = ErrAddressOutOfRange(address)
	}
	return
}

// Read a word.
func (mem *Memory) Read(address int) (value uint16, err error) {
	err = mem.check(address)
	if err != nil {
		return
	}

	value = mem.word[address]
	return
}

// Write a word.
func (mem *Memory) Write(address int, value uint16) (err error) {
	err = mem.check(address)
	if err != nil {
		return
	}

	mem.word[address] = value
	return
}

// LoadImage stores (address, value) pairs in order. Out of range addresses
// are reported and skipped.
func (mem *Memory) LoadImage(image iter.Seq2[int, uint16]) (loaded int) {
	for address, value := range image {
		err := mem.Write(address, value)
		if err != nil {
			log.Printf("memory: load: %v", err)
			continue
		}
		loaded++
	}
	return
}

// Load reads a load file of octal 'address value' pairs, one per line.
// Blank lines, lines starting with '#', and lines with fewer than two fields
// are ignored. Out of range addresses are reported and skipped.
func (mem *Memory) Load(input io.Reader) (loaded int, err error) {
	scanner := bufio.NewScanner(input)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		text := strings.TrimSpace(line)
		if len(text) == 0 || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			continue
		}

		var address, value uint64
		address, err = strconv.ParseUint(fields[0], 8, 32)
		if err == nil {
			value, err = strconv.ParseUint(fields[1], 8, 16)
		}
		if err != nil {
			err = &ErrLoadSyntax{LineNo: lineno, Line: line, Err: err}
			return
		}

		werr := mem.Write(int(address), uint16(value))
		if werr != nil {
			log.Printf("memory: load line %d: %v", lineno, werr)
			continue
		}
		loaded++
	}

	err = scanner.Err()
	return
}

// Dump writes the words from start to end inclusive, one per line.
func (mem *Memory) Dump(w io.Writer, start, end int) (err error) {
	if start < 0 || end >= len(mem.word) || start > end {
		err = ErrRangeInvalid
		return
	}

	for address := start; address <= end; address++ {
		_, err = fmt.Fprintf(w, "%06o : %06o\n", address, mem.word[address])
		if err != nil {
			return
		}
	}
	return
}
