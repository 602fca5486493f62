package io

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// Tape is a console input reading whitespace separated words from a stream.
// The stream is read on a background goroutine so that Poll never blocks.
type Tape struct {
	Input  io.Reader // Source of words.
	Base   int       // 8 or 10. Zero selects octal.
	Prompt io.Writer // If set, receives a prompt before each line is read.

	once      sync.Once
	values    chan uint16
	mutex     sync.Mutex
	exhausted bool
	err       error
}

var _ Input = (*Tape)(nil)

// Rewind is not possible on a tape.
func (tp *Tape) Rewind() {
}

func (tp *Tape) start() {
	tp.values = make(chan uint16)
	go tp.read()
}

func (tp *Tape) read() {
	defer close(tp.values)

	scanner := bufio.NewScanner(tp.Input)
	for {
		if tp.Prompt != nil {
			fmt.Fprint(tp.Prompt, "? ")
		}
		if !scanner.Scan() {
			break
		}
		for _, field := range strings.Fields(scanner.Text()) {
			value, err := ParseWord(field, tp.Base)
			if err != nil {
				log.Printf("tape: %v", err)
				continue
			}
			tp.values <- value
		}
	}

	tp.mutex.Lock()
	tp.err = scanner.Err()
	tp.mutex.Unlock()
}

// Poll returns the next word if one has been read.
func (tp *Tape) Poll() (value uint16, ok bool) {
	tp.once.Do(tp.start)

	select {
	case value, ok = <-tp.values:
		if !ok {
			tp.mutex.Lock()
			tp.exhausted = true
			tp.mutex.Unlock()
		}
	default:
	}
	return
}

// Exhausted returns true once Poll has observed the end of the stream.
func (tp *Tape) Exhausted() bool {
	tp.mutex.Lock()
	defer tp.mutex.Unlock()

	return tp.exhausted
}

// Err returns the read error that ended the stream, if any.
func (tp *Tape) Err() error {
	tp.mutex.Lock()
	defer tp.mutex.Unlock()

	return tp.err
}
