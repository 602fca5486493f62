package emulator

import (
	"errors"

	"github.com/ezrec/csim/translate"
)

var f = translate.From

var (
	ErrStepLimit = errors.New(f("step limit exceeded"))
	ErrHalted    = errors.New(f("cpu halted"))
)

// ErrRuntime indicates the location of a runtime fault.
type ErrRuntime struct {
	PC     int
	LineNo int // Source line, if known.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo > 0 {
		return f("pc %06o line %d %v", err.PC, err.LineNo, err.Err)
	}
	return f("pc %06o %v", err.PC, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
