package memory

import (
	"errors"

	"github.com/ezrec/csim/translate"
)

var f = translate.From

var (
	ErrRangeInvalid = errors.New(f("address range invalid"))
)

// ErrAddressOutOfRange is an access beyond physical memory.
type ErrAddressOutOfRange int

func (err ErrAddressOutOfRange) Error() string {
	return f("address %06o out of range", int(err))
}

// ErrLoadSyntax locates a malformed load file line.
type ErrLoadSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrLoadSyntax) Error() string {
	return f("load line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrLoadSyntax) Unwrap() error {
	return err.Err
}
