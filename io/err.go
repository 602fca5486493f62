package io

import (
	"errors"

	"github.com/ezrec/csim/translate"
)

var f = translate.From

var (
	// Device errors
	ErrBaseInvalid = errors.New(f("base must be 8 or 10"))
)

// ErrValueFormat is console input that could not be parsed as a word.
type ErrValueFormat string

func (err ErrValueFormat) Error() string {
	return f("'%v' is not a word value", string(err))
}
