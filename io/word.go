package io

import (
	"fmt"
	"strconv"
	"strings"
)

// base returns the numeric base, defaulting to octal.
func base(b int) (int, error) {
	switch b {
	case 0:
		return 8, nil
	case 8, 10:
		return b, nil
	default:
		return 0, ErrBaseInvalid
	}
}

// ParseWord parses a console value in the given base (8 or 10, 0 for 8).
// Negative values are stored in two's complement.
func ParseWord(text string, b int) (value uint16, err error) {
	b, err = base(b)
	if err != nil {
		return
	}

	v, err := strconv.ParseInt(strings.TrimSpace(text), b, 32)
	if err != nil || v < -0x8000 || v > 0xffff {
		err = ErrValueFormat(text)
		return
	}

	value = uint16(v)
	return
}

// FormatWord formats a word in the given base (8 or 10, 0 for 8).
func FormatWord(value uint16, b int) (text string, err error) {
	b, err = base(b)
	if err != nil {
		return
	}

	if b == 8 {
		text = fmt.Sprintf("%o", value)
	} else {
		text = fmt.Sprintf("%d", value)
	}
	return
}
