package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseWord(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		text  string
		base  int
		value uint16
		err   error
	}){
		{"17", 0, 0o17, nil},
		{"17", 8, 0o17, nil},
		{"17", 10, 17, nil},
		{" 5 ", 10, 5, nil},
		{"-1", 10, 0xffff, nil},
		{"65535", 10, 0xffff, nil},
		{"65536", 10, 0, ErrValueFormat("65536")},
		{"9", 8, 0, ErrValueFormat("9")},
		{"x", 10, 0, ErrValueFormat("x")},
		{"1", 16, 0, ErrBaseInvalid},
	}

	for _, entry := range table {
		value, err := ParseWord(entry.text, entry.base)
		if entry.err != nil {
			assert.ErrorIs(err, entry.err, entry.text)
			continue
		}
		assert.NoError(err, entry.text)
		assert.Equal(entry.value, value, entry.text)
	}
}

func TestFormatWord(t *testing.T) {
	assert := assert.New(t)

	text, err := FormatWord(0o1234, 8)
	assert.NoError(err)
	assert.Equal("1234", text)

	text, err = FormatWord(1234, 10)
	assert.NoError(err)
	assert.Equal("1234", text)

	_, err = FormatWord(1, 2)
	assert.ErrorIs(err, ErrBaseInvalid)
}
