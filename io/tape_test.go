package io

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// pollWait polls until a word arrives or the tape runs out.
func pollWait(tp *Tape) (value uint16, ok bool) {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		value, ok = tp.Poll()
		if ok || tp.Exhausted() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	return
}

func TestTape_Poll(t *testing.T) {
	assert := assert.New(t)

	var prompt bytes.Buffer
	tp := &Tape{
		Input:  strings.NewReader("12 7\n\nbad 100\n"),
		Base:   10,
		Prompt: &prompt,
	}

	var got []uint16
	for {
		value, ok := pollWait(tp)
		if !ok {
			break
		}
		got = append(got, value)
	}

	assert.Equal([]uint16{12, 7, 100}, got)
	assert.True(tp.Exhausted())
	assert.NoError(tp.Err())
	assert.True(strings.HasPrefix(prompt.String(), "? "))
}

func TestTape_Octal(t *testing.T) {
	assert := assert.New(t)

	tp := &Tape{Input: strings.NewReader("17\n")}

	value, ok := pollWait(tp)
	assert.True(ok)
	assert.Equal(uint16(0o17), value)

	_, ok = pollWait(tp)
	assert.False(ok)
	assert.True(tp.Exhausted())
}
