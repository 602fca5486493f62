package cpu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testProgram() *Program {
	return &Program{
		Entries: []Entry{
			{LineNo: 1, Source: "LOC 6"},
			{LineNo: 2, Source: "DATA 7", Emitted: true, Word: Word{6, 7}},
			{LineNo: 3, Source: "HLT", Emitted: true, Code: true, Word: Word{7, 0}},
			{LineNo: 4, Source: "LOC 6"},
			{LineNo: 5, Source: "DATA 9", Emitted: true, Word: Word{6, 9}},
		},
		End: 7,
	}
}

func TestProgram_Debug(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	dbg := prog.Debug(7)
	assert.NotNil(dbg)
	assert.Equal(3, dbg.LineNo)

	// Last emitter wins.
	dbg = prog.Debug(6)
	assert.NotNil(dbg)
	assert.Equal(5, dbg.LineNo)
}

func TestProgram_Debug_NotFound(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	assert.Nil(prog.Debug(10))
	assert.Nil((&Program{}).Debug(0))
}

func TestProgram_Entry(t *testing.T) {
	assert := assert.New(t)

	address, ok := testProgram().Entry()
	assert.True(ok)
	assert.Equal(7, address)

	_, ok = (&Program{}).Entry()
	assert.False(ok)
}

func TestProgram_Image(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()
	assert.Equal([]Word{{6, 7}, {7, 0}, {6, 9}}, prog.Image())

	var count int
	for range prog.Words() {
		count++
		break
	}
	assert.Equal(1, count)
}

func TestProgram_Write(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()

	var listing bytes.Buffer
	assert.NoError(prog.WriteListing(&listing))
	assert.Equal("LOC 6\n000006 000007 DATA 7\n000007 000000 HLT\nLOC 6\n000006 000011 DATA 9\n",
		listing.String())

	var load bytes.Buffer
	assert.NoError(prog.WriteLoad(&load))
	assert.Equal("000006 000007\n000007 000000\n000006 000011\n", load.String())
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestProgram_WriteError(t *testing.T) {
	assert := assert.New(t)

	prog := testProgram()
	assert.Error(prog.WriteListing(failWriter{}))
	assert.Error(prog.WriteLoad(failWriter{}))
}
