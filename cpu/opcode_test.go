package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcode_Table(t *testing.T) {
	assert := assert.New(t)

	count := 0
	for name, op := range Opcodes() {
		count++
		assert.True(op.Valid(), name)
		assert.Equal(name, op.String())
		found, ok := LookupOpcode(name)
		assert.True(ok)
		assert.Equal(op, found)
	}
	assert.Equal(30, count)

	_, ok := LookupOpcode("NOP")
	assert.False(ok)
	assert.False(Opcode(0o77).Valid())
	assert.Equal("?77", Opcode(0o77).String())

	assert.True(OP_SRC.IsShift())
	assert.True(OP_RRC.IsShift())
	assert.False(OP_LDR.IsShift())
}

func TestCode_Fields(t *testing.T) {
	assert := assert.New(t)

	for _, op := range Opcodes() {
		code := MakeCode(op, 3, 2, 1, 0o27)
		assert.Equal(op, code.Opcode())
		assert.Equal(3, code.Register())
		assert.Equal(2, code.Index())
		assert.True(code.Indirect())
		assert.Equal(0o27, code.Address())
	}

	// Fields truncate to width.
	code := MakeCode(OP_LDR, 4, 5, 2, 0o40)
	assert.Equal(OP_LDR, code.Opcode())
	assert.Equal(0, code.Register())
	assert.Equal(1, code.Index())
	assert.False(code.Indirect())
	assert.Equal(0, code.Address())

	code = MakeCodeShift(OP_SRC, 2, 15, 1, 0)
	assert.Equal(OP_SRC, code.Opcode())
	assert.Equal(2, code.Register())
	assert.Equal(15, code.ShiftCount())
	assert.True(code.ShiftLeft())
	assert.False(code.ShiftLogical())

	assert.Equal(Code(0b000110_10_00_0_00101), MakeCode(OP_AIR, 2, 0, 0, 5))
	assert.Equal(5, MakeCode(OP_AIR, 2, 0, 0, 5).Immediate())
	assert.Equal(-1, Code(0xff).Immediate())
}

func TestCode_String(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		code Code
		text string
	}){
		{MakeCode(OP_HLT, 0, 0, 0, 0), "HLT"},
		{MakeCode(OP_LDR, 1, 2, 0, 10), "LDR 1,2,10"},
		{MakeCode(OP_LDR, 1, 2, 1, 10), "LDR 1,2,10,1"},
		{MakeCodeShift(OP_SRC, 0, 3, 1, 1), "SRC 0,3,1,1"},
		{MakeCodeShift(OP_RRC, 3, 15, 0, 0), "RRC 3,15,0,0"},
		{Code(0o77 << 10), "?77 176000"},
	}

	for _, entry := range table {
		assert.Equal(entry.text, entry.code.String())
	}
}
