package cpu

import (
	"fmt"
	"iter"
	"maps"
)

// Opcode is the 6-bit operation field of an instruction word.
type Opcode uint8

// Operation codes, written in octal as in the machine reference card.
const (
	OP_HLT  = Opcode(0o00) // Halt.
	OP_LDR  = Opcode(0o01) // Load register from memory.
	OP_STR  = Opcode(0o02) // Store register to memory.
	OP_LDA  = Opcode(0o03) // Load register with address.
	OP_AMR  = Opcode(0o04) // Add memory to register.
	OP_SMR  = Opcode(0o05) // Subtract memory from register.
	OP_AIR  = Opcode(0o06) // Add immediate to register.
	OP_SIR  = Opcode(0o07) // Subtract immediate from register.
	OP_JZ   = Opcode(0o10) // Jump if zero.
	OP_JNE  = Opcode(0o11) // Jump if not equal (to zero).
	OP_JCC  = Opcode(0o12) // Jump if condition code bit set.
	OP_JMA  = Opcode(0o13) // Unconditional jump.
	OP_JSR  = Opcode(0o14) // Jump and save return address in R3.
	OP_RFS  = Opcode(0o15) // Return from subroutine.
	OP_SOB  = Opcode(0o16) // Subtract one and branch.
	OP_JGE  = Opcode(0o17) // Jump if greater than or equal (to zero).
	OP_TRAP = Opcode(0o30) // Trap.
	OP_SRC  = Opcode(0o31) // Shift register by count.
	OP_RRC  = Opcode(0o32) // Rotate register by count.
	OP_LDX  = Opcode(0o41) // Load index register from memory.
	OP_STX  = Opcode(0o42) // Store index register to memory.
	OP_IN   = Opcode(0o61) // Input from device.
	OP_OUT  = Opcode(0o62) // Output to device.
	OP_CHK  = Opcode(0o63) // Check device status.
	OP_MLT  = Opcode(0o70) // Multiply register by register.
	OP_DVD  = Opcode(0o71) // Divide register by register.
	OP_TRR  = Opcode(0o72) // Test the equality of register and register.
	OP_AND  = Opcode(0o73) // Logical and of register and register.
	OP_ORR  = Opcode(0o74) // Logical or of register and register.
	OP_NOT  = Opcode(0o75) // Logical not of register.
)

// opcodeTable maps mnemonics to operation codes.
// It is never modified after package initialization.
var opcodeTable = map[string]Opcode{
	"HLT":  OP_HLT,
	"LDR":  OP_LDR,
	"STR":  OP_STR,
	"LDA":  OP_LDA,
	"AMR":  OP_AMR,
	"SMR":  OP_SMR,
	"AIR":  OP_AIR,
	"SIR":  OP_SIR,
	"JZ":   OP_JZ,
	"JNE":  OP_JNE,
	"JCC":  OP_JCC,
	"JMA":  OP_JMA,
	"JSR":  OP_JSR,
	"RFS":  OP_RFS,
	"SOB":  OP_SOB,
	"JGE":  OP_JGE,
	"TRAP": OP_TRAP,
	"SRC":  OP_SRC,
	"RRC":  OP_RRC,
	"LDX":  OP_LDX,
	"STX":  OP_STX,
	"IN":   OP_IN,
	"OUT":  OP_OUT,
	"CHK":  OP_CHK,
	"MLT":  OP_MLT,
	"DVD":  OP_DVD,
	"TRR":  OP_TRR,
	"AND":  OP_AND,
	"ORR":  OP_ORR,
	"NOT":  OP_NOT,
}

// opcodeName is the reverse of opcodeTable.
var opcodeName = func() map[Opcode]string {
	names := make(map[Opcode]string, len(opcodeTable))
	for name, op := range opcodeTable {
		names[op] = name
	}
	return names
}()

// LookupOpcode returns the operation code of an upper-case mnemonic.
func LookupOpcode(mnemonic string) (op Opcode, ok bool) {
	op, ok = opcodeTable[mnemonic]
	return
}

// Opcodes iterates over all mnemonics and their operation codes.
func Opcodes() iter.Seq2[string, Opcode] {
	return maps.All(opcodeTable)
}

// Valid returns true if the operation code is in the opcode table.
func (op Opcode) Valid() bool {
	_, ok := opcodeName[op]
	return ok
}

// IsShift returns true for the operations using the shift/rotate layout.
func (op Opcode) IsShift() bool {
	return op == OP_SRC || op == OP_RRC
}

func (op Opcode) String() string {
	name, ok := opcodeName[op]
	if !ok {
		return fmt.Sprintf("?%02o", uint8(op))
	}
	return name
}

// Code is a single 16-bit instruction word.
//
// General layout:
//
//	15     10 9   8 7   6 5 4       0
//	| opcode | r   | ix  |i| address |
//
// Shift/rotate layout:
//
//	15     10 9   8 7   6 5 4 3     0
//	| opcode | r   |A/L|L/R|  | count |
type Code uint16

// MakeCode packs a general format instruction. Fields are truncated to width.
func MakeCode(op Opcode, r, ix, i, address int) Code {
	return Code((uint16(op)&0x3f)<<10 |
		(uint16(r)&0x3)<<8 |
		(uint16(ix)&0x3)<<6 |
		(uint16(i)&0x1)<<5 |
		(uint16(address) & 0x1f))
}

// MakeCodeShift packs a shift/rotate format instruction. Fields are truncated to width.
func MakeCodeShift(op Opcode, r, count, lr, al int) Code {
	return Code((uint16(op)&0x3f)<<10 |
		(uint16(r)&0x3)<<8 |
		(uint16(al)&0x1)<<7 |
		(uint16(lr)&0x1)<<6 |
		(uint16(count) & 0xf))
}

// Opcode returns the operation field, bits 15-10.
func (code Code) Opcode() Opcode {
	return Opcode((code >> 10) & 0x3f)
}

// Register returns the register field, bits 9-8.
func (code Code) Register() int {
	return int((code >> 8) & 0x3)
}

// Index returns the index register selector, bits 7-6.
// Register to register operations use the same bits for ry.
func (code Code) Index() int {
	return int((code >> 6) & 0x3)
}

// Indirect returns true if the indirect bit, bit 5, is set.
func (code Code) Indirect() bool {
	return (code>>5)&0x1 != 0
}

// Address returns the address field, bits 4-0.
func (code Code) Address() int {
	return int(code & 0x1f)
}

// Immediate returns bits 7-0 sign extended.
func (code Code) Immediate() int {
	return int(int8(code & 0xff))
}

// ShiftLogical returns true if the A/L bit, bit 7, selects a logical shift.
func (code Code) ShiftLogical() bool {
	return (code>>7)&0x1 != 0
}

// ShiftLeft returns true if the L/R bit, bit 6, selects a left shift.
func (code Code) ShiftLeft() bool {
	return (code>>6)&0x1 != 0
}

// ShiftCount returns the shift count, bits 3-0.
func (code Code) ShiftCount() int {
	return int(code & 0xf)
}

// String disassembles the instruction into assembler syntax.
func (code Code) String() string {
	op := code.Opcode()

	switch {
	case !op.Valid():
		return fmt.Sprintf("%v %06o", op, uint16(code))
	case op == OP_HLT:
		return op.String()
	case op.IsShift():
		return fmt.Sprintf("%v %d,%d,%d,%d", op, code.Register(), code.ShiftCount(), b2i(code.ShiftLeft()), b2i(code.ShiftLogical()))
	case code.Indirect():
		return fmt.Sprintf("%v %d,%d,%d,1", op, code.Register(), code.Index(), code.Address())
	}

	return fmt.Sprintf("%v %d,%d,%d", op, code.Register(), code.Index(), code.Address())
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
