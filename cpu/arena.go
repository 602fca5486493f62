package cpu

import (
	"strings"
)

// Reg is the index of a register in the register arena.
type Reg int

const (
	REG_PC  = Reg(iota) // Program counter.
	REG_IR              // Instruction register.
	REG_MAR             // Memory address register.
	REG_MBR             // Memory buffer register.
	REG_CC              // Condition code.
	REG_MFR             // Machine fault register.
	REG_R0              // General purpose register 0.
	REG_R1              // General purpose register 1.
	REG_R2              // General purpose register 2.
	REG_R3              // General purpose register 3, subroutine linkage.
	REG_X1              // Index register 1.
	REG_X2              // Index register 2.
	REG_X3              // Index register 3.

	REG_COUNT // Number of registers in the arena.
)

var regMask = [REG_COUNT]uint16{
	REG_PC:  0x0fff,
	REG_IR:  0xffff,
	REG_MAR: 0x0fff,
	REG_MBR: 0xffff,
	REG_CC:  0x000f,
	REG_MFR: 0x000f,
	REG_R0:  0xffff,
	REG_R1:  0xffff,
	REG_R2:  0xffff,
	REG_R3:  0xffff,
	REG_X1:  0xffff,
	REG_X2:  0xffff,
	REG_X3:  0xffff,
}

var regName = [REG_COUNT]string{
	"PC", "IR", "MAR", "MBR", "CC", "MFR",
	"R0", "R1", "R2", "R3",
	"X1", "X2", "X3",
}

// GPR returns the general purpose register n, 0 to 3.
func GPR(n int) Reg {
	return REG_R0 + Reg(n&0x3)
}

// IXR returns the index register n, 1 to 3.
func IXR(n int) Reg {
	return REG_X1 + Reg(n-1)
}

// LookupReg finds a register by name, case insensitive.
func LookupReg(name string) (reg Reg, ok bool) {
	name = strings.ToUpper(name)
	for n, rn := range regName {
		if rn == name {
			return Reg(n), true
		}
	}
	return
}

// Mask returns the bits implemented by the register.
func (reg Reg) Mask() uint16 {
	return regMask[reg]
}

// Width returns the width of the register in bits.
func (reg Reg) Width() (width int) {
	for mask := reg.Mask(); mask != 0; mask >>= 1 {
		width++
	}
	return
}

func (reg Reg) String() string {
	if reg < 0 || reg >= REG_COUNT {
		return "?"
	}
	return regName[reg]
}

// Registers is the register arena. Every write is truncated to the width of
// the register written.
type Registers [REG_COUNT]uint16

// Get a register value.
func (regs *Registers) Get(reg Reg) uint16 {
	return regs[reg]
}

// Set a register value, discarding the bits the register does not implement.
func (regs *Registers) Set(reg Reg, value int) {
	regs[reg] = uint16(value) & regMask[reg]
}

// Reset zeroes all registers.
func (regs *Registers) Reset() {
	clear(regs[:])
}
