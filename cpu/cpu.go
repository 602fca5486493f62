package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/bits"

	"github.com/ezrec/csim/io"
)

// Condition code bit indices. JCC selects one of these with its register field.
const (
	CC_OVERFLOW  = 0 // Result exceeded 16 bits.
	CC_UNDERFLOW = 1 // Result was below zero.
	CC_DIVZERO   = 2 // Division by zero attempted.
	CC_EQUAL     = 3 // TRR found both registers equal.
)

// Machine fault register bits.
const (
	FAULT_ILLEGAL_OPCODE = 1 << 0 // Opcode could not be dispatched.
	FAULT_DIVIDE         = 1 << 1 // Division by zero, when HaltOnDivide is set.
	FAULT_MEMORY         = 1 << 2 // Memory access beyond physical memory.
	FAULT_TRAP           = 1 << 3 // Illegal trap code.
)

// Device identifiers, selected by the address field of IN, OUT and CHK.
const (
	DEVICE_CONSOLE_IN  = 0  // Console keyboard.
	DEVICE_CONSOLE_OUT = 1  // Console printer.
	DEVICE_LIMIT       = 32 // Number of device slots.
)

var _cpu_defines = map[string]int{
	"CC_OVERFLOW":     CC_OVERFLOW,
	"CC_UNDERFLOW":    CC_UNDERFLOW,
	"CC_DIVZERO":      CC_DIVZERO,
	"CC_EQUAL":        CC_EQUAL,
	"DEV_CONSOLE_IN":  DEVICE_CONSOLE_IN,
	"DEV_CONSOLE_OUT": DEVICE_CONSOLE_OUT,
}

// Bus is the processor's path to memory.
type Bus interface {
	Read(address int) (value uint16, err error)
	Write(address int, value uint16) (err error)
}

// Cpu is the simulation context for the processor.
type Cpu struct {
	Verbose      bool // Set to enable verbose logging.
	HaltOnDivide bool // Set to treat division by zero as a halting fault.

	Bus      Bus       // Memory path, normally the cache.
	Register Registers // Register arena.
	Ticks    int       // Instructions executed since reset.

	halted bool
	device [DEVICE_LIMIT]io.Device
}

// NewCpu creates a new CPU attached to a memory bus.
func NewCpu(bus Bus) (cpu *Cpu) {
	cpu = &Cpu{
		Bus: bus,
	}

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, int] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	for reg := range REG_COUNT {
		val := cpu.Register.Get(reg)
		var strval string
		switch reg {
		case REG_CC, REG_MFR:
			strval = fmt.Sprintf("%04b", val)
		default:
			strval = fmt.Sprintf("%06o", val)
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	state := "running"
	if cpu.halted {
		state = "halted"
	}
	text += fmt.Sprintf("% 5s: %v\n", "state", state)

	return
}

// Reset zeroes every register and clears the halted state.
// Memory is not touched.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Register.Reset()
	cpu.halted = false
	cpu.Ticks = 0
}

// Halted returns true if the CPU has stopped.
func (cpu *Cpu) Halted() bool {
	return cpu.halted
}

// Halt stops the CPU.
func (cpu *Cpu) Halt() {
	cpu.halted = true
}

// Unhalt allows the CPU to run again. Fault bits are kept.
func (cpu *Cpu) Unhalt() {
	cpu.halted = false
}

// SetDevice attaches a device to a device slot. A nil device detaches the slot.
func (cpu *Cpu) SetDevice(id int, device io.Device) (err error) {
	if id < 0 || id >= DEVICE_LIMIT {
		err = ErrDeviceInvalid(id)
		return
	}

	cpu.device[id] = device
	return
}

// GetDevice returns the device attached to a slot, or nil.
func (cpu *Cpu) GetDevice(id int) io.Device {
	if id < 0 || id >= DEVICE_LIMIT {
		return nil
	}
	return cpu.device[id]
}

// Devices iterates over the attached devices.
func (cpu *Cpu) Devices() iter.Seq2[int, io.Device] {
	return func(yield func(id int, device io.Device) bool) {
		for id, device := range cpu.device {
			if device == nil {
				continue
			}
			if !yield(id, device) {
				return
			}
		}
	}
}

// Fault returns the faults recorded in the machine fault register.
func (cpu *Cpu) Fault() (err error) {
	mfr := cpu.Register.Get(REG_MFR)

	var errs []error
	if mfr&FAULT_ILLEGAL_OPCODE != 0 {
		errs = append(errs, ErrIllegalOpcode)
	}
	if mfr&FAULT_DIVIDE != 0 {
		errs = append(errs, ErrDivideByZero)
	}
	if mfr&FAULT_MEMORY != 0 {
		errs = append(errs, ErrMemoryFault)
	}
	if mfr&FAULT_TRAP != 0 {
		errs = append(errs, ErrIllegalTrap)
	}

	return errors.Join(errs...)
}

// fault records a fault and halts.
func (cpu *Cpu) fault(bit int, err error) {
	if cpu.Verbose {
		log.Printf("cpu: fault %04b: %v", bit, err)
	}
	cpu.Register.Set(REG_MFR, int(cpu.Register.Get(REG_MFR))|bit)
	cpu.halted = true
}

// read a word through MAR and MBR.
func (cpu *Cpu) read(address int) (value uint16, ok bool) {
	cpu.Register.Set(REG_MAR, address)
	value, err := cpu.Bus.Read(int(cpu.Register.Get(REG_MAR)))
	if err != nil {
		cpu.fault(FAULT_MEMORY, err)
		return
	}
	cpu.Register.Set(REG_MBR, int(value))
	ok = true
	return
}

// write a word through MAR and MBR.
func (cpu *Cpu) write(address int, value uint16) (ok bool) {
	cpu.Register.Set(REG_MAR, address)
	cpu.Register.Set(REG_MBR, int(value))
	err := cpu.Bus.Write(int(cpu.Register.Get(REG_MAR)), cpu.Register.Get(REG_MBR))
	if err != nil {
		cpu.fault(FAULT_MEMORY, err)
		return
	}
	ok = true
	return
}

// ManualLoad reads memory at MAR into MBR.
func (cpu *Cpu) ManualLoad() {
	cpu.read(int(cpu.Register.Get(REG_MAR)))
}

// ManualLoadPlus reads memory at MAR into MBR, then advances MAR.
func (cpu *Cpu) ManualLoadPlus() {
	mar := int(cpu.Register.Get(REG_MAR))
	if _, ok := cpu.read(mar); ok {
		cpu.Register.Set(REG_MAR, mar+1)
	}
}

// ManualStore writes MBR to memory at MAR.
func (cpu *Cpu) ManualStore() {
	cpu.write(int(cpu.Register.Get(REG_MAR)), cpu.Register.Get(REG_MBR))
}

// ManualStorePlus writes MBR to memory at MAR, then advances MAR.
func (cpu *Cpu) ManualStorePlus() {
	mar := int(cpu.Register.Get(REG_MAR))
	if cpu.write(mar, cpu.Register.Get(REG_MBR)) {
		cpu.Register.Set(REG_MAR, mar+1)
	}
}

// EffectiveAddress computes the effective address of an instruction:
// the address field, plus the selected index register, then optionally
// replaced by the word it points to.
func (cpu *Cpu) EffectiveAddress(code Code) (ea int, ok bool) {
	return cpu.effectiveAddress(code, true)
}

func (cpu *Cpu) effectiveAddress(code Code, indexed bool) (ea int, ok bool) {
	ea = code.Address()
	if ix := code.Index(); indexed && ix != 0 {
		ea += int(cpu.Register.Get(IXR(ix)))
	}

	if code.Indirect() {
		var value uint16
		value, ok = cpu.read(ea)
		if !ok {
			return
		}
		ea = int(value)
	}

	ok = true
	return
}

// Fetch reads the word at PC into IR and advances PC.
func (cpu *Cpu) Fetch() (ok bool) {
	pc := int(cpu.Register.Get(REG_PC))
	value, ok := cpu.read(pc)
	if !ok {
		return
	}

	cpu.Register.Set(REG_IR, int(value))
	cpu.Register.Set(REG_PC, pc+1)
	return
}

// Step executes a single fetch and decode-execute cycle.
// A halted CPU does nothing.
func (cpu *Cpu) Step() {
	if cpu.halted {
		return
	}

	pc := cpu.Register.Get(REG_PC)
	if !cpu.Fetch() {
		return
	}

	code := Code(cpu.Register.Get(REG_IR))
	if cpu.Verbose {
		log.Printf("%04o: %v", pc, code)
	}

	cpu.Execute(code)
	cpu.Ticks++
}

// Run steps until the CPU halts or limit steps have executed, calling
// onStep, if not nil, after every step.
func (cpu *Cpu) Run(limit int, onStep func()) (steps int) {
	for steps < limit && !cpu.halted {
		cpu.Step()
		steps++
		if onStep != nil {
			onStep()
		}
	}

	return
}

// Execute executes a single decoded instruction.
func (cpu *Cpu) Execute(code Code) {
	op := code.Opcode()

	switch op {
	case OP_HLT:
		cpu.halted = true
	case OP_LDR, OP_STR, OP_LDA, OP_LDX, OP_STX:
		cpu.executeLoadStore(op, code)
	case OP_AMR, OP_SMR, OP_AIR, OP_SIR:
		cpu.executeArithmetic(op, code)
	case OP_JZ, OP_JNE, OP_JCC, OP_JMA, OP_JSR, OP_RFS, OP_SOB, OP_JGE:
		cpu.executeTransfer(op, code)
	case OP_MLT, OP_DVD, OP_TRR, OP_AND, OP_ORR, OP_NOT:
		cpu.executeRegister(op, code)
	case OP_SRC, OP_RRC:
		cpu.executeShift(op, code)
	case OP_IN, OP_OUT, OP_CHK:
		cpu.executeIo(op, code)
	case OP_TRAP:
		cpu.fault(FAULT_TRAP, ErrIllegalTrap)
	default:
		cpu.fault(FAULT_ILLEGAL_OPCODE, ErrIllegalOpcode)
	}
}

func (cpu *Cpu) executeLoadStore(op Opcode, code Code) {
	reg := GPR(code.Register())

	// An index register can not index itself.
	indexed := true
	if op == OP_LDX || op == OP_STX {
		if code.Index() == 0 {
			cpu.fault(FAULT_ILLEGAL_OPCODE, ErrIllegalOpcode)
			return
		}
		reg = IXR(code.Index())
		indexed = false
	}

	ea, ok := cpu.effectiveAddress(code, indexed)
	if !ok {
		return
	}

	switch op {
	case OP_LDR, OP_LDX:
		value, ok := cpu.read(ea)
		if ok {
			cpu.Register.Set(reg, int(value))
		}
	case OP_STR, OP_STX:
		cpu.write(ea, cpu.Register.Get(reg))
	case OP_LDA:
		cpu.Register.Set(reg, ea)
	}
}

// setArithmetic stores a widened result and updates the overflow and
// underflow condition bits.
func (cpu *Cpu) setArithmetic(reg Reg, result int) {
	cc := int(cpu.Register.Get(REG_CC)) &^ (1<<CC_OVERFLOW | 1<<CC_UNDERFLOW)
	if result > 0xffff {
		cc |= 1 << CC_OVERFLOW
	}
	if result < 0 {
		cc |= 1 << CC_UNDERFLOW
	}
	cpu.Register.Set(REG_CC, cc)
	cpu.Register.Set(reg, result)
}

func (cpu *Cpu) executeArithmetic(op Opcode, code Code) {
	reg := GPR(code.Register())
	input := int(cpu.Register.Get(reg))

	var value int
	switch op {
	case OP_AMR, OP_SMR:
		ea, ok := cpu.effectiveAddress(code, true)
		if !ok {
			return
		}
		word, ok := cpu.read(ea)
		if !ok {
			return
		}
		value = int(word)
	case OP_AIR, OP_SIR:
		value = code.Immediate()
	}

	switch op {
	case OP_AMR, OP_AIR:
		cpu.setArithmetic(reg, input+value)
	case OP_SMR, OP_SIR:
		cpu.setArithmetic(reg, input-value)
	}
}

func (cpu *Cpu) executeTransfer(op Opcode, code Code) {
	reg := GPR(code.Register())

	if op == OP_RFS {
		cpu.Register.Set(REG_R0, code.Address())
		cpu.Register.Set(REG_PC, int(cpu.Register.Get(REG_R3)))
		return
	}

	ea, ok := cpu.effectiveAddress(code, true)
	if !ok {
		return
	}

	var jump bool
	switch op {
	case OP_JZ:
		jump = cpu.Register.Get(reg) == 0
	case OP_JNE:
		jump = cpu.Register.Get(reg) != 0
	case OP_JCC:
		jump = cpu.Register.Get(REG_CC)&(1<<code.Register()) != 0
	case OP_JMA:
		jump = true
	case OP_JSR:
		// PC has already advanced past the JSR.
		cpu.Register.Set(REG_R3, int(cpu.Register.Get(REG_PC)))
		jump = true
	case OP_SOB:
		value := int(int16(cpu.Register.Get(reg))) - 1
		cpu.Register.Set(reg, value)
		jump = value > 0
	case OP_JGE:
		jump = int16(cpu.Register.Get(reg)) >= 0
	}

	if jump {
		cpu.Register.Set(REG_PC, ea)
	}
}

func (cpu *Cpu) executeRegister(op Opcode, code Code) {
	rx := code.Register()
	ry := code.Index()
	x := cpu.Register.Get(GPR(rx))
	y := cpu.Register.Get(GPR(ry))

	// Multiply and divide use register pairs, so only R0 and R2 are allowed.
	if (op == OP_MLT || op == OP_DVD) && (rx%2 != 0 || ry%2 != 0) {
		cpu.fault(FAULT_ILLEGAL_OPCODE, ErrIllegalOpcode)
		return
	}

	switch op {
	case OP_MLT:
		product := uint32(x) * uint32(y)
		cpu.Register.Set(GPR(rx), int(product>>16))
		cpu.Register.Set(GPR(rx+1), int(product&0xffff))
	case OP_DVD:
		cc := int(cpu.Register.Get(REG_CC))
		if y == 0 {
			cpu.Register.Set(REG_CC, cc|1<<CC_DIVZERO)
			if cpu.HaltOnDivide {
				cpu.fault(FAULT_DIVIDE, ErrDivideByZero)
			}
			return
		}
		cpu.Register.Set(REG_CC, cc&^(1<<CC_DIVZERO))
		cpu.Register.Set(GPR(rx), int(x/y))
		cpu.Register.Set(GPR(rx+1), int(x%y))
	case OP_TRR:
		cc := int(cpu.Register.Get(REG_CC)) &^ (1 << CC_EQUAL)
		if x == y {
			cc |= 1 << CC_EQUAL
		}
		cpu.Register.Set(REG_CC, cc)
	case OP_AND:
		cpu.Register.Set(GPR(rx), int(x&y))
	case OP_ORR:
		cpu.Register.Set(GPR(rx), int(x|y))
	case OP_NOT:
		cpu.Register.Set(GPR(rx), int(^x))
	}
}

func (cpu *Cpu) executeShift(op Opcode, code Code) {
	reg := GPR(code.Register())
	value := cpu.Register.Get(reg)
	count := code.ShiftCount()

	switch {
	case op == OP_RRC && code.ShiftLeft():
		value = bits.RotateLeft16(value, count)
	case op == OP_RRC:
		value = bits.RotateLeft16(value, -count)
	case code.ShiftLogical() && code.ShiftLeft():
		value <<= count
	case code.ShiftLogical():
		value >>= count
	case code.ShiftLeft():
		// Arithmetic shifts keep the sign bit.
		value = (value << count & 0x7fff) | (value & 0x8000)
	default:
		value = uint16(int16(value) >> count)
	}

	cpu.Register.Set(reg, int(value))
}

func (cpu *Cpu) executeIo(op Opcode, code Code) {
	reg := GPR(code.Register())
	device := cpu.device[code.Address()]

	switch op {
	case OP_IN:
		input, ok := device.(io.Input)
		if !ok {
			return
		}
		value, ready := input.Poll()
		if !ready {
			// Not ready; execute this IN again.
			cpu.Register.Set(REG_PC, int(cpu.Register.Get(REG_PC))-1)
			return
		}
		cpu.Register.Set(reg, int(value))
	case OP_OUT:
		output, ok := device.(io.Output)
		if !ok {
			return
		}
		output.Print(cpu.Register.Get(reg))
	case OP_CHK:
		cpu.Register.Set(reg, b2i(device != nil))
	}
}
