package cpu

import (
	"errors"

	"github.com/ezrec/csim/translate"
)

var f = translate.From

var (
	// Runtime faults, as reported by Cpu.Fault()
	ErrIllegalOpcode = errors.New(f("illegal opcode"))
	ErrDivideByZero  = errors.New(f("divide by zero"))
	ErrMemoryFault   = errors.New(f("memory fault"))
	ErrIllegalTrap   = errors.New(f("illegal trap code"))

	// Assembler errors
	ErrLineSyntax       = errors.New(f("line syntax"))
	ErrLabelEmpty       = errors.New(f("label empty"))
	ErrOperandMissing   = errors.New(f("operand missing"))
	ErrOperandExtra     = errors.New(f("excessive operands"))
	ErrLocationInvalid  = errors.New(f("location invalid"))
	ErrExpressionResult = errors.New(f("expression is not an integer"))
)

// ErrDeviceInvalid is a device id outside of the device slots.
type ErrDeviceInvalid int

func (err ErrDeviceInvalid) Error() string {
	return f("device %d invalid", int(err))
}

// ErrUnknownOpcode is an assembler mnemonic that is not in the opcode table.
type ErrUnknownOpcode string

func (err ErrUnknownOpcode) Error() string {
	return f("unknown opcode '%v'", string(err))
}

// ErrUnknownSymbol is an operand naming a label that was never bound.
type ErrUnknownSymbol string

func (err ErrUnknownSymbol) Error() string {
	return f("unknown symbol '%v'", string(err))
}

// ErrNumberFormat is an operand that is neither a symbol nor a decimal number.
type ErrNumberFormat string

func (err ErrNumberFormat) Error() string {
	return f("'%v' is not a number", string(err))
}

// ErrInvalidOperand is an operand outside of its field's range.
type ErrInvalidOperand struct {
	Field string
	Value int
	Err   error
}

func (err *ErrInvalidOperand) Error() string {
	if err.Err != nil {
		return f("%v: %v", err.Field, err.Err)
	}
	return f("%v %d out of range", err.Field, err.Value)
}

func (err *ErrInvalidOperand) Unwrap() error {
	return err.Err
}

// ErrParseExpression is a $(...) expression that failed to evaluate.
type ErrParseExpression struct {
	Expr string
	Err  error
}

func (err *ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression: %v", err.Expr, err.Err)
}

func (err *ErrParseExpression) Unwrap() error {
	return err.Err
}

// ErrSyntax locates an assembly error in the source.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}
