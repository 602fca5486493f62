// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"io"
	"log"
	"maps"
	"strconv"
	"strings"
	"unicode"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	ADDRESS_LIMIT = 4096 // Size of the 12-bit address space.
)

// Directive mnemonics. Neither is in the opcode table.
const (
	DIRECTIVE_LOC  = "LOC"  // Set the location counter.
	DIRECTIVE_DATA = "DATA" // Emit one word verbatim.
)

// Instruction is a single parsed source line.
type Instruction struct {
	Label    string   // Label, if any, without the trailing ':'.
	Mnemonic string   // Upper-cased mnemonic. Empty on a label-only line.
	Operands []string // Trimmed operands. Absent operands are empty strings.
	Comment  string   // Comment text after ';'.
}

// Assembler is a two pass assembler for the csim machine.
type Assembler struct {
	Verbose bool           // If set, verbosely logs the assembler actions.
	Symbol  map[string]int // Map of labels to addresses.

	predefine map[string]int // Symbols defined before assembly.
}

// Predefine defines a symbol visible to every assembly run. Labels in the
// source take precedence over predefines.
func (asm *Assembler) Predefine(name string, value int) {
	if asm.predefine == nil {
		asm.predefine = map[string]int{name: value}
	} else {
		asm.predefine[name] = value
	}
}

// ParseLine parses a single line of source text.
// Blank lines, comment-only lines and lines starting with '#' return a nil
// instruction.
func ParseLine(line string) (instr *Instruction, err error) {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return
	}

	text, comment, _ := strings.Cut(line, ";")
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return
	}

	parsed := &Instruction{Comment: strings.TrimSpace(comment)}

	if label, rest, ok := strings.Cut(text, ":"); ok {
		label = strings.TrimSpace(label)
		if len(label) == 0 {
			err = ErrLabelEmpty
			return
		}
		if strings.ContainsFunc(label, unicode.IsSpace) {
			err = ErrLineSyntax
			return
		}
		parsed.Label = label
		text = strings.TrimSpace(rest)
	}

	if len(text) > 0 {
		mnemonic, rest := text, ""
		if n := strings.IndexFunc(text, unicode.IsSpace); n >= 0 {
			mnemonic, rest = text[:n], strings.TrimSpace(text[n:])
		}
		parsed.Mnemonic = strings.ToUpper(mnemonic)
		if len(rest) > 0 {
			parsed.Operands, err = splitOperands(rest)
			if err != nil {
				return
			}
		}
	}

	instr = parsed
	return
}

// splitOperands splits on commas outside of $(...) expressions.
func splitOperands(text string) (operands []string, err error) {
	depth := 0
	start := 0
	for n, c := range text {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				err = ErrLineSyntax
				return
			}
		case ',':
			if depth == 0 {
				operands = append(operands, strings.TrimSpace(text[start:n]))
				start = n + 1
			}
		}
	}
	if depth != 0 {
		err = ErrLineSyntax
		return
	}
	operands = append(operands, strings.TrimSpace(text[start:]))
	return
}

// isSymbol returns true if the word could be a label.
func isSymbol(word string) bool {
	for n, c := range word {
		if c == '_' || unicode.IsLetter(c) {
			continue
		}
		if n > 0 && unicode.IsDigit(c) {
			continue
		}
		return false
	}
	return len(word) > 0
}

// parenEval does compile-time $(...) evaluations.
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	defer func() {
		if err != nil {
			err = &ErrParseExpression{Expr: expr, Err: err}
		}
	}()

	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, val := range asm.predefine {
		pred[key] = starlark.MakeInt(val)
	}
	for key, val := range asm.Symbol {
		if isSymbol(key) {
			pred[key] = starlark.MakeInt(val)
		}
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrExpressionResult
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrExpressionResult
		return
	}
	value = int(st_int64)
	return
}

// valueOf returns the value of a decimal literal or $(...) expression.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if strings.HasPrefix(word, "$(") && strings.HasSuffix(word, ")") {
		return asm.parenEval(word[2 : len(word)-1])
	}

	v64, err := strconv.ParseInt(word, 10, 32)
	if err != nil {
		if isSymbol(word) {
			err = ErrUnknownSymbol(word)
		} else {
			err = ErrNumberFormat(word)
		}
		return
	}

	value = int(v64)
	return
}

// resolve returns the value of a label, predefine, or literal.
func (asm *Assembler) resolve(word string) (value int, err error) {
	if value, ok := asm.Symbol[word]; ok {
		return value, nil
	}
	if value, ok := asm.predefine[word]; ok {
		return value, nil
	}
	return asm.valueOf(word)
}

// field resolves an operand that must lie in [0, limit].
// An empty operand is zero.
func (asm *Assembler) field(word string, name string, limit int) (value int, err error) {
	if len(word) == 0 {
		return
	}

	value, err = asm.resolve(word)
	if err != nil {
		return
	}

	if value < 0 || value > limit {
		err = &ErrInvalidOperand{Field: name, Value: value}
		return
	}

	return
}

// location evaluates the operand of a LOC directive.
func (asm *Assembler) location(instr *Instruction) (counter int, err error) {
	if len(instr.Operands) != 1 || len(instr.Operands[0]) == 0 {
		err = &ErrInvalidOperand{Field: "operand count", Value: len(instr.Operands), Err: ErrOperandMissing}
		return
	}

	return asm.field(instr.Operands[0], "location", ADDRESS_LIMIT-1)
}

// data evaluates the operand of a DATA directive.
func (asm *Assembler) data(instr *Instruction) (value uint16, err error) {
	if len(instr.Operands) != 1 || len(instr.Operands[0]) == 0 {
		err = &ErrInvalidOperand{Field: "operand count", Value: len(instr.Operands), Err: ErrOperandMissing}
		return
	}

	v, err := asm.resolve(instr.Operands[0])
	if err != nil {
		return
	}
	if v < -0x8000 || v > 0xffff {
		err = &ErrInvalidOperand{Field: "data", Value: v}
		return
	}

	value = uint16(v)
	return
}

// Encode an instruction into its machine word. Labels are resolved through
// the current symbol table.
func (asm *Assembler) Encode(instr *Instruction) (code Code, err error) {
	op, ok := LookupOpcode(instr.Mnemonic)
	if !ok {
		err = ErrUnknownOpcode(instr.Mnemonic)
		return
	}

	operands := instr.Operands

	if op.IsShift() {
		if len(operands) != 4 {
			err = &ErrInvalidOperand{Field: "operand count", Value: len(operands)}
			return
		}
		var r, count, lr, al int
		if r, err = asm.field(operands[0], "register", 3); err != nil {
			return
		}
		if count, err = asm.field(operands[1], "count", 15); err != nil {
			return
		}
		if lr, err = asm.field(operands[2], "L/R", 1); err != nil {
			return
		}
		if al, err = asm.field(operands[3], "A/L", 1); err != nil {
			return
		}
		code = MakeCodeShift(op, r, count, lr, al)
		return
	}

	if len(operands) > 4 {
		err = &ErrInvalidOperand{Field: "operand count", Value: len(operands), Err: ErrOperandExtra}
		return
	}

	// r, ix, address, i
	var value [4]int
	fields := [4]struct {
		name  string
		limit int
	}{
		{"register", 3},
		{"index", 3},
		{"address", 0x1f},
		{"indirect", 1},
	}
	for n, word := range operands {
		value[n], err = asm.field(word, fields[n].name, fields[n].limit)
		if err != nil {
			return
		}
	}

	code = MakeCode(op, value[0], value[1], value[3], value[2])
	return
}

// pass1 binds every label to the location counter at its line.
func (asm *Assembler) pass1(lines []string) (counter int, err error) {
	var lineno int
	var line string

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	for lineno, line = range lines {
		lineno++

		var instr *Instruction
		instr, err = ParseLine(line)
		if err != nil {
			return
		}
		if instr == nil {
			continue
		}

		if len(instr.Label) != 0 {
			if asm.Verbose {
				log.Printf("%v: %v = %04o", lineno, instr.Label, counter)
			}
			asm.Symbol[instr.Label] = counter
		}

		switch instr.Mnemonic {
		case "":
			// Label only; binds to the next word.
		case DIRECTIVE_LOC:
			counter, err = asm.location(instr)
			if err != nil {
				return
			}
		default:
			counter++
		}
	}

	return
}

// pass2 emits the listing and load image.
func (asm *Assembler) pass2(lines []string) (prog *Program, err error) {
	var lineno int
	var line string

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	prog = &Program{}
	counter := 0

	for lineno, line = range lines {
		lineno++

		if asm.Verbose {
			log.Printf("%v: %v", lineno, line)
		}

		entry := Entry{LineNo: lineno, Source: line}

		var instr *Instruction
		instr, err = ParseLine(line)
		if err != nil {
			return
		}

		var value uint16
		var isCode bool
		switch {
		case instr == nil || len(instr.Mnemonic) == 0:
			prog.Entries = append(prog.Entries, entry)
			continue
		case instr.Mnemonic == DIRECTIVE_LOC:
			counter, err = asm.location(instr)
			if err != nil {
				return
			}
			prog.Entries = append(prog.Entries, entry)
			continue
		case instr.Mnemonic == DIRECTIVE_DATA:
			value, err = asm.data(instr)
		default:
			var code Code
			code, err = asm.Encode(instr)
			value = uint16(code)
			isCode = true
		}
		if err != nil {
			return
		}

		if counter >= ADDRESS_LIMIT {
			err = ErrLocationInvalid
			return
		}

		entry.Emitted = true
		entry.Code = isCode
		entry.Word = Word{Address: counter, Value: value}
		prog.Entries = append(prog.Entries, entry)
		counter++
	}

	prog.End = counter
	prog.Symbol = maps.Clone(asm.Symbol)

	return
}

// Parse assembles an input stream into a Program. On error no Program is
// returned.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	var lines []string

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	err = scanner.Err()
	if err != nil {
		return
	}

	if asm.Symbol == nil {
		asm.Symbol = make(map[string]int, 16)
	}
	clear(asm.Symbol)

	_, err = asm.pass1(lines)
	if err != nil {
		return
	}

	prog, err = asm.pass2(lines)
	if err != nil {
		prog = nil
		return
	}

	return
}
