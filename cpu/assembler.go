// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var (
	charRegexp  = regexp.MustCompile(`'\\?[^']'`)
	exprRegexp  = regexp.MustCompile(`\$\([^\$]*\)`)
	labelRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Escaped character literals.
var charEscapes = map[byte]byte{
	'\\': '\\',
	'n':  '\n',
	'r':  '\r',
	'e':  0x1b,
}

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the first line of the body.
	Args   []string // Argument names, bound as equates during expansion.
	Lines  []string // Body text.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for memory images.
//
// Labels may be referenced before they are defined; such operands are
// linked once the whole source has been read.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // Assembled lines, in source order.

	Label  map[string]int      // Map of labels to addresses.
	Equate map[string]string   // Map of equates.
	Macro  map[string](*Macro) // Map of macros.

	predefine map[string]string // Equates applied before every Parse.

	pc    int    // Location counter.
	entry string // Entry point, as a value or label.
	y     uint8  // Initial index register.
	fill  uint8  // Fill byte of unassembled memory.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = make(map[string]string)
	}
	asm.predefine[equ] = value
}

// reset prepares the assembler for a new source.
func (asm *Assembler) reset() {
	asm.Opcode = asm.Opcode[:0]
	asm.Label = make(map[string]int)
	asm.Macro = make(map[string](*Macro))

	asm.Equate = maps.Clone(sysEquate)
	maps.Insert(asm.Equate, Defines())
	maps.Insert(asm.Equate, maps.All(asm.predefine))

	asm.pc = 0
	asm.entry = ""
	asm.y = 0
	asm.fill = MEMORY_FILL
}

// Parse assembles an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.reset()

	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		lineno++

		if asm.Verbose {
			log.Printf("cpu: asm %d: %v", lineno, scanner.Text())
		}

		line, _, _ = strings.Cut(scanner.Text(), ";")
		line = strings.TrimSpace(line)

		var consumed bool
		macro, consumed, err = asm.collect(macro, line, lineno)
		if err != nil {
			return
		}
		if consumed {
			continue
		}

		err = asm.assemble(line, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	lineno, line, err = asm.link()
	if err != nil {
		return
	}

	prog, err = asm.program()

	return
}

// collect gathers .macro definitions. It returns the macro whose body is
// still being collected, and whether line was consumed.
func (asm *Assembler) collect(macro *Macro, line string, lineno int) (body *Macro, consumed bool, err error) {
	words := strings.Fields(line)
	keyword := ""
	if len(words) != 0 {
		keyword = words[0]
	}

	switch keyword {
	case ".macro":
		if macro != nil {
			err = ErrMacroNesting
			return
		}
		if len(words) < 2 {
			err = ErrMacroSyntax
			return
		}
		name := words[1]
		if _, ok := asm.Macro[name]; ok {
			err = ErrMacroDuplicate
			return
		}
		body = &Macro{LineNo: lineno + 1, Args: words[2:]}
		asm.Macro[name] = body
		consumed = true
	case ".endm":
		if macro == nil {
			err = ErrMacroLonelyEndm
		}
		consumed = true
	default:
		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			body = macro
			consumed = true
		}
	}

	return
}

// assemble expands and emits a single line.
func (asm *Assembler) assemble(line string, lineno int) (err error) {
	words, err := asm.tokenize(line, lineno)
	if err != nil {
		return
	}

	if len(words) == 0 {
		return
	}

	macro, ok := asm.Macro[words[0]]
	if ok {
		return asm.expand(words[0], macro, words[1:])
	}

	return asm.emit(words, lineno)
}

// expand assembles the body of a macro, with its arguments bound as equates.
func (asm *Assembler) expand(name string, macro *Macro, args []string) (err error) {
	if len(args) != len(macro.Args) {
		err = ErrMacroSyntax
		return
	}

	outer := maps.Clone(asm.Equate)
	defer func() { asm.Equate = outer }()

	for n, arg := range macro.Args {
		asm.Equate[arg] = args[n]
	}

	for n, body := range macro.Lines {
		lineno := macro.LineNo + n

		// '@' makes labels unique to each expansion site.
		body = strings.ReplaceAll(body, "@", fmt.Sprintf("%v_%v_", name, lineno))

		err = asm.assemble(body, lineno)
		if err != nil {
			err = &ErrSyntax{
				LineNo: lineno,
				Line:   body,
				Err:    &ErrMacro{Macro: name, Line: lineno, Err: err},
			}
			return
		}
	}

	return
}

// expandChars replaces 'c' character literals by their values.
func expandChars(line string) string {
	return charRegexp.ReplaceAllStringFunc(line, func(quoted string) string {
		char := quoted[1 : len(quoted)-1]
		if char[0] != '\\' {
			return strconv.Itoa(int(char[0]))
		}
		value, ok := charEscapes[char[1]]
		if !ok {
			return quoted
		}
		return strconv.Itoa(int(value))
	})
}

// tokenize splits a line into words, after evaluating character literals,
// $(...) expressions, .equ definitions, equates and labels.
func (asm *Assembler) tokenize(line string, lineno int) (words []string, err error) {
	asm.Equate["LINENO"] = strconv.Itoa(lineno)

	line = exprRegexp.ReplaceAllStringFunc(expandChars(line), func(expr string) string {
		value, expr_err := asm.evaluate(expr[2 : len(expr)-1])
		if expr_err != nil && err == nil {
			err = expr_err
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = strings.Fields(line)
	if len(words) == 0 {
		return
	}

	if words[0] == ".equ" {
		err = asm.equate(words[1:])
		words = nil
		return
	}

	// Replace equates, including the base of an indexed operand.
	for n, word := range words {
		base, index, indexed := strings.Cut(word, ",")
		value, ok := asm.Equate[base]
		switch {
		case !ok:
		case indexed:
			words[n] = value + "," + index
		default:
			words[n] = value
		}
	}

	for len(words) != 0 && strings.HasSuffix(words[0], ":") {
		label := strings.TrimSuffix(words[0], ":")
		if _, ok := asm.Label[label]; ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.pc
		words = words[1:]
	}

	return
}

// equate handles '.equ NAME VALUE'.
func (asm *Assembler) equate(args []string) (err error) {
	if len(args) != 2 {
		return ErrEquateSyntax
	}

	if _, ok := asm.Equate[args[0]]; ok {
		return ErrEquateDuplicate
	}

	asm.Equate[args[0]] = args[1]

	return
}

// globals returns the numeric equates and labels, for expressions.
func (asm *Assembler) globals() (dict starlark.StringDict) {
	dict = starlark.StringDict{}

	for name, addr := range asm.Label {
		dict[name] = starlark.MakeInt(addr)
	}

	// Equates shadow labels. Those that are not numbers are skipped.
	for name, text := range asm.Equate {
		value, err := asm.valueOf(text)
		if err == nil {
			dict[name] = starlark.MakeInt(int(value))
		}
	}

	return
}

// evaluate computes a $(...) expression at assembly time.
func (asm *Assembler) evaluate(expr string) (value uint16, err error) {
	thread := &starlark.Thread{Name: "asm"}

	result, err := starlark.EvalOptions(&syntax.FileOptions{}, thread, "expr", expr, asm.globals())
	if err != nil {
		return
	}

	number, ok := result.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}

	v64, ok := number.Int64()
	if !ok || v64 > 0xffff || v64 < -0x8000 {
		err = ErrValueRange
		return
	}

	value = uint16(v64)

	return
}

// valueOf returns the value of a simple word, as a 16 bit quantity.
// A leading '~' inverts the value.
func (asm *Assembler) valueOf(word string) (value uint16, err error) {
	text, invert := strings.CutPrefix(word, "~")

	if strings.HasPrefix(text, "'") {
		// Literals have been expanded by tokenize; what remains is malformed.
		err = ErrParseCharacter(strings.Trim(text, "'"))
		return
	}

	v64, err := strconv.ParseInt(text, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	if v64 > 0xffff || v64 < -0x8000 {
		err = ErrValueRange
		return
	}

	value = uint16(v64)
	if invert {
		value = ^value
	}

	return
}

// byteOf returns the value of a simple word, as an 8 bit quantity.
// Sign extended negative values are permitted.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v16, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if v16 > 0xff && v16 < 0xff80 {
		err = ErrValueRange
		return
	}

	value = uint8(v16)

	return
}

// addressOf returns the value of an address operand, or the label to
// link it to.
func (asm *Assembler) addressOf(word string) (value uint16, label string, err error) {
	value, err = asm.valueOf(word)
	if err == nil {
		return
	}

	if addr, ok := asm.Label[word]; ok {
		return uint16(addr), "", nil
	}

	if labelRegexp.MatchString(word) {
		return 0, word, nil
	}

	return
}

// directive assembles the arguments of a mnemonic or dot directive.
type directive func(asm *Assembler, args []string) (codes []uint8, label string, err error)

var directives = map[string]directive{
	".org":   (*Assembler).dotOrg,
	".entry": (*Assembler).dotEntry,
	".y":     (*Assembler).dotY,
	".fill":  (*Assembler).dotFill,
	".byte":  (*Assembler).dotByte,
	".word":  (*Assembler).dotWord,
	"nop":    (*Assembler).opNop,
	"lda":    (*Assembler).opLda,
}

// emit assembles a line of words, and records it in the listing.
func (asm *Assembler) emit(words []string, lineno int) (err error) {
	handler, ok := directives[strings.ToLower(words[0])]
	if !ok {
		return ErrInstructionInvalid
	}

	codes, label, err := handler(asm, words[1:])
	if err != nil || len(codes) == 0 {
		return
	}

	asm.Opcode = append(asm.Opcode, Opcode{
		LineNo:    lineno,
		Addr:      uint16(asm.pc),
		Words:     words,
		Bytes:     codes,
		LinkLabel: label,
	})
	asm.pc = (asm.pc + len(codes)) & (MEMORY_SIZE - 1)

	return
}

func single(args []string) (arg string, err error) {
	if len(args) != 1 {
		err = ErrOpcodeValueMissing
		return
	}
	arg = args[0]
	return
}

func (asm *Assembler) dotOrg(args []string) (codes []uint8, label string, err error) {
	arg, err := single(args)
	if err != nil {
		return
	}

	addr, err := asm.valueOf(arg)
	if err != nil {
		return
	}
	asm.pc = int(addr)

	return
}

func (asm *Assembler) dotEntry(args []string) (codes []uint8, label string, err error) {
	asm.entry, err = single(args)
	return
}

func (asm *Assembler) dotY(args []string) (codes []uint8, label string, err error) {
	arg, err := single(args)
	if err != nil {
		return
	}
	asm.y, err = asm.byteOf(arg)
	return
}

func (asm *Assembler) dotFill(args []string) (codes []uint8, label string, err error) {
	arg, err := single(args)
	if err != nil {
		return
	}
	asm.fill, err = asm.byteOf(arg)
	return
}

func (asm *Assembler) dotByte(args []string) (codes []uint8, label string, err error) {
	if len(args) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	codes = make([]uint8, len(args))
	for n, arg := range args {
		codes[n], err = asm.byteOf(arg)
		if err != nil {
			return nil, "", err
		}
	}

	return
}

// dotWord emits little endian words. Only the final word may be a
// forward reference.
func (asm *Assembler) dotWord(args []string) (codes []uint8, label string, err error) {
	if len(args) == 0 {
		err = ErrOpcodeValueMissing
		return
	}

	for n, arg := range args {
		value, link, word_err := asm.addressOf(arg)
		if word_err != nil {
			return nil, "", word_err
		}
		if len(link) != 0 {
			if n != len(args)-1 {
				return nil, "", ErrOperandInvalid
			}
			label = link
		}
		codes = append(codes, uint8(value), uint8(value>>8))
	}

	return
}

func (asm *Assembler) opNop(args []string) (codes []uint8, label string, err error) {
	if len(args) != 0 {
		err = ErrOpcodeExtraArgs
		return
	}

	codes = []uint8{OP_NOP}

	return
}

// opLda assembles 'lda ADDR,y'.
func (asm *Assembler) opLda(args []string) (codes []uint8, label string, err error) {
	switch {
	case len(args) == 0:
		err = ErrOpcodeValueMissing
		return
	case len(args) > 1:
		err = ErrOpcodeExtraArgs
		return
	}

	operand, index, indexed := strings.Cut(args[0], ",")
	if !indexed || !strings.EqualFold(index, "y") {
		err = ErrOperandInvalid
		return
	}

	addr, label, err := asm.addressOf(operand)
	if err != nil {
		return
	}

	codes = []uint8{OP_LDA_ABS_Y, uint8(addr), uint8(addr >> 8)}

	return
}

// link resolves forward references into the final two bytes of each
// referencing line. On failure it returns the offending source line.
func (asm *Assembler) link() (lineno int, line string, err error) {
	for n := range asm.Opcode {
		op := &asm.Opcode[n]
		if len(op.LinkLabel) == 0 {
			continue
		}

		addr, ok := asm.Label[op.LinkLabel]
		switch {
		case !ok:
			err = ErrLabelMissing(op.LinkLabel)
		case len(op.Bytes) < 2:
			err = ErrOperandInvalid
		}
		if err != nil {
			return op.LineNo, strings.Join(op.Words, " "), err
		}

		op.Bytes[len(op.Bytes)-2] = uint8(addr)
		op.Bytes[len(op.Bytes)-1] = uint8(addr >> 8)
	}

	return
}

// program builds the memory image and start registers.
func (asm *Assembler) program() (prog *Program, err error) {
	prog = &Program{
		Memory:  NewMemory(asm.fill),
		Y:       asm.y,
		Opcodes: slices.Clone(asm.Opcode),
	}

	if len(asm.entry) != 0 {
		if addr, ok := asm.Label[asm.entry]; ok {
			prog.Entry = uint16(addr)
		} else if prog.Entry, err = asm.valueOf(asm.entry); err != nil {
			prog = nil
			err = ErrLabelMissing(asm.entry)
			return
		}
	}

	for addr, value := range prog.Bytes() {
		prog.Memory.Write(addr, value)
	}

	if asm.Verbose {
		log.Printf("cpu: asm %d lines, entry 0x%04x", len(prog.Opcodes), prog.Entry)
	}

	return
}
