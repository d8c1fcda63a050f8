package glr

import (
	"fmt"
	"unicode"
)

// ExternalVMOp is an opcode for the native-Go external tokenizer VM. This
// gives host grammars a data-driven way to express small scanners (indent
// tracking, template literals, regex-vs-division disambiguation, ...)
// without compiling a native callback, mirroring the teacher's own
// bytecode-interpreted external scanner.
type ExternalVMOp uint8

const (
	ExternalVMOpFail ExternalVMOp = iota
	ExternalVMOpJump
	ExternalVMOpRequireValid
	ExternalVMOpRequireStateEq
	ExternalVMOpIfRuneEq
	ExternalVMOpIfRuneInRange
	ExternalVMOpIfRuneClass
	ExternalVMOpAdvance
	ExternalVMOpMarkEnd
	ExternalVMOpEmit
)

// ExternalVMRuneClass is a character class used by ExternalVMOpIfRuneClass.
type ExternalVMRuneClass uint8

const (
	ExternalVMRuneClassWhitespace ExternalVMRuneClass = iota
	ExternalVMRuneClassDigit
	ExternalVMRuneClassLetter
	ExternalVMRuneClassWord
	ExternalVMRuneClassNewline
)

// ExternalVMInstr is one instruction in an external tokenizer VM program.
type ExternalVMInstr struct {
	Op  ExternalVMOp
	A   int32
	B   int32
	Alt int32
}

// ExternalVMProgram is a small bytecode program interpreted by
// ExternalVMScanner.
type ExternalVMProgram struct {
	Code     []ExternalVMInstr
	MaxSteps int // <=0 uses a safe default based on program size
}

// ExternalVMScanner executes an ExternalVMProgram and implements
// ExternalTokenizer. It reads the parser state (via RequireStateEq
// against the stack's current state), which is what makes this tokenizer
// variant contextual. RequireValid does not consult the dialect or any
// valid-symbol set: it always continues to the next instruction, and
// Emit does not check the emitted term against the dialect either.
type ExternalVMScanner struct {
	Program    ExternalVMProgram
	Contextual bool
	Fallback   bool
	Extend     bool
}

// NewExternalVMScanner validates and constructs an ExternalVMScanner.
func NewExternalVMScanner(program ExternalVMProgram) (*ExternalVMScanner, error) {
	if err := validateExternalVMProgram(program); err != nil {
		return nil, err
	}
	return &ExternalVMScanner{Program: program}, nil
}

// MustNewExternalVMScanner is like NewExternalVMScanner but panics on
// error. Intended for table-loading code where a malformed program is a
// structural (table-inconsistency) error, not a recoverable one.
func MustNewExternalVMScanner(program ExternalVMProgram) *ExternalVMScanner {
	s, err := NewExternalVMScanner(program)
	if err != nil {
		panic(err)
	}
	return s
}

func validateExternalVMProgram(program ExternalVMProgram) error {
	if len(program.Code) == 0 {
		return fmt.Errorf("%w: external vm: empty program", ErrTableInconsistent)
	}
	if program.MaxSteps < 0 {
		return fmt.Errorf("%w: external vm: max steps must be >= 0", ErrTableInconsistent)
	}
	codeLen := len(program.Code)
	for i, ins := range program.Code {
		switch ins.Op {
		case ExternalVMOpFail, ExternalVMOpMarkEnd, ExternalVMOpAdvance, ExternalVMOpEmit:
		case ExternalVMOpJump:
			if err := validateExternalVMTarget(i, ins.A, codeLen, "A"); err != nil {
				return err
			}
		case ExternalVMOpRequireValid, ExternalVMOpRequireStateEq:
			if ins.A < 0 {
				return fmt.Errorf("%w: external vm: instruction %d invalid operand %d", ErrTableInconsistent, i, ins.A)
			}
			if err := validateExternalVMTarget(i, ins.Alt, codeLen, "Alt"); err != nil {
				return err
			}
		case ExternalVMOpIfRuneEq:
			if err := validateExternalVMTarget(i, ins.Alt, codeLen, "Alt"); err != nil {
				return err
			}
		case ExternalVMOpIfRuneInRange:
			if ins.B < ins.A {
				return fmt.Errorf("%w: external vm: instruction %d invalid rune range [%d,%d]", ErrTableInconsistent, i, ins.A, ins.B)
			}
			if err := validateExternalVMTarget(i, ins.Alt, codeLen, "Alt"); err != nil {
				return err
			}
		case ExternalVMOpIfRuneClass:
			if ins.A < 0 || ins.A > int32(ExternalVMRuneClassNewline) {
				return fmt.Errorf("%w: external vm: instruction %d invalid rune class %d", ErrTableInconsistent, i, ins.A)
			}
			if err := validateExternalVMTarget(i, ins.Alt, codeLen, "Alt"); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: external vm: instruction %d unknown opcode %d", ErrTableInconsistent, i, ins.Op)
		}
	}
	return nil
}

func validateExternalVMTarget(instrIndex int, target int32, codeLen int, operand string) error {
	if target < 0 || int(target) >= codeLen {
		return fmt.Errorf("%w: external vm: instruction %d invalid %s target %d (code len %d)", ErrTableInconsistent, instrIndex, operand, target, codeLen)
	}
	return nil
}

func defaultExternalVMMaxSteps(codeLen int) int {
	steps := codeLen * 16
	if steps < 64 {
		return 64
	}
	return steps
}

func matchesExternalVMRuneClass(r rune, class ExternalVMRuneClass) bool {
	switch class {
	case ExternalVMRuneClassWhitespace:
		return unicode.IsSpace(r)
	case ExternalVMRuneClassDigit:
		return unicode.IsDigit(r)
	case ExternalVMRuneClassLetter:
		return unicode.IsLetter(r)
	case ExternalVMRuneClassWord:
		return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
	case ExternalVMRuneClassNewline:
		return r == '\n'
	default:
		return false
	}
}

// Token executes the scanner program against the stream, implementing
// ExternalTokenizer. RequireStateEq reads the stack's actual parse state
// fresh on each invocation: per spec.md section 4.2, contextual tokenizers
// are invoked fresh per stack, so there is no cross-call payload to
// persist here (unlike the teacher's cgo-facing Serialize/Deserialize,
// which exists to cross a process boundary this pure-Go VM never has).
func (s *ExternalVMScanner) Token(is *InputStream, stack *Stack) {
	if s == nil || len(s.Program.Code) == 0 {
		return
	}
	var curState StateID
	if stack != nil {
		curState = stack.State()
	}

	maxSteps := s.Program.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultExternalVMMaxSteps(len(s.Program.Code))
	}

	pc := 0
	for steps := 0; steps < maxSteps; steps++ {
		if pc < 0 || pc >= len(s.Program.Code) {
			return
		}
		ins := s.Program.Code[pc]
		switch ins.Op {
		case ExternalVMOpFail:
			return
		case ExternalVMOpJump:
			pc = int(ins.A)
		case ExternalVMOpRequireValid:
			// No valid-symbol information reaches the scanner, so this
			// gate always passes.
			pc++
		case ExternalVMOpRequireStateEq:
			if uint32(curState) == uint32(ins.A) {
				pc++
			} else {
				pc = int(ins.Alt)
			}
		case ExternalVMOpIfRuneEq:
			if is.Peek(0) == int(ins.A) {
				pc++
			} else {
				pc = int(ins.Alt)
			}
		case ExternalVMOpIfRuneInRange:
			r := is.Peek(0)
			if r >= int(ins.A) && r <= int(ins.B) {
				pc++
			} else {
				pc = int(ins.Alt)
			}
		case ExternalVMOpIfRuneClass:
			r := is.Peek(0)
			if r >= 0 && matchesExternalVMRuneClass(rune(r), ExternalVMRuneClass(ins.A)) {
				pc++
			} else {
				pc = int(ins.Alt)
			}
		case ExternalVMOpAdvance:
			is.Advance(1)
			pc++
		case ExternalVMOpMarkEnd:
			// MarkEnd and Emit collapse into one AcceptToken call: the
			// VM always emits relative to the stream's current position,
			// so marking the end is a no-op until Emit fires.
			pc++
		case ExternalVMOpEmit:
			is.AcceptToken(Symbol(ins.A), 0)
			return
		default:
			return
		}
	}
}
