package glr

import "testing"

func TestExternalVMScannerSimpleToken(t *testing.T) {
	scanner := MustNewExternalVMScanner(ExternalVMProgram{
		Code: []ExternalVMInstr{
			{Op: ExternalVMOpIfRuneEq, A: '#', Alt: 4},
			{Op: ExternalVMOpAdvance},
			{Op: ExternalVMOpEmit, A: int32(Symbol(2))},
			{Op: ExternalVMOpFail},
			{Op: ExternalVMOpFail},
		},
	})

	is := NewInputStream(stringInput{"#"}, nil)
	is.Reset(0, &Token{})
	scanner.Token(is, nil)

	tok := is.Token()
	if tok.Value != Symbol(2) {
		t.Fatalf("token value = %d, want %d", tok.Value, 2)
	}
	if tok.End != 1 {
		t.Fatalf("token end = %d, want 1", tok.End)
	}
}

func TestExternalVMScannerNoMatch(t *testing.T) {
	scanner := MustNewExternalVMScanner(ExternalVMProgram{
		Code: []ExternalVMInstr{
			{Op: ExternalVMOpIfRuneEq, A: '#', Alt: 2},
			{Op: ExternalVMOpAdvance},
			{Op: ExternalVMOpFail},
		},
	})

	is := NewInputStream(stringInput{"x"}, nil)
	is.Reset(0, &Token{})
	scanner.Token(is, nil)

	if is.Token().Value != SymEOF {
		t.Fatalf("expected no token, got %d", is.Token().Value)
	}
}

// contextualStack is a minimal Stack-state stand-in so scanners can test
// RequireStateEq behavior without a full parser.
func contextualStack(t *testing.T, state StateID) *Stack {
	t.Helper()
	arena := newGSSArena()
	return newStack(arena, state)
}

func TestExternalVMScannerStateGate(t *testing.T) {
	// Emits symbol 10 only when the current parser state is 1.
	scanner := MustNewExternalVMScanner(ExternalVMProgram{
		Code: []ExternalVMInstr{
			{Op: ExternalVMOpRequireStateEq, A: 1, Alt: 3},
			{Op: ExternalVMOpEmit, A: 10},
			{Op: ExternalVMOpFail},
			{Op: ExternalVMOpFail},
		},
	})

	matching := contextualStack(t, 1)
	is := NewInputStream(stringInput{"x"}, nil)
	is.Reset(0, &Token{})
	scanner.Token(is, matching)
	if is.Token().Value != Symbol(10) {
		t.Fatalf("expected symbol 10 in state 1, got %d", is.Token().Value)
	}

	other := contextualStack(t, 2)
	is2 := NewInputStream(stringInput{"x"}, nil)
	is2.Reset(0, &Token{})
	scanner.Token(is2, other)
	if is2.Token().Value != SymEOF {
		t.Fatalf("expected no token in state 2, got %d", is2.Token().Value)
	}
}

func TestExternalVMScannerLoopGuard(t *testing.T) {
	scanner := MustNewExternalVMScanner(ExternalVMProgram{
		Code:     []ExternalVMInstr{{Op: ExternalVMOpJump, A: 0}},
		MaxSteps: 8,
	})

	is := NewInputStream(stringInput{"#"}, nil)
	is.Reset(0, &Token{})
	scanner.Token(is, nil)
	if is.Token().Value != SymEOF {
		t.Fatalf("expected no token after hitting max steps, got %d", is.Token().Value)
	}
}

func TestExternalVMScannerInvalidProgram(t *testing.T) {
	_, err := NewExternalVMScanner(ExternalVMProgram{
		Code: []ExternalVMInstr{{Op: ExternalVMOpJump, A: 1}},
	})
	if err == nil {
		t.Fatal("expected invalid jump target error")
	}
}
