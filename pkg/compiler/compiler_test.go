package compiler

import (
	"testing"

	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/parser"
)

func mustCompile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	prog, errs := parser.Parse(src, nil)
	if len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}
	bc, err := Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return bc
}

func TestCompilePartitionsBeginMainEnd(t *testing.T) {
	bc := mustCompile(t, `BEGIN { x = 1 } { y = 2 } END { z = 3 }`)
	if bc.BeginStart != 0 || bc.BeginEnd <= bc.BeginStart {
		t.Errorf("BEGIN range = [%d, %d), want a non-empty range starting at 0", bc.BeginStart, bc.BeginEnd)
	}
	if bc.MainStart != bc.BeginEnd {
		t.Errorf("MainStart = %d, want %d (immediately after BEGIN)", bc.MainStart, bc.BeginEnd)
	}
	if bc.MainEnd <= bc.MainStart {
		t.Error("expected a non-empty main range")
	}
	if bc.EndStart != bc.MainEnd {
		t.Errorf("EndStart = %d, want %d (immediately after main)", bc.EndStart, bc.MainEnd)
	}
	if bc.EndEnd <= bc.EndStart {
		t.Error("expected a non-empty END range")
	}
}

func TestCompileResolvesAllJumpAddresses(t *testing.T) {
	bc := mustCompile(t, `
		BEGIN {
			if (x > 0) { y = 1 } else { y = 2 }
			while (x < 10) { x++ }
		}
	`)
	for i, tup := range bc.Tuples {
		for _, operand := range tup.Operands {
			if addr, ok := operand.(*bytecode.Address); ok && !addr.Resolved() {
				t.Errorf("tuple %d (%s) has an unresolved address operand", i, tup.Op)
			}
		}
	}
}

func TestCompileRegistersFunctionWithParamCount(t *testing.T) {
	bc := mustCompile(t, `
		function add(a, b) { return a + b }
		BEGIN { print add(1, 2) }
	`)
	fn, ok := bc.Functions["add"]
	if !ok {
		t.Fatal("expected function add to be registered in the compiled program")
	}
	if len(fn.Params) != 2 {
		t.Errorf("add has %d params, want 2", len(fn.Params))
	}
}

func TestCompileRejectsBreakOutsideLoop(t *testing.T) {
	prog, errs := parser.Parse(`BEGIN { break }`, nil)
	if len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}
	if _, err := Compile(prog); err == nil {
		t.Error("expected a compile error for break outside a loop")
	}
}
