package parser

import (
	"testing"

	"github.com/tawk-lang/tawk/pkg/ast"
)

func TestParseBeginEndAndMainRules(t *testing.T) {
	prog, errs := Parse(`
		BEGIN { x = 1 }
		$1 == "a" { print }
		END { print "done" }
	`, nil)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(prog.Rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(prog.Rules))
	}
	if prog.Rules[0].Kind != ast.PatternBegin {
		t.Errorf("rule 0 kind = %v, want PatternBegin", prog.Rules[0].Kind)
	}
	if prog.Rules[1].Kind != ast.PatternExpr {
		t.Errorf("rule 1 kind = %v, want PatternExpr", prog.Rules[1].Kind)
	}
	if prog.Rules[2].Kind != ast.PatternEnd {
		t.Errorf("rule 2 kind = %v, want PatternEnd", prog.Rules[2].Kind)
	}
}

func TestParseRangePattern(t *testing.T) {
	prog, errs := Parse(`/start/,/stop/ { print }`, nil)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(prog.Rules) != 1 || prog.Rules[0].Kind != ast.PatternRange {
		t.Fatalf("expected a single PatternRange rule, got %+v", prog.Rules)
	}
	if prog.Rules[0].RangeEnd == nil {
		t.Error("expected RangeEnd to be set for a range pattern")
	}
}

func TestParseFunctionDefinition(t *testing.T) {
	prog, errs := Parse(`
		function add(a, b) { return a + b }
		BEGIN { print add(1, 2) }
	`, nil)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	fn, ok := prog.Functions["add"]
	if !ok {
		t.Fatal("expected function add to be registered")
	}
	if len(fn.Params) != 2 {
		t.Errorf("add has %d params, want 2", len(fn.Params))
	}
}

func TestOperatorPrecedence(t *testing.T) {
	prog, errs := Parse(`BEGIN { x = 1 + 2 * 3 }`, nil)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	stmt := prog.Rules[0].Action[0].(*ast.ExprStmt)
	assign := stmt.X.(*ast.Assign)
	bin, ok := assign.Value.(*ast.Binary)
	if !ok {
		t.Fatalf("expected the top-level value to be a Binary, got %T", assign.Value)
	}
	if bin.Op != "+" {
		t.Errorf("top-level op = %q, want %q (multiplication should bind tighter)", bin.Op, "+")
	}
}

func TestMalformedProgramReportsParseError(t *testing.T) {
	_, errs := Parse(`BEGIN { x = }`, nil)
	if len(errs) == 0 {
		t.Fatal("expected at least one parse error for a malformed program")
	}
}

type fakeExtLookup map[string]int

func (f fakeExtLookup) LookupArity(keyword string) (int, bool) {
	arity, ok := f[keyword]
	return arity, ok
}

func TestUndefinedCallIsReportedAsSemanticError(t *testing.T) {
	_, errs := Parse(`BEGIN { undefinedfn(1, 2) }`, nil)
	if len(errs) == 0 {
		t.Fatal("expected a semantic error calling an undefined function")
	}
}

func TestExtensionCallResolvesAgainstRegistry(t *testing.T) {
	prog, errs := Parse(`BEGIN { sockopen("h", "host", 80) }`, fakeExtLookup{"sockopen": 3})
	if len(errs) > 0 {
		t.Fatalf("unexpected errors resolving a registered extension call: %v", errs)
	}
	call := prog.Rules[0].Action[0].(*ast.ExprStmt).X.(*ast.Call)
	if !call.IsExtension {
		t.Error("expected sockopen(...) to be tagged IsExtension")
	}
}

func TestExtensionCallArityMismatchIsSemanticError(t *testing.T) {
	_, errs := Parse(`BEGIN { sockopen("h") }`, fakeExtLookup{"sockopen": 3})
	if len(errs) == 0 {
		t.Fatal("expected a semantic error for an extension call with the wrong arity")
	}
}
