package ast_test

import (
	"testing"

	"github.com/tawk-lang/tawk/pkg/ast"
	"github.com/tawk-lang/tawk/pkg/parser"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, errs := parser.Parse(src, nil)
	if len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}
	return prog
}

func TestResolveMarksDirectArrayParam(t *testing.T) {
	prog := mustParse(t, `
		function fill(a) { a[1] = "x" }
		BEGIN { fill(arr) }
	`)
	if errs := ast.Resolve(prog, nil); len(errs) > 0 {
		t.Fatalf("Resolve: %v", errs)
	}
	fn := prog.Functions["fill"]
	if len(fn.IsArrayParam) != 1 || !fn.IsArrayParam[0] {
		t.Errorf("IsArrayParam = %v, want [true]", fn.IsArrayParam)
	}
}

func TestResolvePropagatesArrayAcrossCallChain(t *testing.T) {
	prog := mustParse(t, `
		function leaf(a) { a[1] = "x" }
		function middle(b) { leaf(b) }
		BEGIN { middle(arr) }
	`)
	if errs := ast.Resolve(prog, nil); len(errs) > 0 {
		t.Fatalf("Resolve: %v", errs)
	}
	mid := prog.Functions["middle"]
	if len(mid.IsArrayParam) != 1 || !mid.IsArrayParam[0] {
		t.Errorf("middle's IsArrayParam = %v, want [true] (propagated from leaf)", mid.IsArrayParam)
	}
}

func TestResolveLeavesScalarParamsAlone(t *testing.T) {
	prog := mustParse(t, `
		function add(a, b) { return a + b }
		BEGIN { print add(1, 2) }
	`)
	if errs := ast.Resolve(prog, nil); len(errs) > 0 {
		t.Fatalf("Resolve: %v", errs)
	}
	fn := prog.Functions["add"]
	for i, isArr := range fn.IsArrayParam {
		if isArr {
			t.Errorf("param %d marked as array, want scalar", i)
		}
	}
}

func TestResolveTagsBuiltinAndUserCalls(t *testing.T) {
	prog := mustParse(t, `
		function double(n) { return n * 2 }
		BEGIN { x = double(1); y = length("abc") }
	`)
	if errs := ast.Resolve(prog, nil); len(errs) > 0 {
		t.Fatalf("Resolve: %v", errs)
	}
	var userCall, builtinCall *ast.Call
	for _, s := range prog.Rules[0].Action {
		es := s.(*ast.ExprStmt)
		assign := es.X.(*ast.Assign)
		call := assign.Value.(*ast.Call)
		if call.Name == "double" {
			userCall = call
		} else if call.Name == "length" {
			builtinCall = call
		}
	}
	if userCall == nil || !userCall.IsUserFunc {
		t.Errorf("expected double(...) to be tagged IsUserFunc, got %+v", userCall)
	}
	if builtinCall == nil || !builtinCall.IsBuiltin {
		t.Errorf("expected length(...) to be tagged IsBuiltin, got %+v", builtinCall)
	}
}
