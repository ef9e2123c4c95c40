package vm

import (
	"testing"

	"github.com/tawk-lang/tawk/pkg/compiler"
	"github.com/tawk-lang/tawk/pkg/config"
	"github.com/tawk-lang/tawk/pkg/parser"
)

func compileSrc(t *testing.T, src string) *VM {
	t.Helper()
	prog, errs := parser.Parse(src, nil)
	if len(errs) > 0 {
		t.Fatalf("parse error: %v", errs)
	}
	bc, err := compiler.Compile(prog)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	return New(bc, config.Default(), nil)
}

// fakeSource feeds a fixed slice of records as if they'd been read from
// a single file, for tests that exercise the main per-record loop.
type fakeSource struct {
	records  []string
	filename string
	idx      int
}

func (f *fakeSource) NextRecord() (string, string, bool) {
	if f.idx >= len(f.records) {
		return "", "", false
	}
	rec := f.records[f.idx]
	f.idx++
	return rec, f.filename, true
}

func (f *fakeSource) SkipFile() { f.idx = len(f.records) }

func TestBeginOnlyAssignsGlobal(t *testing.T) {
	m := compileSrc(t, `BEGIN { x = 1 + 2 * 3 }`)
	if _, err := m.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Global("x").ToNumber(); got != 7 {
		t.Errorf("x = %v, want 7", got)
	}
}

func TestMainRuleAccumulatesAcrossRecords(t *testing.T) {
	m := compileSrc(t, `{ total += $1 } END { result = total }`)
	src := &fakeSource{records: []string{"1 a", "2 b", "3 c"}, filename: "in"}
	if _, err := m.Run(src); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Global("result").ToNumber(); got != 6 {
		t.Errorf("result = %v, want 6", got)
	}
	if got := m.Global("NR").ToNumber(); got != 3 {
		t.Errorf("NR = %v, want 3", got)
	}
}

func TestExitCodeFromExitStatement(t *testing.T) {
	m := compileSrc(t, `BEGIN { exit 7 }`)
	code, err := m.Run(nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 7 {
		t.Errorf("exit code = %d, want 7", code)
	}
}

func TestExitInMainStillRunsEnd(t *testing.T) {
	m := compileSrc(t, `{ exit 2 } END { ran = 1 }`)
	src := &fakeSource{records: []string{"rec1"}}
	code, err := m.Run(src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if m.Global("ran").ToNumber() != 1 {
		t.Error("expected END block to still run after exit in main rule")
	}
}

func TestGsubReplacesAllAndReportsCount(t *testing.T) {
	m := compileSrc(t, `BEGIN { s = "aXbXcX"; n = gsub(/X/, "-", s) }`)
	if _, err := m.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Global("s").ToString("%.6g"); got != "a-b-c-" {
		t.Errorf("s = %q, want %q", got, "a-b-c-")
	}
	if got := m.Global("n").ToNumber(); got != 3 {
		t.Errorf("n = %v, want 3", got)
	}
}

func TestSubstrClampsOutOfRangeStart(t *testing.T) {
	m := compileSrc(t, `BEGIN { s = substr("hello", -2, 4) }`)
	if _, err := m.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Global("s").ToString("%.6g"); got != "h" {
		t.Errorf("s = %q, want %q", got, "h")
	}
}

func TestSplitPopulatesArray(t *testing.T) {
	m := compileSrc(t, `BEGIN { n = split("a:b:c", arr, ":") }`)
	if _, err := m.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Global("n").ToNumber(); got != 3 {
		t.Errorf("n = %v, want 3", got)
	}
	arr := m.Global("arr")
	if !arr.IsArray() {
		t.Fatal("arr should be an array")
	}
	v, ok := arr.AsArray().Get("2")
	if !ok || v.ToString("%.6g") != "b" {
		t.Errorf("arr[2] = %v, %v, want %q", v, ok, "b")
	}
}

func TestUserFunctionCallAndReturn(t *testing.T) {
	m := compileSrc(t, `
		function double(n) { return n * 2 }
		BEGIN { y = double(21) }
	`)
	if _, err := m.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := m.Global("y").ToNumber(); got != 42 {
		t.Errorf("y = %v, want 42", got)
	}
}

func TestDivisionByZeroIsRuntimeError(t *testing.T) {
	m := compileSrc(t, `BEGIN { x = 1 / 0 }`)
	_, err := m.Run(nil)
	if err == nil {
		t.Fatal("expected a runtime error dividing by zero")
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Errorf("error type = %T, want *RuntimeError", err)
	}
}
