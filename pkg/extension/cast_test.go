package extension

import (
	"testing"

	"github.com/tawk-lang/tawk/pkg/value"
)

type fakeCtx struct{}

func (fakeCtx) Warnf(format string, args ...any) {}

func TestCastKeywords(t *testing.T) {
	c := NewCast()
	v, err := c.Invoke("_INTEGER", []value.Value{value.Num(3.9)}, fakeCtx{})
	if err != nil {
		t.Fatalf("_INTEGER: %v", err)
	}
	if v.ToNumber() != 3 {
		t.Errorf("_INTEGER(3.9) = %v, want 3", v.ToNumber())
	}

	v, err = c.Invoke("_STRING", []value.Value{value.Num(42)}, fakeCtx{})
	if err != nil {
		t.Fatalf("_STRING: %v", err)
	}
	if v.ToString("%.6g") != "42" {
		t.Errorf("_STRING(42) = %q", v.ToString("%.6g"))
	}
}

func TestCastArityMismatch(t *testing.T) {
	c := NewCast()
	if _, err := c.Invoke("_INTEGER", nil, fakeCtx{}); err == nil {
		t.Error("expected an error calling _INTEGER with no arguments")
	}
}
