package extension

import (
	"testing"

	"github.com/tawk-lang/tawk/pkg/value"
)

func TestDebugSleepZero(t *testing.T) {
	d := NewDebug()
	v, err := d.Invoke("_sleep", []value.Value{value.Num(0)}, fakeCtx{})
	if err != nil {
		t.Fatalf("_sleep: %v", err)
	}
	if v.ToNumber() != 0 {
		t.Errorf("_sleep return = %v, want 0", v.ToNumber())
	}
}

func TestDebugDumpReturnsArgCount(t *testing.T) {
	d := NewDebug()
	v, err := d.Invoke("_dump", []value.Value{value.Num(1), value.NewStr("two")}, fakeCtx{})
	if err != nil {
		t.Fatalf("_dump: %v", err)
	}
	if v.ToNumber() != 2 {
		t.Errorf("_dump return = %v, want 2", v.ToNumber())
	}
}

func TestDebugExecRunsCommandAndReportsStatus(t *testing.T) {
	d := NewDebug()
	v, err := d.Invoke("exec", []value.Value{value.NewStr("true")}, fakeCtx{})
	if err != nil {
		t.Fatalf("exec true: %v", err)
	}
	if v.ToNumber() != 0 {
		t.Errorf("exec true status = %v, want 0", v.ToNumber())
	}

	v, err = d.Invoke("exec", []value.Value{value.NewStr("false")}, fakeCtx{})
	if err != nil {
		t.Fatalf("exec false: %v", err)
	}
	if v.ToNumber() == 0 {
		t.Error("exec false should report a non-zero status")
	}
}
