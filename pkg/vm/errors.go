// Package vm - error handling with stack traces.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame pins down one call frame's position at the moment a
// RuntimeError was raised: which phase/function it was in and which
// tuple and source line ip had reached.
type StackFrame struct {
	Name       string // function name, or a phase label ("BEGIN", "main", "END")
	TupleIndex int    // index into bytecode.Program.Tuples at time of call
	SourceLine int    // source line number (0 if unknown)
}

// RuntimeError reports an unrecoverable execution failure: division by
// zero, an undefined function, an illegal array operation, or a
// malformed format string with CatchFormatErrors set (spec.md §7).
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if n := len(e.StackTrace); n > 0 {
		b.WriteString("\n\nStack trace:")
		for i := n - 1; i >= 0; i-- {
			f := e.StackTrace[i]
			loc := fmt.Sprintf("tuple %d", f.TupleIndex)
			if f.SourceLine > 0 {
				loc = fmt.Sprintf("line %d, %s", f.SourceLine, loc)
			}
			fmt.Fprintf(&b, "\n  at %s (%s)", f.Name, loc)
		}
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
