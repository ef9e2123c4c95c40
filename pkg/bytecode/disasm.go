package bytecode

import (
	"fmt"
	"io"
)

// Disassemble writes a human-readable listing of p's tuples (the -s
// flag's "dump tuple IR as text"), grounded in the teacher's
// disassembleFile: index, mnemonic, then each operand, with a resolved
// *Address rendered as its target index rather than its Go pointer.
func Disassemble(p *Program, w io.Writer) {
	fmt.Fprintf(w, "BEGIN  [%d, %d)\n", p.BeginStart, p.BeginEnd)
	fmt.Fprintf(w, "MAIN   [%d, %d)\n", p.MainStart, p.MainEnd)
	fmt.Fprintf(w, "END    [%d, %d)\n", p.EndStart, p.EndEnd)
	fmt.Fprintln(w)

	if len(p.Functions) > 0 {
		fmt.Fprintln(w, "Functions:")
		for name, fn := range p.Functions {
			fmt.Fprintf(w, "  %s(%v) entry=%d locals=%d arrayArgs=%v\n",
				name, fn.Params, fn.Entry, fn.NumLocals, fn.IsArrayArg)
		}
		fmt.Fprintln(w)
	}

	for i, t := range p.Tuples {
		fmt.Fprintf(w, "%5d %-20s", i, t.Op)
		for _, operand := range t.Operands {
			fmt.Fprintf(w, " %s", formatOperand(operand))
		}
		fmt.Fprintf(w, "  ; line %d\n", t.Line)
	}
}

func formatOperand(operand any) string {
	switch v := operand.(type) {
	case *Address:
		if v.Resolved() {
			return fmt.Sprintf("->%d", v.Index())
		}
		return fmt.Sprintf("->?(%s)", v.Label)
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
