package vm

import (
	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/value"
)

// execPrint implements the print statement: argc values joined by OFS,
// terminated by ORS, written to stdout or a redirected destination.
// print with no arguments prints $0 (spec.md §4.2).
func (vm *VM) execPrint(t bytecode.Tuple) {
	argc := operand[int](t, 0)
	kind := toRedirectKind(operand[int](t, 1))
	hasDest := operand[bool](t, 2)

	var dest string
	if hasDest {
		dest = vm.pop().ToString(vm.convfmt())
	}
	args := vm.popN(argc)

	w, err := vm.out.writerFor(kind, dest)
	if err != nil {
		vm.raise("cannot open %q for output: %v", dest, err)
	}

	if len(args) == 0 {
		w.WriteString(vm.line)
	} else {
		ofs := vm.ofs()
		ofmt := vm.ofmt()
		for i, a := range args {
			if i > 0 {
				w.WriteString(ofs)
			}
			w.WriteString(printString(a, ofmt))
		}
	}
	w.WriteString(vm.ors())
}

// printString renders a value the way print does: passing OFMT (rather
// than CONVFMT) means a computed non-integral number is rendered with
// OFMT, per spec.md §4.6, while Value.ToString already leaves strings
// and numeric strings untouched regardless of which format is passed.
func printString(v value.Value, ofmt string) string {
	return v.ToString(ofmt)
}

func (vm *VM) execPrintf(t bytecode.Tuple) {
	argc := operand[int](t, 0)
	kind := toRedirectKind(operand[int](t, 1))
	hasDest := operand[bool](t, 2)

	var dest string
	if hasDest {
		dest = vm.pop().ToString(vm.convfmt())
	}
	args := vm.popN(argc)
	if len(args) == 0 {
		vm.raise("printf: missing format argument")
	}

	w, err := vm.out.writerFor(kind, dest)
	if err != nil {
		vm.raise("cannot open %q for output: %v", dest, err)
	}

	format := args[0].ToString(vm.convfmt())
	out, _, ferr := value.Sprintf(format, args[1:], vm.convfmt())
	if ferr != nil {
		if vm.cfg.CatchFormatErrors {
			vm.raise("%v", ferr)
		} else {
			out = format
		}
	}
	w.WriteString(out)
}

// popN pops count values and returns them in the order they were
// pushed (popN reverses what pop's LIFO order would otherwise give).
func (vm *VM) popN(count int) []value.Value {
	out := make([]value.Value, count)
	for i := count - 1; i >= 0; i-- {
		out[i] = vm.pop()
	}
	return out
}
