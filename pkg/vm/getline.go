package vm

import (
	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/partitioner"
	"github.com/tawk-lang/tawk/pkg/value"
)

// target-kind tags shared with pkg/compiler's getlineTargetNone/Local/
// Global/Field constants (sub/gsub reuse the same encoding for their
// optional third argument).
const (
	targetNone = iota
	targetLocal
	targetGlobal
	targetField
)

// readTarget fetches the current value of a sub/gsub rewrite target.
func (vm *VM) readTarget(kind int, op any, fieldIndex int) value.Value {
	switch kind {
	case targetLocal:
		return vm.curFrame().locals[op.(int)]
	case targetGlobal:
		return vm.globals[op.(string)]
	case targetField:
		return vm.field(fieldIndex)
	default:
		return value.Uninitialized
	}
}

// writeTarget stores v into a getline/sub/gsub target descriptor.
func (vm *VM) writeTarget(kind int, op any, fieldIndex int, v value.Value) {
	switch kind {
	case targetLocal:
		vm.curFrame().locals[op.(int)] = v
	case targetGlobal:
		name := op.(string)
		if name == "NF" {
			vm.setNF(int(v.ToNumber()))
		} else {
			vm.globals[name] = v
		}
	case targetField:
		vm.setField(fieldIndex, v)
	}
}

// readLine pulls one record from a getline-opened stream, using the
// partitioner (lazily created with whatever RS is active at the moment
// of first use) rather than a bare newline split, so a script that sets
// RS before calling getline gets the same record boundaries it would
// from the main input.
func (vm *VM) readLine(in *inStream) (string, bool) {
	if in.part == nil {
		in.part = partitioner.New(in.r, vm.rs(), vm.cfg.GreedyRS)
	}
	rec, _, ok := in.part.Next()
	return rec, ok
}

// execGetline implements all five POSIX getline forms (spec.md §4.2,
// §4.6), pushing -1 (error), 0 (EOF/no such stream), or 1 (success) as
// the expression's result.
func (vm *VM) execGetline(t bytecode.Tuple) {
	kind := bytecode.GetlineKind(operand[int](t, 0))
	hasSource := operand[bool](t, 1)
	targetKind := operand[int](t, 2)
	targetOperand := t.Operands[3]

	var fieldIndex int
	if targetKind == targetField {
		fieldIndex = int(vm.pop().ToNumber())
	}
	var source string
	if hasSource {
		source = vm.pop().ToString(vm.convfmt())
	}

	var rec, filename string
	var ok bool
	switch kind {
	case bytecode.GetlineSimple, bytecode.GetlineVar:
		if vm.src == nil {
			vm.push(value.Num(0))
			return
		}
		rec, filename, ok = vm.src.NextRecord()
		if !ok {
			vm.push(value.Num(0))
			return
		}
		vm.advanceRecordMeta(filename)
	case bytecode.GetlineFile, bytecode.GetlineFileVar:
		in, err := vm.out.readerFor(source, false)
		if err != nil {
			vm.push(value.Num(-1))
			return
		}
		rec, ok = vm.readLine(in)
		if !ok {
			vm.push(value.Num(0))
			return
		}
	case bytecode.GetlineCmd, bytecode.GetlineCmdVar:
		in, err := vm.out.readerFor(source, true)
		if err != nil {
			vm.push(value.Num(-1))
			return
		}
		rec, ok = vm.readLine(in)
		if !ok {
			vm.push(value.Num(0))
			return
		}
		vm.globals["NR"] = value.Num(vm.globals["NR"].ToNumber() + 1)
	}

	switch kind {
	case bytecode.GetlineSimple, bytecode.GetlineFile:
		vm.setRecord(rec)
	case bytecode.GetlineVar, bytecode.GetlineFileVar, bytecode.GetlineCmdVar:
		vm.writeTarget(targetKind, targetOperand, fieldIndex, value.StrNum(rec))
	case bytecode.GetlineCmd:
		vm.setRecord(rec)
	}
	vm.push(value.Num(1))
}
