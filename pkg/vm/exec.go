package vm

import (
	"math"

	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/value"
)

// step fetches the tuple at ip, executes it, and advances ip — to the
// next tuple by default, or to a jump target when the opcode is a
// control-flow instruction. OpBreak/OpContinue are declared in
// pkg/bytecode's enum for disassembly completeness but are never emitted
// by the compiler (break/continue lower directly to OpJump against the
// enclosing loop's addresses), so they have no case below.
func (vm *VM) step() {
	t := vm.prog.Tuples[vm.ip]
	next := vm.ip + 1
	vm.ip = next

	switch t.Op {
	case bytecode.OpPushNum:
		vm.push(value.Num(operand[float64](t, 0)))
	case bytecode.OpPushStr:
		vm.push(value.NewStr(operand[string](t, 0)))
	case bytecode.OpPushRegex:
		vm.push(value.NewStr(operand[string](t, 0)))
	case bytecode.OpPushUninit:
		vm.push(value.Uninitialized)
	case bytecode.OpDup:
		vm.push(vm.top())
	case bytecode.OpSwap:
		n := len(vm.stack)
		vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]
	case bytecode.OpPop:
		vm.pop()

	case bytecode.OpLoadGlobal:
		name := operand[string](t, 0)
		if val, ok := vm.globals[name]; ok {
			vm.push(val)
		} else {
			vm.push(value.Uninitialized)
		}
	case bytecode.OpStoreGlobal:
		name := operand[string](t, 0)
		v := vm.pop()
		if name == "NF" {
			vm.setNF(int(v.ToNumber()))
		} else {
			vm.globals[name] = v
		}
	case bytecode.OpLoadLocal:
		vm.push(vm.curFrame().locals[operand[int](t, 0)])
	case bytecode.OpStoreLocal:
		vm.curFrame().locals[operand[int](t, 0)] = vm.pop()
	case bytecode.OpLoadArrayElem:
		key := vm.pop()
		arrVal := vm.pop()
		arr := vm.arrayOf(arrVal)
		vm.push(arr.GetOrCreate(key.ToString(vm.convfmt())))
	case bytecode.OpStoreArrayElem:
		v := vm.pop()
		key := vm.pop()
		arrVal := vm.pop()
		arr := vm.arrayOf(arrVal)
		arr.Set(key.ToString(vm.convfmt()), v)
		vm.push(v)
	case bytecode.OpLoadArrayRef:
		name := operand[string](t, 0)
		vm.push(vm.globalArrayRef(name))
	case bytecode.OpLoadLocalArrayRef:
		slot := operand[int](t, 0)
		frame := vm.curFrame()
		if !frame.locals[slot].IsArray() {
			frame.locals[slot] = value.NewArray(value.NewArrayContainer())
		}
		vm.push(frame.locals[slot])

	case bytecode.OpLoadField:
		idx := vm.pop()
		vm.push(vm.field(int(idx.ToNumber())))
	case bytecode.OpStoreField:
		v := vm.pop()
		idx := vm.pop()
		vm.setField(int(idx.ToNumber()), v)
		vm.push(v)
	case bytecode.OpFieldCount:
		vm.push(vm.globals["NF"])

	case bytecode.OpAdd:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Num(a.ToNumber() + b.ToNumber()))
	case bytecode.OpSub:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Num(a.ToNumber() - b.ToNumber()))
	case bytecode.OpMul:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Num(a.ToNumber() * b.ToNumber()))
	case bytecode.OpDiv:
		b, a := vm.pop(), vm.pop()
		bn := b.ToNumber()
		if bn == 0 {
			vm.raise("division by zero")
		}
		vm.push(value.Num(a.ToNumber() / bn))
	case bytecode.OpMod:
		b, a := vm.pop(), vm.pop()
		bn := b.ToNumber()
		if bn == 0 {
			vm.raise("division by zero in %%")
		}
		vm.push(value.Num(math.Mod(a.ToNumber(), bn)))
	case bytecode.OpPow:
		b, a := vm.pop(), vm.pop()
		vm.push(value.Num(math.Pow(a.ToNumber(), b.ToNumber())))
	case bytecode.OpNeg:
		a := vm.pop()
		vm.push(value.Num(-a.ToNumber()))
	case bytecode.OpConcat:
		b, a := vm.pop(), vm.pop()
		vm.push(value.NewStr(a.ToString(vm.convfmt()) + b.ToString(vm.convfmt())))
	case bytecode.OpMatch:
		re, s := vm.pop(), vm.pop()
		vm.push(boolValue(vm.regex(re.ToString(vm.convfmt())).MatchString(s.ToString(vm.convfmt()))))
	case bytecode.OpNotMatch:
		re, s := vm.pop(), vm.pop()
		vm.push(boolValue(!vm.regex(re.ToString(vm.convfmt())).MatchString(s.ToString(vm.convfmt()))))
	case bytecode.OpCompareEq:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(value.Compare(a, b, vm.convfmt()) == 0))
	case bytecode.OpCompareNe:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(value.Compare(a, b, vm.convfmt()) != 0))
	case bytecode.OpCompareLt:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(value.Compare(a, b, vm.convfmt()) < 0))
	case bytecode.OpCompareLe:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(value.Compare(a, b, vm.convfmt()) <= 0))
	case bytecode.OpCompareGt:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(value.Compare(a, b, vm.convfmt()) > 0))
	case bytecode.OpCompareGe:
		b, a := vm.pop(), vm.pop()
		vm.push(boolValue(value.Compare(a, b, vm.convfmt()) >= 0))
	case bytecode.OpNot:
		a := vm.pop()
		vm.push(boolValue(!a.Bool()))
	case bytecode.OpUnaryPlus:
		a := vm.pop()
		vm.push(value.Num(a.ToNumber()))

	case bytecode.OpIncr:
		vm.execIncrLocal(t, operand[int](t, 0))
	case bytecode.OpIncrGlobal:
		vm.execIncrGlobal(t)
	case bytecode.OpIncrField:
		idx := vm.pop()
		i := int(idx.ToNumber())
		delta, postfix := operand[float64](t, 0), operand[bool](t, 1)
		old := vm.field(i).ToNumber()
		vm.setField(i, value.Num(old+delta))
		vm.push(resultOf(old, old+delta, postfix))
	case bytecode.OpIncrArrayElem:
		key := vm.pop()
		arrVal := vm.pop()
		arr := vm.arrayOf(arrVal)
		ks := key.ToString(vm.convfmt())
		delta, postfix := operand[float64](t, 0), operand[bool](t, 1)
		old := arr.GetOrCreate(ks).ToNumber()
		arr.Set(ks, value.Num(old+delta))
		vm.push(resultOf(old, old+delta, postfix))
	case bytecode.OpJoinSubsep:
		vm.push(value.NewStr(vm.joinSubsep(operand[int](t, 0))))
	case bytecode.OpIn:
		arrVal := vm.pop()
		key := vm.pop()
		arr := vm.arrayOf(arrVal)
		vm.push(boolValue(arr.Has(key.ToString(vm.convfmt()))))

	case bytecode.OpJump:
		vm.ip = operand[*bytecode.Address](t, 0).Index()
	case bytecode.OpJumpIfFalse:
		v := vm.pop()
		if !v.Bool() {
			vm.ip = operand[*bytecode.Address](t, 0).Index()
		}
	case bytecode.OpJumpIfTrue:
		v := vm.pop()
		if v.Bool() {
			vm.ip = operand[*bytecode.Address](t, 0).Index()
		}
	case bytecode.OpCall:
		vm.execCall(t, next)
	case bytecode.OpReturn:
		vm.execReturn(t)
	case bytecode.OpNext:
		panic(ctrlNext{})
	case bytecode.OpNextFile:
		panic(ctrlNextFile{})
	case bytecode.OpExit:
		code := vm.exitCode
		if operand[bool](t, 0) {
			code = int(vm.pop().ToNumber())
		}
		panic(ctrlExit{code: code})
	case bytecode.OpRangeStart:
		vm.execRangeStart(operand[int](t, 0))

	case bytecode.OpPrint:
		vm.execPrint(t)
	case bytecode.OpPrintf:
		vm.execPrintf(t)
	case bytecode.OpGetline:
		vm.execGetline(t)
	case bytecode.OpClose:
		name := vm.pop()
		vm.push(value.Num(vm.out.close(name.ToString(vm.convfmt()))))
	case bytecode.OpFflush:
		name := vm.pop()
		vm.push(value.Num(vm.out.flush(name.ToString(vm.convfmt()))))

	case bytecode.OpArrayTest:
		arrVal := vm.pop()
		key := vm.pop()
		arr := vm.arrayOf(arrVal)
		vm.push(boolValue(arr.Has(key.ToString(vm.convfmt()))))
	case bytecode.OpDeleteElem:
		arrVal := vm.pop()
		key := vm.pop()
		vm.arrayOf(arrVal).Delete(key.ToString(vm.convfmt()))
	case bytecode.OpDeleteArray:
		vm.arrayOf(vm.pop()).Clear()
	case bytecode.OpIterInit:
		arr := vm.arrayOf(vm.pop())
		var keys []string
		if vm.cfg.SortedArrays {
			keys = arr.Sorted()
		} else {
			keys = arr.Keys()
		}
		vm.iterStack = append(vm.iterStack, iterFrame{keys: keys})
	case bytecode.OpIterNext:
		top := &vm.iterStack[len(vm.iterStack)-1]
		if top.pos >= len(top.keys) {
			vm.ip = operand[*bytecode.Address](t, 0).Index()
		} else {
			k := top.keys[top.pos]
			top.pos++
			vm.push(value.NewStr(k))
		}
	case bytecode.OpIterEnd:
		vm.iterStack = vm.iterStack[:len(vm.iterStack)-1]

	case bytecode.OpBuiltinLength,
		bytecode.OpBuiltinSubstr,
		bytecode.OpBuiltinSplit,
		bytecode.OpBuiltinSprintf,
		bytecode.OpBuiltinSub,
		bytecode.OpBuiltinGsub,
		bytecode.OpBuiltinIndex,
		bytecode.OpBuiltinMatchFn,
		bytecode.OpBuiltinSin,
		bytecode.OpBuiltinCos,
		bytecode.OpBuiltinAtan2,
		bytecode.OpBuiltinExp,
		bytecode.OpBuiltinLog,
		bytecode.OpBuiltinSqrt,
		bytecode.OpBuiltinInt,
		bytecode.OpBuiltinRand,
		bytecode.OpBuiltinSrand,
		bytecode.OpBuiltinTolower,
		bytecode.OpBuiltinToupper,
		bytecode.OpBuiltinSystem:
		vm.execBuiltin(t)

	case bytecode.OpInvokeExtension:
		vm.execInvokeExtension(t)

	default:
		vm.raise("unhandled opcode %s", t.Op)
	}
}

func (vm *VM) curFrame() *frame { return vm.frames[len(vm.frames)-1] }

func boolValue(b bool) value.Value {
	if b {
		return value.Num(1)
	}
	return value.Num(0)
}

// resultOf picks the pre- or post-increment value an IncrDecr expression
// evaluates to, per its Postfix flag.
func resultOf(before, after float64, postfix bool) value.Value {
	if postfix {
		return value.Num(before)
	}
	return value.Num(after)
}

func (vm *VM) arrayOf(v value.Value) *value.Array {
	arr := v.AsArray()
	if arr == nil {
		vm.raise("scalar value used as an array")
	}
	return arr
}

func (vm *VM) globalArrayRef(name string) value.Value {
	v, ok := vm.globals[name]
	if !ok || !v.IsArray() {
		v = value.NewArray(value.NewArrayContainer())
		vm.globals[name] = v
	}
	return v
}

func (vm *VM) execIncrLocal(t bytecode.Tuple, slot int) {
	delta, postfix := operand[float64](t, 1), operand[bool](t, 2)
	frame := vm.curFrame()
	old := frame.locals[slot].ToNumber()
	frame.locals[slot] = value.Num(old + delta)
	vm.push(resultOf(old, old+delta, postfix))
}

func (vm *VM) execIncrGlobal(t bytecode.Tuple) {
	name := operand[string](t, 0)
	delta, postfix := operand[float64](t, 1), operand[bool](t, 2)
	old := vm.globals[name].ToNumber()
	if name == "NF" {
		vm.setNF(int(old + delta))
	} else {
		vm.globals[name] = value.Num(old + delta)
	}
	vm.push(resultOf(old, old+delta, postfix))
}

func (vm *VM) joinSubsep(count int) string {
	parts := make([]string, count)
	for i := count - 1; i >= 0; i-- {
		parts[i] = vm.pop().ToString(vm.convfmt())
	}
	out := parts[0]
	sep := vm.subsep()
	for _, p := range parts[1:] {
		out += sep + p
	}
	return out
}

// execCall dispatches OpCall: always a user function, pushing a new call
// frame. Extension keywords are a separate opcode (OpInvokeExtension)
// emitted by the compiler once ast.Resolve has told it which is which;
// a name reaching here that isn't in the function table is a compiler
// bug, not a user error, since Resolve would already have rejected an
// unresolved name as a SemanticError before compilation.
func (vm *VM) execCall(t bytecode.Tuple, next int) {
	name := operand[string](t, 0)
	argc := operand[int](t, 1)

	fn, ok := vm.prog.Functions[name]
	if !ok {
		vm.raise("call to undefined function %q", name)
		return
	}
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	locals := make([]value.Value, fn.NumLocals)
	copy(locals, args)
	vm.frames = append(vm.frames, &frame{locals: locals, returnIP: next, fnName: name})
	vm.ip = fn.Entry
}

func (vm *VM) execInvokeExtension(t bytecode.Tuple) {
	name := operand[string](t, 0)
	argc := operand[int](t, 1)
	args := make([]value.Value, argc)
	for i := argc - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	ext, ok := vm.ext.Lookup(name)
	if !ok {
		vm.raise("call to undefined extension keyword %q", name)
	}
	result, err := ext.Invoke(name, args, vm)
	if err != nil {
		vm.raise("%s: %v", name, err)
	}
	vm.push(result)
}

func (vm *VM) execReturn(t bytecode.Tuple) {
	var v value.Value
	if operand[bool](t, 0) {
		v = vm.pop()
	} else {
		v = value.Uninitialized
	}
	f := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.ip = f.returnIP
	vm.push(v)
}

// execRangeStart collapses a range pattern's two boundary tests plus its
// id's previously recorded active/inactive state into one decision of
// whether the current record's action runs, per spec.md §9's range
// pattern semantics: the end expression is tested against the very
// record that opened the range too, and a record matching both bounds at
// once still fires the action exactly once.
func (vm *VM) execRangeStart(id int) {
	end := vm.pop()
	start := vm.pop()
	active := vm.ranges[id]
	var fire bool
	if !active {
		if start.Bool() {
			fire = true
			active = true
			if end.Bool() {
				active = false
			}
		}
	} else {
		fire = true
		if end.Bool() {
			active = false
		}
	}
	vm.ranges[id] = active
	vm.push(boolValue(fire))
}
