package vm

import (
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/value"
)

// execBuiltin dispatches every OpBuiltin* opcode. length/split/match/
// sub/gsub carry bespoke operand shapes (see their doc comments in
// pkg/bytecode); the rest share the generic "argc" operand the compiler
// attaches via builtinOpcode.
func (vm *VM) execBuiltin(t bytecode.Tuple) {
	switch t.Op {
	case bytecode.OpBuiltinLength:
		v := vm.pop()
		if v.IsArray() {
			vm.push(value.Num(float64(vm.arrayOf(v).Len())))
		} else {
			vm.push(value.Num(float64(utf8.RuneCountInString(v.ToString(vm.convfmt())))))
		}

	case bytecode.OpBuiltinSubstr:
		argc := operand[int](t, 0)
		args := vm.popN(argc)
		s := args[0].ToString(vm.convfmt())
		hasLen := argc >= 3
		var lengthF float64
		if hasLen {
			lengthF = args[2].ToNumber()
		}
		vm.push(value.NewStr(builtinSubstr(s, args[1].ToNumber(), hasLen, lengthF)))

	case bytecode.OpBuiltinSplit:
		fsVal := vm.pop()
		arrVal := vm.pop()
		sVal := vm.pop()
		fsStr := vm.fs()
		if !fsVal.IsUninit() {
			fsStr = fsVal.ToString(vm.convfmt())
		}
		arr := vm.arrayOf(arrVal)
		arr.Clear()
		pieces := splitRecord(sVal.ToString(vm.convfmt()), fsStr)
		for i, piece := range pieces {
			arr.Set(strconv.Itoa(i+1), value.StrNum(piece))
		}
		vm.push(value.Num(float64(len(pieces))))

	case bytecode.OpBuiltinSprintf:
		argc := operand[int](t, 0)
		args := vm.popN(argc)
		if len(args) == 0 {
			vm.push(value.NewStr(""))
			return
		}
		format := args[0].ToString(vm.convfmt())
		out, _, err := value.Sprintf(format, args[1:], vm.convfmt())
		if err != nil {
			if vm.cfg.CatchFormatErrors {
				vm.raise("%v", err)
			} else {
				out = format
			}
		}
		vm.push(value.NewStr(out))

	case bytecode.OpBuiltinSub, bytecode.OpBuiltinGsub:
		vm.execSubGsub(t)

	case bytecode.OpBuiltinIndex:
		args := vm.popN(2)
		a := args[0].ToString(vm.convfmt())
		b := args[1].ToString(vm.convfmt())
		pos := strings.Index(a, b)
		if pos < 0 {
			vm.push(value.Num(0))
		} else {
			vm.push(value.Num(float64(utf8.RuneCountInString(a[:pos]) + 1)))
		}

	case bytecode.OpBuiltinMatchFn:
		pattern := vm.pop()
		subject := vm.pop()
		s := subject.ToString(vm.convfmt())
		re := vm.regex(pattern.ToString(vm.convfmt()))
		loc := re.FindStringIndex(s)
		if loc == nil {
			vm.globals["RSTART"] = value.Num(0)
			vm.globals["RLENGTH"] = value.Num(-1)
			vm.push(value.Num(0))
		} else {
			rstart := utf8.RuneCountInString(s[:loc[0]]) + 1
			rlength := utf8.RuneCountInString(s[loc[0]:loc[1]])
			vm.globals["RSTART"] = value.Num(float64(rstart))
			vm.globals["RLENGTH"] = value.Num(float64(rlength))
			vm.push(value.Num(float64(rstart)))
		}

	case bytecode.OpBuiltinSin:
		vm.push(value.Num(math.Sin(vm.popN(1)[0].ToNumber())))
	case bytecode.OpBuiltinCos:
		vm.push(value.Num(math.Cos(vm.popN(1)[0].ToNumber())))
	case bytecode.OpBuiltinAtan2:
		args := vm.popN(2)
		vm.push(value.Num(math.Atan2(args[0].ToNumber(), args[1].ToNumber())))
	case bytecode.OpBuiltinExp:
		vm.push(value.Num(math.Exp(vm.popN(1)[0].ToNumber())))
	case bytecode.OpBuiltinLog:
		vm.push(value.Num(math.Log(vm.popN(1)[0].ToNumber())))
	case bytecode.OpBuiltinSqrt:
		vm.push(value.Num(math.Sqrt(vm.popN(1)[0].ToNumber())))
	case bytecode.OpBuiltinInt:
		vm.push(value.Num(math.Trunc(vm.popN(1)[0].ToNumber())))

	case bytecode.OpBuiltinRand:
		argc := operand[int](t, 0)
		vm.popN(argc)
		vm.push(value.Num(vm.randSrc.Float64()))
	case bytecode.OpBuiltinSrand:
		argc := operand[int](t, 0)
		args := vm.popN(argc)
		prev := vm.randSeed
		seed := float64(time.Now().UnixNano())
		if len(args) > 0 {
			seed = args[0].ToNumber()
		}
		vm.randSeed = seed
		vm.randSrc = rand.New(rand.NewSource(int64(seed)))
		vm.push(value.Num(prev))

	case bytecode.OpBuiltinTolower:
		vm.push(value.NewStr(strings.ToLower(vm.popN(1)[0].ToString(vm.convfmt()))))
	case bytecode.OpBuiltinToupper:
		vm.push(value.NewStr(strings.ToUpper(vm.popN(1)[0].ToString(vm.convfmt()))))

	case bytecode.OpBuiltinSystem:
		cmd := vm.popN(1)[0].ToString(vm.convfmt())
		vm.out.stdout.Flush()
		vm.push(value.Num(system(cmd)))
	}
}

// builtinSubstr implements substr(s, start[, length]) with 1-based,
// rune-aware indexing and POSIX's out-of-range clamping: end is derived
// from the unclamped start so a start before position 1 correctly
// shortens the usable length rather than shifting the whole window.
func builtinSubstr(s string, startF float64, hasLen bool, lengthF float64) string {
	runes := []rune(s)
	n := len(runes)
	start := int(startF)
	var end int
	if hasLen {
		end = start + int(lengthF)
	} else {
		end = n + 1
	}
	if start < 1 {
		start = 1
	}
	if end > n+1 {
		end = n + 1
	}
	if end <= start {
		return ""
	}
	return string(runes[start-1 : end-1])
}

func (vm *VM) execSubGsub(t bytecode.Tuple) {
	targetKind := operand[int](t, 0)
	targetOperand := t.Operands[1]

	var fieldIndex int
	if targetKind == targetField {
		fieldIndex = int(vm.pop().ToNumber())
	}
	repl := vm.pop()
	ere := vm.pop()

	re := vm.regex(ere.ToString(vm.convfmt()))
	subject := vm.readTarget(targetKind, targetOperand, fieldIndex).ToString(vm.convfmt())
	replStr := repl.ToString(vm.convfmt())

	var result string
	var count int
	if t.Op == bytecode.OpBuiltinGsub {
		result, count = gsubAll(subject, re, replStr)
	} else {
		result, count = subOne(subject, re, replStr)
	}
	if count > 0 {
		vm.writeTarget(targetKind, targetOperand, fieldIndex, value.NewStr(result))
	}
	vm.push(value.Num(float64(count)))
}

// subOne replaces the first match of re in subject, honoring & (the
// matched text) and \& / \\ escapes in repl.
func subOne(subject string, re *regexp.Regexp, repl string) (string, int) {
	loc := re.FindStringIndex(subject)
	if loc == nil {
		return subject, 0
	}
	matched := subject[loc[0]:loc[1]]
	return subject[:loc[0]] + expandRepl(repl, matched) + subject[loc[1]:], 1
}

// gsubAll replaces every non-overlapping match of re in subject.
func gsubAll(subject string, re *regexp.Regexp, repl string) (string, int) {
	matches := re.FindAllStringIndex(subject, -1)
	if len(matches) == 0 {
		return subject, 0
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(subject[last:m[0]])
		b.WriteString(expandRepl(repl, subject[m[0]:m[1]]))
		last = m[1]
	}
	b.WriteString(subject[last:])
	return b.String(), len(matches)
}

// expandRepl interprets sub/gsub's replacement text: & stands for the
// matched substring, \& is a literal &, and \\ is a literal backslash.
func expandRepl(repl, matched string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		c := repl[i]
		if c == '\\' && i+1 < len(repl) {
			switch repl[i+1] {
			case '&':
				b.WriteByte('&')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		if c == '&' {
			b.WriteString(matched)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
