package vm

import (
	"regexp"
	"strings"

	"github.com/tawk-lang/tawk/pkg/value"
)

// setRecord installs rec as $0, splitting it into fields per the
// current FS and updating NF. Called once per input record, and again
// whenever the program assigns directly to $0.
func (vm *VM) setRecord(rec string) {
	vm.line = rec
	vm.fields = splitRecord(rec, vm.fs())
	vm.globals["NF"] = value.Num(float64(len(vm.fields)))
}

// splitRecord implements AWK's four FS regimes:
//   - FS == " " (the default): split on runs of whitespace, discarding
//     leading/trailing blanks (POSIX's special "default FS" rule).
//   - FS == "" : split into individual characters (a common extension).
//   - len(FS) == 1: split on that literal byte, no regex involved.
//   - otherwise: FS is an extended regular expression.
func splitRecord(rec, fs string) []string {
	switch {
	case fs == " ":
		return strings.Fields(rec)
	case rec == "":
		return nil
	case fs == "":
		out := make([]string, 0, len(rec))
		for _, r := range rec {
			out = append(out, string(r))
		}
		return out
	case len(fs) == 1 && fs != "\\":
		return strings.Split(rec, fs)
	default:
		re, err := regexp.Compile(fs)
		if err != nil {
			return []string{rec}
		}
		return re.Split(rec, -1)
	}
}

// field returns $i (i==0 is $0). An index beyond NF yields the
// uninitialized value per POSIX; the field array is not extended.
func (vm *VM) field(i int) value.Value {
	if i < 0 {
		vm.raise("field index %d is negative", i)
	}
	if i == 0 {
		return value.StrNum(vm.line)
	}
	if i > len(vm.fields) {
		return value.Uninitialized
	}
	return value.StrNum(vm.fields[i-1])
}

// setField implements $i = value, rebuilding $0 from OFS-joined fields
// when i>0, or re-splitting fields from a freshly assigned $0 when i==0.
func (vm *VM) setField(i int, v value.Value) {
	if i < 0 {
		vm.raise("field index %d is negative", i)
	}
	s := v.ToString(vm.convfmt())
	if i == 0 {
		vm.setRecord(s)
		return
	}
	for len(vm.fields) < i {
		vm.fields = append(vm.fields, "")
	}
	vm.fields[i-1] = s
	if nf := int(vm.globals["NF"].ToNumber()); i > nf {
		vm.globals["NF"] = value.Num(float64(i))
	}
	vm.rebuildLine()
}

// setNF implements an assignment to NF itself: fields beyond the new
// count are dropped, fields up to it are padded with empty strings, and
// $0 is rejoined.
func (vm *VM) setNF(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(vm.fields) {
		vm.fields = vm.fields[:n]
	} else {
		for len(vm.fields) < n {
			vm.fields = append(vm.fields, "")
		}
	}
	vm.globals["NF"] = value.Num(float64(n))
	vm.rebuildLine()
}

func (vm *VM) rebuildLine() {
	vm.line = strings.Join(vm.fields, vm.ofs())
}

