// Package value implements AWK's dynamically typed runtime datum.
//
// An AWK Value is simultaneously a string and a number: every value that
// flows through the interpreter carries (or can lazily derive) both a
// string view and a numeric view, and operators pick whichever view their
// semantics call for. This package also defines the associative array
// container used for AWK's "a[i]" variables.
//
// Design Philosophy:
//
// The teacher's bytecode.Instruction is a small, cheap-to-copy struct with
// a couple of lazily-meaningful fields. Value follows the same shape: it is
// a plain struct (not an interface{}), with a kind tag that records which
// views are currently valid so that to_number/to_string never redo work
// they already did.
package value

import (
	"math"
	"strconv"
	"strings"
)

// Kind tags which views of a Value are populated and authoritative.
type Kind int

const (
	// Uninit is the zero Value: "" and 0, per POSIX uninitialized-variable rules.
	Uninit Kind = iota
	// Num means the value originated as a computed number; string view is lazy.
	Num
	// Str means the value originated as a string; numeric view is lazy and
	// parsed leniently (see ToNumber).
	Str
	// StrNum means the value is a "numeric string" — e.g. a field or
	// getline-read token that looks like a number — and POSIX's numeric
	// string comparison rule treats it as a number when compared against
	// another numeric value.
	StrNum
	// Array marks a Value that holds an associative array reference.
	// Array-typed values cannot be coerced to scalar.
	Array
)

// Value is AWK's universal runtime datum.
type Value struct {
	kind   Kind
	num    float64
	str    string
	strOK  bool // str is populated and authoritative for kind==Num
	numOK  bool // num is populated and authoritative for kind==Str/StrNum
	array  *Array
}

// Uninitialized is the canonical zero value: numeric 0, string "".
var Uninitialized = Value{kind: Uninit, strOK: true, numOK: true}

// Num constructs a Value from a computed number.
func Num(n float64) Value {
	return Value{kind: Num, num: n, numOK: true}
}

// NewStr constructs a Value from a literal/concatenated string (not numeric-looking).
func NewStr(s string) Value {
	return Value{kind: Str, str: s, strOK: true}
}

// StrNum constructs a Value from input text (field, getline, split, ARGV,
// ENVIRON, -v assignment, FS/command-line) that is a candidate for POSIX's
// numeric-string treatment: its numeric-ness is decided on demand by
// looksNumeric, not by the caller.
func StrNum(s string) Value {
	return Value{kind: StrNum, str: s, strOK: true}
}

// NewArray constructs a Value wrapping an associative array reference.
func NewArray(a *Array) Value {
	return Value{kind: Array, array: a}
}

// IsArray reports whether v holds an array reference.
func (v Value) IsArray() bool { return v.kind == Array }

// IsUninit reports whether v is the uninitialized value, used where a
// caller must distinguish "no argument supplied" from an explicit empty
// string (e.g. split's optional third argument).
func (v Value) IsUninit() bool { return v.kind == Uninit }

// AsArray returns the wrapped array, or nil if v is not an array Value.
func (v Value) AsArray() *Array {
	if v.kind != Array {
		return nil
	}
	return v.array
}

// IsNumericString reports whether v is a StrNum whose text parses as a
// complete number (POSIX "numeric string" predicate), used by comparison
// to decide numeric vs. string ordering. A computed number (kind Num)
// also reports true.
func (v Value) IsNumericString() bool {
	if v.kind != StrNum {
		return v.kind == Num
	}
	_, ok := looksNumeric(v.str)
	return ok
}

// IsTrueNumeric reports whether v's origin was arithmetic (kind==Num),
// as opposed to a numeric-looking string — used where POSIX distinguishes
// "number" from "numeric string" (e.g. OFMT is never applied to strnums).
func (v Value) IsTrueNumeric() bool { return v.kind == Num }

// ToNumber coerces v to its numeric view, per spec.md §4.6: leading
// whitespace is skipped, an optional sign and leading digits are parsed,
// the remainder is discarded, and an empty or non-numeric string yields 0.
func (v Value) ToNumber() float64 {
	switch v.kind {
	case Uninit:
		return 0
	case Num:
		return v.num
	case Array:
		return 0
	default: // Str, StrNum
		if v.numOK {
			return v.num
		}
		n, _ := parseLeading(v.str)
		return n
	}
}

// ToString coerces v to its string view. CONVFMT governs the rendering of
// non-integral computed numbers; integral numbers always render without a
// decimal point regardless of CONVFMT, matching POSIX/awk behaviour.
func (v Value) ToString(convfmt string) string {
	switch v.kind {
	case Uninit:
		return ""
	case Str, StrNum:
		return v.str
	case Array:
		return ""
	default: // Num
		if v.strOK {
			return v.str
		}
		return formatNumber(v.num, convfmt)
	}
}

// formatNumber renders n using AWK's integer-vs-float split: values that
// are mathematically integral (and in a safe range) print as plain
// integers; everything else uses the supplied printf-style format (CONVFMT
// or OFMT).
func formatNumber(n float64, format string) string {
	if math.IsNaN(n) {
		return "nan"
	}
	if math.IsInf(n, 1) {
		return "inf"
	}
	if math.IsInf(n, -1) {
		return "-inf"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e18 {
		return strconv.FormatInt(int64(n), 10)
	}
	if format == "" {
		format = "%.6g"
	}
	return sprintfOne(format, n)
}

// sprintfOne renders a single float through a single-verb printf format,
// falling back to Go's default float formatting if the format is malformed.
func sprintfOne(format string, n float64) string {
	s, err := FormatOne(format, n)
	if err != nil {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return s
}

// looksNumeric reports whether s, with surrounding whitespace trimmed, is
// entirely consumed by a valid AWK number (used for the POSIX numeric
// string predicate, which is stricter than ToNumber's lenient prefix parse).
func looksNumeric(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseLeading implements the lenient numeric prefix parse used by ToNumber:
// optional leading whitespace, optional sign, digits, optional fractional
// part, optional exponent; anything else in the string is ignored.
func parseLeading(s string) (float64, bool) {
	i := 0
	n := len(s)
	for i < n && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n') {
		i++
	}
	start := i
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digitsStart := i
	for i < n && isDigit(s[i]) {
		i++
	}
	if i < n && s[i] == '.' {
		i++
		for i < n && isDigit(s[i]) {
			i++
		}
	}
	if i == digitsStart || (i == digitsStart+1 && s[digitsStart] == '.') {
		// no digits consumed at all
		if i < n && (s[i] == 'i' || s[i] == 'I' || s[i] == 'n' || s[i] == 'N') {
			// fall through; the candidate below stops before these
			// letters, so "inf"/"nan" text still yields 0, false
		} else {
			return 0, false
		}
	}
	// optional exponent
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < n && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	candidate := s[start:i]
	if candidate == "" || candidate == "+" || candidate == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(candidate, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Bool reports v's truthiness: numbers are true iff nonzero; strings are
// true iff nonempty; numeric strings use their numeric value (POSIX rule).
func (v Value) Bool() bool {
	switch v.kind {
	case Uninit:
		return false
	case Num:
		return v.num != 0
	case StrNum:
		if n, ok := looksNumeric(v.str); ok {
			return n != 0
		}
		return v.str != ""
	case Str:
		return v.str != ""
	default:
		return false
	}
}

// Compare compares a and b per POSIX: numeric comparison is used when both
// operands are numbers or numeric strings; otherwise string comparison is
// used. It returns -1, 0, or 1.
func Compare(a, b Value, convfmt string) int {
	if numericComparable(a) && numericComparable(b) {
		an, bn := a.ToNumber(), b.ToNumber()
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	as, bs := a.ToString(convfmt), b.ToString(convfmt)
	return strings.Compare(as, bs)
}

// numericComparable reports whether v participates in numeric comparison:
// true computed numbers, uninitialized values, and numeric strings do;
// plain (non-numeric-looking) strings do not.
func numericComparable(v Value) bool {
	switch v.kind {
	case Num, Uninit:
		return true
	case StrNum:
		_, ok := looksNumeric(v.str)
		return ok
	default:
		return false
	}
}
