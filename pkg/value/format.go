package value

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatError reports a printf/sprintf format string that could not be
// satisfied by its arguments (spec.md §4.6, §7: FormatError, suppressible
// via a configuration flag).
type FormatError struct {
	Format string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid format %q: %s", e.Format, e.Reason)
}

// FormatOne renders a single float through a format string that is
// expected to contain exactly one conversion verb — used internally by
// ToString for CONVFMT/OFMT rendering of non-integral numbers.
func FormatOne(format string, n float64) (string, error) {
	out, _, err := Sprintf(format, []Value{Num(n)}, "%.6g")
	return out, err
}

// Sprintf implements AWK's printf/sprintf format-string interpreter: it
// supports %d %i %o %x %X %u %c %s %e %E %f %g %G %% with width, precision,
// left-align (-), zero-pad (0), and sign (+ and space) flags, consuming one
// argument per verb other than %%. consumed reports how many args were used
// so callers (sprintf/printf builtins) can detect "too few arguments"
// separately from format errors.
func Sprintf(format string, args []Value, convfmt string) (out string, consumed int, err error) {
	var b strings.Builder
	ai := 0
	next := func() (Value, bool) {
		if ai >= len(args) {
			return Uninitialized, false
		}
		v := args[ai]
		ai++
		return v, true
	}

	i := 0
	n := len(format)
	for i < n {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}
		// parse a single conversion spec starting at format[i]
		start := i
		i++
		if i < n && format[i] == '%' {
			b.WriteByte('%')
			i++
			continue
		}

		spec := "%"
		// flags
		for i < n && strings.IndexByte("-+ 0#", format[i]) >= 0 {
			spec += string(format[i])
			i++
		}
		// width (possibly *)
		width := ""
		if i < n && format[i] == '*' {
			wv, ok := next()
			if !ok {
				return b.String(), ai, &FormatError{Format: format, Reason: "missing width argument"}
			}
			width = strconv.Itoa(int(wv.ToNumber()))
			i++
		} else {
			for i < n && format[i] >= '0' && format[i] <= '9' {
				width += string(format[i])
				i++
			}
		}
		spec += width
		// precision
		prec := ""
		hasPrec := false
		if i < n && format[i] == '.' {
			hasPrec = true
			i++
			if i < n && format[i] == '*' {
				pv, ok := next()
				if !ok {
					return b.String(), ai, &FormatError{Format: format, Reason: "missing precision argument"}
				}
				prec = strconv.Itoa(int(pv.ToNumber()))
				i++
			} else {
				for i < n && format[i] >= '0' && format[i] <= '9' {
					prec += string(format[i])
					i++
				}
			}
		}
		if hasPrec {
			spec += "." + prec
		}

		if i >= n {
			return b.String(), ai, &FormatError{Format: format, Reason: "truncated conversion at end of format"}
		}
		verb := format[i]
		i++

		arg, haveArg := next()
		if !haveArg {
			// no more arguments: AWK treats missing args as empty/zero
			arg = Uninitialized
		}

		switch verb {
		case 'd', 'i':
			b.WriteString(fmt.Sprintf(spec+"d", int64(arg.ToNumber())))
		case 'o':
			b.WriteString(fmt.Sprintf(spec+"o", int64(arg.ToNumber())))
		case 'x':
			b.WriteString(fmt.Sprintf(spec+"x", int64(arg.ToNumber())))
		case 'X':
			b.WriteString(fmt.Sprintf(spec+"X", int64(arg.ToNumber())))
		case 'u':
			v := int64(arg.ToNumber())
			if v < 0 {
				b.WriteString(fmt.Sprintf(spec+"d", uint32(v)))
			} else {
				b.WriteString(fmt.Sprintf(spec+"d", v))
			}
		case 'c':
			var s string
			if arg.kind == Str || arg.kind == StrNum {
				if len(arg.str) > 0 {
					s = string([]rune(arg.str)[0])
				}
			} else {
				s = string(rune(int64(arg.ToNumber())))
			}
			b.WriteString(fmt.Sprintf(spec+"s", s))
		case 's':
			b.WriteString(fmt.Sprintf(spec+"s", arg.ToString(convfmt)))
		case 'e':
			b.WriteString(fmt.Sprintf(spec+"e", arg.ToNumber()))
		case 'E':
			b.WriteString(fmt.Sprintf(spec+"E", arg.ToNumber()))
		case 'f', 'F':
			b.WriteString(fmt.Sprintf(spec+"f", arg.ToNumber()))
		case 'g':
			b.WriteString(fmt.Sprintf(spec+"g", arg.ToNumber()))
		case 'G':
			b.WriteString(fmt.Sprintf(spec+"G", arg.ToNumber()))
		default:
			return b.String(), ai, &FormatError{Format: format, Reason: fmt.Sprintf("unknown conversion %q", string(verb))}
		}
		_ = start
	}
	return b.String(), ai, nil
}
