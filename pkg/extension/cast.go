package extension

import (
	"fmt"
	"math"

	"github.com/tawk-lang/tawk/pkg/value"
)

// Cast exposes the -y casting builtins: _INTEGER truncates toward zero
// and tags the result as a true number, _DOUBLE forces floating-point
// interpretation, and _STRING forces a value to be treated as a plain
// string even when it looks numeric (the inverse of a numeric string).
type Cast struct{}

// NewCast returns the -y extension bundle.
func NewCast() *Cast { return &Cast{} }

func (c *Cast) Name() string       { return "cast" }
func (c *Cast) Keywords() []string { return []string{"_INTEGER", "_DOUBLE", "_STRING"} }

func (c *Cast) Arity(keyword string) int { return 1 }

func (c *Cast) Invoke(keyword string, args []value.Value, ctx Context) (value.Value, error) {
	if len(args) != 1 {
		return value.Uninitialized, fmt.Errorf("%s takes exactly one argument", keyword)
	}
	switch keyword {
	case "_INTEGER":
		return value.Num(math.Trunc(args[0].ToNumber())), nil
	case "_DOUBLE":
		return value.Num(args[0].ToNumber()), nil
	case "_STRING":
		return value.NewStr(args[0].ToString("%.6g")), nil
	}
	return value.Uninitialized, fmt.Errorf("unknown cast keyword %q", keyword)
}
