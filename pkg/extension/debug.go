package extension

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/tawk-lang/tawk/pkg/value"
)

// Debug exposes the -x escape hatches: _sleep (pause the process),
// _dump (print a value to stderr without disturbing stdout), and exec
// (replace-less shell-out, returning the child's exit status the way
// system() does but without redirecting output through AWK's own
// print/printf streams).
type Debug struct{}

// NewDebug returns the -x extension bundle.
func NewDebug() *Debug { return &Debug{} }

func (d *Debug) Name() string       { return "debug" }
func (d *Debug) Keywords() []string { return []string{"_sleep", "_dump", "exec"} }

func (d *Debug) Arity(keyword string) int {
	switch keyword {
	case "_sleep":
		return 1
	case "_dump":
		return -1
	case "exec":
		return -1
	}
	return -1
}

func (d *Debug) Invoke(keyword string, args []value.Value, ctx Context) (value.Value, error) {
	switch keyword {
	case "_sleep":
		if len(args) != 1 {
			return value.Uninitialized, fmt.Errorf("_sleep takes exactly one argument")
		}
		time.Sleep(time.Duration(args[0].ToNumber() * float64(time.Second)))
		return value.Num(0), nil

	case "_dump":
		for _, a := range args {
			ctx.Warnf("%s", a.ToString("%.6g"))
		}
		return value.Num(float64(len(args))), nil

	case "exec":
		if len(args) == 0 {
			return value.Uninitialized, fmt.Errorf("exec requires a command name")
		}
		name := args[0].ToString("%.6g")
		argv := make([]string, len(args)-1)
		for i, a := range args[1:] {
			argv[i] = a.ToString("%.6g")
		}
		cmd := exec.Command(name, argv...)
		err := cmd.Run()
		if err == nil {
			return value.Num(0), nil
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return value.Num(float64(exitErr.ExitCode())), nil
		}
		return value.Num(-1), nil
	}
	return value.Uninitialized, fmt.Errorf("unknown debug keyword %q", keyword)
}
