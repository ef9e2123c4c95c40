// Package repl implements an interactive one-liner AWK shell, grounded
// line-for-line in akashmaji946-go-mix/repl/repl.go's chzyer/readline +
// fatih/color banner/prompt pattern, re-themed for AWK: each line the
// user enters is compiled as an implicit BEGIN block and run against a
// REPL-persistent VM, so variables and array contents survive across
// lines the same way the teacher's persistent evaluator does.
package repl

import (
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/compiler"
	"github.com/tawk-lang/tawk/pkg/config"
	"github.com/tawk-lang/tawk/pkg/parser"
	"github.com/tawk-lang/tawk/pkg/vm"
)

var (
	blueColor   = color.New(color.FgBlue)
	yellowColor = color.New(color.FgYellow)
	redColor    = color.New(color.FgRed)
	greenColor  = color.New(color.FgGreen)
	cyanColor   = color.New(color.FgCyan)
)

const banner = `  _               _
 | |_ __ ___ __ _| | __
 | __/ _' \ V  V / |/ /
  \__\__,_|\_/\_/|_|\_\`

const version = "0.1.0"
const separator = "----------------------------------------"

// Repl is an interactive AWK session: a persistent VM plus the prompt
// chrome shown around it.
type Repl struct {
	Prompt string
	Config config.Config
}

// New returns a Repl ready to Start.
func New(cfg config.Config) *Repl {
	return &Repl{Prompt: "tawk> ", Config: cfg}
}

// printBanner prints the welcome banner and usage instructions.
func (r *Repl) printBanner(w io.Writer) {
	blueColor.Fprintf(w, "%s\n", separator)
	greenColor.Fprintf(w, "%s\n", banner)
	blueColor.Fprintf(w, "%s\n", separator)
	yellowColor.Fprintf(w, "tawk repl %s\n", version)
	blueColor.Fprintf(w, "%s\n", separator)
	cyanColor.Fprintf(w, "%s\n", "Enter an AWK statement and press enter.")
	cyanColor.Fprintf(w, "%s\n", "Variables and arrays persist across lines.")
	cyanColor.Fprintf(w, "%s\n", "Type '.exit' or press Ctrl+D to quit.")
	blueColor.Fprintf(w, "%s\n", separator)
}

// Start runs the REPL loop against w until the user quits or EOF.
func (r *Repl) Start(w io.Writer) error {
	r.printBanner(w)

	rl, err := readline.New(r.Prompt)
	if err != nil {
		return err
	}
	defer rl.Close()

	machine := vm.New(&bytecode.Program{}, r.Config, nil)

	for {
		line, err := rl.Readline()
		if err != nil {
			fmt.Fprintln(w, "goodbye")
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".exit" || line == ".quit" {
			fmt.Fprintln(w, "goodbye")
			return nil
		}
		rl.SaveHistory(line)
		r.eval(w, machine, line)
	}
}

// eval compiles line as an implicit BEGIN block and runs it against
// machine, printing parse/compile/runtime errors in red without
// aborting the session, same recovery contract as the teacher's REPL.
func (r *Repl) eval(w io.Writer, machine *vm.VM, line string) {
	defer func() {
		if rec := recover(); rec != nil {
			redColor.Fprintf(w, "runtime error: %v\n", rec)
		}
	}()

	prog, errs := parser.Parse("BEGIN{\n"+line+"\n}", nil)
	if len(errs) > 0 {
		for _, e := range errs {
			redColor.Fprintf(w, "%s\n", e.Error())
		}
		return
	}

	bc, err := compiler.Compile(prog)
	if err != nil {
		redColor.Fprintf(w, "compile error: %v\n", err)
		return
	}

	machine.SetProgram(bc)
	if _, err := machine.Run(nil); err != nil {
		redColor.Fprintf(w, "%v\n", err)
	}
}
