// Command tawk is the tawk interpreter's command-line front end: it
// parses flags (pkg/cliargs), drives the parse/compile pipeline, and
// either dumps an intermediate form (-S/-s/-c) or runs the compiled
// program against ARGV/stdin (pkg/partitioner) through pkg/vm.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/cliargs"
	"github.com/tawk-lang/tawk/pkg/compiler"
	"github.com/tawk-lang/tawk/pkg/config"
	"github.com/tawk-lang/tawk/pkg/extension"
	"github.com/tawk-lang/tawk/pkg/parser"
	"github.com/tawk-lang/tawk/pkg/partitioner"
	"github.com/tawk-lang/tawk/pkg/repl"
	"github.com/tawk-lang/tawk/pkg/value"
	"github.com/tawk-lang/tawk/pkg/vm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	if len(argv) == 1 && (argv[0] == "repl" || argv[0] == "-repl") {
		if err := repl.New(config.Default()).Start(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "tawk:", err)
			return 1
		}
		return 0
	}

	opts, err := cliargs.Parse(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tawk:", err)
		return 1
	}
	if opts.HelpRequested {
		fmt.Print(opts.Usage)
		return 0
	}

	registry, err := buildRegistry(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tawk:", err)
		return 1
	}

	prog, perrs := parser.Parse(opts.Program, registry)
	if len(perrs) > 0 {
		for _, e := range perrs {
			fmt.Fprintln(os.Stderr, "tawk:", e)
		}
		return 1
	}

	if opts.Dump == cliargs.DumpAST {
		return dumpTo(opts.Output, spew.Sdump(prog))
	}

	bc, err := compiler.Compile(prog)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tawk:", err)
		return 1
	}

	switch opts.Dump {
	case cliargs.DumpTuples:
		var b strings.Builder
		bytecode.Disassemble(bc, &b)
		return dumpTo(opts.Output, b.String())
	case cliargs.EmitIR:
		return emitIR(bc, opts.Output)
	}

	return execute(bc, opts, registry)
}

// buildRegistry constructs the extension registry before parsing, so
// pkg/ast.Resolve can classify every call site's name against it up
// front: a call to an unregistered keyword is a SemanticError rather
// than a runtime surprise, and two extensions claiming the same
// keyword is reported here instead of silently losing the collision.
func buildRegistry(opts *cliargs.Options) (*extension.Registry, error) {
	reg := extension.NewRegistry()
	if err := reg.Register(extension.NewSockets()); err != nil {
		return nil, err
	}
	if err := reg.Register(extension.NewStdinWrap()); err != nil {
		return nil, err
	}
	if opts.EnableExec {
		if err := reg.Register(extension.NewDebug()); err != nil {
			return nil, err
		}
	}
	if opts.EnableCasting {
		if err := reg.Register(extension.NewCast()); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func dumpTo(output, text string) int {
	if output == "" {
		fmt.Print(text)
		return 0
	}
	if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "tawk:", err)
		return 1
	}
	return 0
}

func emitIR(bc *bytecode.Program, output string) int {
	w := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			fmt.Fprintln(os.Stderr, "tawk:", err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := bytecode.Encode(bc, w); err != nil {
		fmt.Fprintln(os.Stderr, "tawk:", err)
		return 1
	}
	return 0
}

func execute(bc *bytecode.Program, opts *cliargs.Options, registry *extension.Registry) int {
	machine := vm.New(bc, opts.Config, registry)

	argv := value.NewArrayContainer()
	argv.Set("0", value.NewStr("tawk"))
	for i, a := range opts.Args {
		argv.Set(strconv.Itoa(i+1), value.StrNum(a))
	}
	machine.SetGlobal("ARGV", value.NewArray(argv))
	machine.SetGlobal("ARGC", value.Num(float64(len(opts.Args)+1)))

	environ := value.NewArrayContainer()
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			environ.Set(kv[:i], value.StrNum(kv[i+1:]))
		}
	}
	machine.SetGlobal("ENVIRON", value.NewArray(environ))

	for _, a := range opts.PreAssigns {
		machine.SetGlobal(a.Name, a.Val)
	}

	src := newArgvSource(machine, opts)
	exitCode, err := machine.Run(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "tawk:", err)
		return 1
	}
	return exitCode
}

// argvSource walks ARGV[1..ARGC-1], applying deferred name=val
// assignments as it encounters them and opening each remaining entry as
// an input file (falling back to stdin if ARGV names no files at all),
// the way POSIX awk's main input loop is specified to behave.
type argvSource struct {
	vm   *vm.VM
	args []string
	idx  int

	cur      *partitioner.Partitioner
	curFile  *os.File
	filename string

	usedStdin  bool
	anyFileYet bool
	greedy     bool
}

func newArgvSource(machine *vm.VM, opts *cliargs.Options) *argvSource {
	return &argvSource{
		vm:     machine,
		args:   opts.Args,
		greedy: opts.Config.GreedyRS,
	}
}

func (s *argvSource) currentRS() string {
	return s.vm.Global("RS").ToString("%.6g")
}

func (s *argvSource) openNext() bool {
	if s.cur != nil {
		if s.curFile != nil {
			s.curFile.Close()
		}
		s.cur = nil
		s.curFile = nil
	}
	for s.idx < len(s.args) {
		a := s.args[s.idx]
		s.idx++
		if cliargs.IsAssignment(a) {
			assign, err := cliargs.ParseAssignment(a)
			if err == nil {
				s.vm.SetGlobal(assign.Name, assign.Val)
			}
			continue
		}
		s.anyFileYet = true
		if a == "-" || a == "/dev/stdin" {
			s.cur = partitioner.New(os.Stdin, s.currentRS(), s.greedy)
			s.filename = a
			s.usedStdin = true
			return true
		}
		f, err := os.Open(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tawk: can't open file %s\n", a)
			continue
		}
		s.curFile = f
		s.cur = partitioner.New(f, s.currentRS(), s.greedy)
		s.filename = a
		return true
	}
	if !s.anyFileYet && !s.usedStdin {
		s.usedStdin = true
		s.anyFileYet = true
		s.cur = partitioner.New(os.Stdin, s.currentRS(), s.greedy)
		s.filename = ""
		return true
	}
	return false
}

// NextRecord implements vm.RecordSource.
func (s *argvSource) NextRecord() (record, filename string, ok bool) {
	for {
		if s.cur == nil {
			if !s.openNext() {
				return "", "", false
			}
		}
		s.cur.SetRS(s.currentRS())
		rec, _, ok := s.cur.Next()
		if ok {
			return rec, s.filename, true
		}
		if s.curFile != nil {
			s.curFile.Close()
		}
		s.cur = nil
		s.curFile = nil
	}
}

// SkipFile implements vm.RecordSource (nextfile).
func (s *argvSource) SkipFile() {
	if s.curFile != nil {
		s.curFile.Close()
	}
	s.cur = nil
	s.curFile = nil
}
