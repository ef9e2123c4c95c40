// Package vm implements the AWK virtual machine (the AVM): a
// stack-based interpreter that executes the tuple IR pkg/compiler
// produces. It is the final stage in the execution pipeline:
//
//   Source -> Lexer -> Parser/AST -> Compiler -> Tuple IR -> VM -> Execution
//
// Architecture:
//
// The VM holds five pieces of state:
//
//  1. Operand stack: holds intermediate values during expression
//     evaluation.
//  2. Call stack: one frame per active user-function call, each frame
//     owning its own local-variable slots (locals are never shared
//     between calls, matching AWK's dynamic-scope-free, call-by-value
//     semantics for scalars).
//  3. Globals: a name -> Value map holding every global variable,
//     predefined (FS, NR, ...) and user-defined alike.
//  4. Field state: $0 plus the split $1..$NF array, rebuilt at once in
//     whichever direction changed ($0 write re-splits fields; a field
//     write rejoins $0).
//  5. I/O subsystem: cached open streams for print/printf redirection
//     and getline, keyed by filename/command the way the `close()`
//     builtin expects.
//
// Execution model:
//
// Tuples execute sequentially from an instruction pointer (ip); control
// flow opcodes (OpJump and friends) set ip directly. BEGIN, the main
// per-record loop, and END are three separate tuple ranges in the same
// flat Tuples slice (pkg/bytecode.Program.BeginStart/MainStart/EndStart
// etc.); user function bodies are appended after END and are only
// reached via OpCall, which pushes a call frame and jumps ip to the
// function's Entry, then OpReturn pops the frame and resumes at the
// saved return address — so a phase's tuple range is not a hard upper
// bound on ip, only a "done" check once the call stack is empty again.
//
// next/nextfile/exit unwind through arbitrarily deep expression and
// statement nesting to reach the per-record driver; rather than thread
// a control-flow return value through every opcode dispatch, they are
// implemented as typed panics the driver recovers, the same way a
// RuntimeError already has to unwind arbitrary nesting to report a
// stack trace.
package vm

import (
	"fmt"
	"math/rand"
	"os"
	"regexp"

	"github.com/tawk-lang/tawk/pkg/bytecode"
	"github.com/tawk-lang/tawk/pkg/config"
	"github.com/tawk-lang/tawk/pkg/extension"
	"github.com/tawk-lang/tawk/pkg/value"
)

// RecordSource supplies the VM's main loop with records; pkg/partitioner
// (wrapped per-ARGV-entry by cmd/tawk) implements it for real input,
// tests can fake it.
type RecordSource interface {
	// NextRecord returns the next record and its source filename (for
	// FILENAME), or ok=false once every input source is exhausted.
	NextRecord() (record, filename string, ok bool)
	// SkipFile abandons the current input source (nextfile).
	SkipFile()
}

type frame struct {
	locals   []value.Value
	returnIP int
	fnName   string
}

// iterFrame is a for-(k in arr) enumerator: a snapshot of the array's keys
// at OpIterInit time plus a cursor, held on a side stack since the
// operand stack only ever holds value.Value.
type iterFrame struct {
	keys []string
	pos  int
}

// control-flow signals, recovered by the appropriate driver loop.
type ctrlNext struct{}
type ctrlNextFile struct{}
type ctrlExit struct{ code int }

// VM is the AWK virtual machine.
type VM struct {
	prog *bytecode.Program
	cfg  config.Config
	ext  *extension.Registry

	stack []value.Value
	ip    int

	globals map[string]value.Value
	frames  []*frame

	fields []string // fields[i-1] is $i, for $1..$NF
	line   string   // $0

	out *ioStreams
	src RecordSource // the main input, also read by a bare `getline`/`getline var`

	iterStack []iterFrame
	ranges    map[int]bool // PatternRange active/inactive state, keyed by range id

	regexCache map[string]*regexp.Regexp
	randSrc    *rand.Rand
	randSeed   float64

	exitCode int
	exiting  bool
}

// New constructs a VM ready to run prog with the given configuration.
// registry is the extension registry resolved against at parse time
// (see pkg/extension's package doc); pass nil to have New build one
// containing only the two extensions shipped by default (sockets,
// stdinwrap) — the same registry passed to parser.Parse must be passed
// here too, since a parse-time OpInvokeExtension reference to a keyword
// only dispatches correctly if this VM's registry can still resolve it.
func New(prog *bytecode.Program, cfg config.Config, registry *extension.Registry) *VM {
	if registry == nil {
		registry = extension.NewRegistry()
		_ = registry.Register(extension.NewSockets())
		_ = registry.Register(extension.NewStdinWrap())
	}
	vm := &VM{
		prog:       prog,
		cfg:        cfg,
		globals:    map[string]value.Value{},
		out:        newIOStreams(),
		ext:        registry,
		ranges:     map[int]bool{},
		regexCache: map[string]*regexp.Regexp{},
		randSrc:    rand.New(rand.NewSource(0)),
	}
	vm.globals["FS"] = value.NewStr(cfg.FS)
	vm.globals["OFS"] = value.NewStr(cfg.OFS)
	vm.globals["ORS"] = value.NewStr(cfg.ORS)
	vm.globals["RS"] = value.NewStr(cfg.RS)
	vm.globals["SUBSEP"] = value.NewStr(cfg.Subsep)
	vm.globals["CONVFMT"] = value.NewStr(cfg.ConvFmt)
	vm.globals["OFMT"] = value.NewStr(cfg.OFmt)
	vm.globals["NR"] = value.Num(0)
	vm.globals["NF"] = value.Num(0)
	vm.globals["FNR"] = value.Num(0)
	vm.globals["FILENAME"] = value.NewStr("")
	vm.globals["RSTART"] = value.Num(0)
	vm.globals["RLENGTH"] = value.Num(-1)
	vm.globals["ARGC"] = value.Num(0)

	vm.setRecord("")
	return vm
}

// SetGlobal sets (or creates) a global variable, used by cmd/tawk to
// install ARGV/ARGC/ENVIRON and -v assignments before Run.
func (vm *VM) SetGlobal(name string, v value.Value) { vm.globals[name] = v }

// Global reads back a global variable.
func (vm *VM) Global(name string) value.Value { return vm.globals[name] }

// SetProgram installs a new compiled program to run next, leaving
// globals, fields, and open I/O streams untouched. The REPL uses this
// to run each one-liner as its own BEGIN block against one persistent
// VM, the way the teacher's REPL evaluates each input against one
// persistent evaluator.
func (vm *VM) SetProgram(prog *bytecode.Program) { vm.prog = prog }

func (vm *VM) convfmt() string { return vm.globals["CONVFMT"].ToString("%.6g") }
func (vm *VM) ofmt() string    { return vm.globals["OFMT"].ToString("%.6g") }
func (vm *VM) ofs() string     { return vm.globals["OFS"].ToString(vm.convfmt()) }
func (vm *VM) ors() string     { return vm.globals["ORS"].ToString(vm.convfmt()) }
func (vm *VM) subsep() string  { return vm.globals["SUBSEP"].ToString(vm.convfmt()) }
func (vm *VM) fs() string      { return vm.globals["FS"].ToString(vm.convfmt()) }

// Run executes BEGIN, then the main per-record loop against src (if the
// program has main/END rules and src is non-nil), then END, returning
// the process exit code an `exit` statement requested (0 otherwise).
func (vm *VM) Run(src RecordSource) (exitCode int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(*RuntimeError); ok {
				err = rerr
				return
			}
			panic(r)
		}
	}()

	vm.src = src
	completed := vm.runPhase(vm.prog.BeginStart, vm.prog.BeginEnd, "BEGIN")

	hasMainOrEnd := vm.prog.MainStart < vm.prog.MainEnd || vm.prog.EndStart < vm.prog.EndEnd
	if completed && !vm.exiting && !vm.cfg.NoAutoInput && src != nil && hasMainOrEnd {
		vm.mainLoop(src)
	}

	vm.runPhase(vm.prog.EndStart, vm.prog.EndEnd, "END")
	vm.flushAll()
	return vm.exitCode, nil
}

// mainLoop pulls records from src and runs the main rule range once per
// record until src is exhausted or exit is requested.
func (vm *VM) mainLoop(src RecordSource) {
	for {
		rec, filename, ok := src.NextRecord()
		if !ok {
			return
		}
		vm.advanceRecordMeta(filename)
		vm.setRecord(rec)

		if vm.runRecord(src) {
			return
		}
	}
}

// advanceRecordMeta bumps NR and FNR and updates FILENAME the way
// reading a new record from the main input always does, whether that
// record came from mainLoop's own driver or from a bare `getline`/
// `getline var` pulling another record from the same source.
func (vm *VM) advanceRecordMeta(filename string) {
	vm.globals["NR"] = value.Num(vm.globals["NR"].ToNumber() + 1)
	if vm.globals["FILENAME"].ToString("") != filename {
		vm.globals["FNR"] = value.Num(0)
	}
	vm.globals["FNR"] = value.Num(vm.globals["FNR"].ToNumber() + 1)
	vm.globals["FILENAME"] = value.NewStr(filename)
}

// runRecord executes the main tuple range for the current record,
// handling next/nextfile/exit. It reports whether the main loop should
// stop entirely (exit was requested).
func (vm *VM) runRecord(src RecordSource) (stop bool) {
	defer func() {
		if r := recover(); r != nil {
			switch sig := r.(type) {
			case ctrlNext:
				return
			case ctrlNextFile:
				src.SkipFile()
				return
			case ctrlExit:
				vm.exiting = true
				vm.exitCode = sig.code
				stop = true
				return
			}
			panic(r)
		}
	}()
	vm.exec(vm.prog.MainStart, vm.prog.MainEnd)
	return false
}

// runPhase executes tuples [start,end), catching an exit request and
// recording it; it reports whether the phase ran to completion.
func (vm *VM) runPhase(start, end int, label string) (completed bool) {
	if start >= end {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			if ex, ok := r.(ctrlExit); ok {
				vm.exiting = true
				vm.exitCode = ex.code
				completed = false
				return
			}
			if _, ok := r.(ctrlNext); ok {
				// next/nextfile outside a record loop (e.g. in BEGIN/END)
				// has nothing to advance to; treat it as a no-op.
				completed = true
				return
			}
			if _, ok := r.(ctrlNextFile); ok {
				completed = true
				return
			}
			panic(r)
		}
	}()
	vm.exec(start, end)
	return true
}

// exec runs the fetch-decode-execute loop starting at start until ip
// reaches end with an empty call stack (a deeper call may carry ip past
// end while frames remain outstanding; the phase isn't done until every
// call made from inside it has returned).
func (vm *VM) exec(start, end int) {
	depth := len(vm.frames)
	vm.ip = start
	for {
		if vm.ip >= end && len(vm.frames) <= depth {
			return
		}
		vm.step()
	}
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	n := len(vm.stack)
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v
}

func (vm *VM) top() value.Value { return vm.stack[len(vm.stack)-1] }

// Warnf implements extension.Context, letting the VM be passed directly
// as the context argument to an Extension's Invoke.
func (vm *VM) Warnf(format string, args ...any) {
	vm.out.stdout.Flush()
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func (vm *VM) raise(format string, args ...any) {
	name := ""
	if len(vm.frames) > 0 {
		name = vm.frames[len(vm.frames)-1].fnName
	}
	line := 0
	if vm.ip < len(vm.prog.Tuples) {
		line = vm.prog.Tuples[vm.ip].Line
	}
	panic(newRuntimeError(fmt.Sprintf(format, args...), []StackFrame{{Name: name, TupleIndex: vm.ip, SourceLine: line}}))
}

func operand[T any](t bytecode.Tuple, i int) T {
	v, _ := t.Operands[i].(T)
	return v
}

// regex compiles (and caches) an ERE source string. AWK regexes compile
// lazily and are reused across iterations, since the same /re/ literal
// or dynamic string is typically matched once per record.
func (vm *VM) regex(src string) *regexp.Regexp {
	if re, ok := vm.regexCache[src]; ok {
		return re
	}
	re, err := regexp.Compile(src)
	if err != nil {
		vm.raise("invalid regular expression %q: %v", src, err)
	}
	vm.regexCache[src] = re
	return re
}
