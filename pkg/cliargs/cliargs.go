// Package cliargs implements the full command-line contract (spec.md
// §6) on top of a single root cobra.Command with a pflag-backed flag
// set (ground: conneroisu-gix's cmd/ tree, which wires subcommands
// through cobra.Command and pflag.FlagSet the same way). The AWK
// command line has no subcommands, only flags and positionals, so one
// root command carries every flag; positional-argument handling (the
// "first positional is the script unless -f was given" rule, ARGV
// population, and deferred name=val assignments) is hand-written per
// spec.md §6, since no pack example demonstrates that specific shape.
package cliargs

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tawk-lang/tawk/pkg/config"
	"github.com/tawk-lang/tawk/pkg/value"
)

// DumpMode picks what Run does instead of (or in addition to) executing
// the compiled program.
type DumpMode int

const (
	DumpNone DumpMode = iota
	DumpTuples         // -s
	DumpAST            // -S
	EmitIR             // -c
)

// Assignment is a -v flag or a deferred positional name=val argument.
type Assignment struct {
	Name string
	Val  value.Value
}

// Options is the fully parsed command line.
type Options struct {
	Config config.Config

	// Program is the AWK source text: either the concatenation of every
	// -f file (in order) or the first positional argument.
	Program string

	// Args holds every positional argument after the script (or all of
	// them, if -f was given): ARGV[1..], a mix of input filenames and
	// "name=val" deferred assignments, in command-line order.
	Args []string

	PreAssigns []Assignment // -v, applied before BEGIN runs

	Dump   DumpMode
	Output string // -o

	// HelpRequested means -h/-?/--help was seen; Usage holds the text to
	// print and cmd/tawk should exit 0 without compiling or running
	// anything.
	HelpRequested bool
	Usage         string

	EnableExec    bool // -x: _sleep/_dump/exec builtins
	EnableCasting bool // -y: _INTEGER/_DOUBLE/_STRING casting builtins
	EnableExt     bool // -ext: user-defined extensions
}

// ConfigError reports a malformed command line (spec.md §7's
// argument-error kind).
type ConfigError struct{ Message string }

func (e *ConfigError) Error() string { return e.Message }

// normalizeArgv rewrites this AWK dialect's handful of multi-letter
// single-dash flags (-ni, -ext, -?) to the double-dash spelling pflag
// expects, and a standalone "-" token into a guard token that stops
// cobra's own flag scanning (spec.md §6: "(bare dash) terminates option
// processing").
func normalizeArgv(argv []string) (rewritten []string, tail []string) {
	for i, a := range argv {
		if a == "-" {
			rewritten = append(rewritten, "--")
			tail = argv[i:] // the "-" itself still belongs to the positionals
			return rewritten, tail
		}
		switch a {
		case "-ni":
			rewritten = append(rewritten, "--ni")
		case "-ext":
			rewritten = append(rewritten, "--ext")
		case "-?":
			rewritten = append(rewritten, "--help")
		default:
			rewritten = append(rewritten, a)
		}
	}
	return rewritten, nil
}

// Parse builds Options from argv (normally os.Args[1:]).
func Parse(argv []string) (*Options, error) {
	cfg := config.Default()
	opts := &Options{Config: cfg}

	var fsFlag string
	var progFiles []string
	var vAssigns []string
	var output string
	var emitIR, dumpTuples, dumpAST bool
	var locale string

	root := &cobra.Command{
		Use:           "tawk",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
	}
	flags := root.Flags()
	flags.StringVarP(&fsFlag, "F", "F", "", "set FS")
	flags.StringArrayVarP(&progFiles, "f", "f", nil, "read program text from file (repeatable)")
	flags.StringArrayVarP(&vAssigns, "v", "v", nil, "pre-execution assignment name=val (repeatable)")
	flags.StringVarP(&output, "o", "o", "", "output file for -c/-s/-S")
	flags.BoolVarP(&emitIR, "c", "c", false, "emit serialised tuple IR instead of executing")
	flags.BoolVarP(&dumpTuples, "s", "s", false, "dump tuple IR as text")
	flags.BoolVarP(&dumpAST, "S", "S", false, "dump the AST as text")
	flags.BoolVarP(&opts.EnableExec, "x", "x", false, "enable _sleep/_dump/exec builtins")
	flags.BoolVarP(&opts.EnableCasting, "y", "y", false, "enable _INTEGER/_DOUBLE/_STRING builtins")
	flags.BoolVarP(&cfg.SortedArrays, "t", "t", false, "sorted-key associative arrays")
	flags.BoolVarP(&cfg.CatchFormatErrors, "r", "r", false, "do not swallow format errors")
	flags.BoolVar(&opts.EnableExt, "ext", false, "enable user-defined extensions")
	flags.BoolVar(&cfg.NoAutoInput, "ni", false, "do not auto-consume input via main rules")
	flags.StringVar(&locale, "locale", "", "numeric/formatting locale tag")

	var positional []string
	root.RunE = func(cmd *cobra.Command, args []string) error {
		positional = args
		return nil
	}
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		opts.HelpRequested = true
		opts.Usage = cmd.UsageString()
	})

	rewritten, tail := normalizeArgv(argv)
	root.SetArgs(rewritten)
	if err := root.Execute(); err != nil {
		return nil, &ConfigError{Message: err.Error()}
	}
	if opts.HelpRequested {
		return opts, nil
	}
	positional = append(positional, tail...)

	if fsFlag != "" {
		cfg.FS = fsFlag
	}
	cfg.Locale = locale
	opts.Config = cfg

	if emitIR {
		opts.Dump = EmitIR
	} else if dumpTuples {
		opts.Dump = DumpTuples
	} else if dumpAST {
		opts.Dump = DumpAST
	}
	opts.Output = output

	for _, a := range vAssigns {
		assign, err := parseAssignment(a)
		if err != nil {
			return nil, err
		}
		opts.PreAssigns = append(opts.PreAssigns, assign)
	}

	if len(progFiles) > 0 {
		var b strings.Builder
		for _, f := range progFiles {
			src, err := readProgramFile(f)
			if err != nil {
				return nil, &ConfigError{Message: err.Error()}
			}
			b.WriteString(src)
			b.WriteString("\n")
		}
		opts.Program = b.String()
		opts.Args = positional
	} else {
		if len(positional) == 0 {
			return nil, &ConfigError{Message: "no program text given (pass script text, or -f file)"}
		}
		opts.Program = positional[0]
		opts.Args = positional[1:]
	}

	return opts, nil
}

// readProgramFile reads one -f script file; "-" names stdin, matching
// the same convention the input/getline paths use for filenames.
func readProgramFile(name string) (string, error) {
	if name == "-" {
		data, err := os.ReadFile("/dev/stdin")
		return string(data), err
	}
	data, err := os.ReadFile(name)
	return string(data), err
}

var assignRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)

// parseAssignment parses a "-v name=val" flag or a deferred positional
// ARGV entry; val is classified number-vs-string via value.StrNum per
// spec.md §6's "parsed as int, then double, then string" rule (the
// value package's numeric-string detection already implements that
// same classification for field/argument values).
func parseAssignment(raw string) (Assignment, error) {
	m := assignRe.FindStringSubmatch(raw)
	if m == nil {
		return Assignment{}, &ConfigError{Message: fmt.Sprintf("malformed assignment %q, want name=val", raw)}
	}
	return Assignment{Name: m[1], Val: value.StrNum(unescapeAssignVal(m[2]))}, nil
}

// IsAssignment reports whether arg looks like a "name=val" deferred
// assignment rather than an input filename, per spec.md §6.
func IsAssignment(arg string) bool { return assignRe.MatchString(arg) }

// ParseAssignment is the exported form of parseAssignment, used by
// cmd/tawk to apply ARGV's deferred name=val entries as they're
// encountered during the main input loop.
func ParseAssignment(raw string) (Assignment, error) { return parseAssignment(raw) }

// unescapeAssignVal processes the handful of backslash escapes POSIX
// awk recognizes in a -v/ARGV assignment's value (\n \t \\ and the
// like), matching how a string literal in the program text itself
// would be unescaped.
func unescapeAssignVal(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
