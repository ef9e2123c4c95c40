// Package config defines the single immutable configuration record
// threaded through to the VM and Partitioner at construction time, per
// the "Global configuration" design note: every knob that changes
// interpreter behavior without changing program semantics lives here
// rather than as scattered package-level flags.
package config

// Config carries every cross-cutting runtime knob. A Config is built
// once by pkg/cliargs from flags (-v assignments are kept apart, in
// cliargs.Options.PreAssigns), then handed to
// both the VM and the Partitioner — neither package mutates it, though
// the VM's own FS/OFS/RS/ORS/SUBSEP globals (which the AWK program can
// reassign at runtime) start from these values and then live in the
// VM's variable frame, independent of this struct.
type Config struct {
	FS      string
	OFS     string
	ORS     string
	RS      string
	Subsep  string
	ConvFmt string
	OFmt    string

	// SortedArrays makes for-in iterate array keys in sorted order
	// instead of insertion order.
	SortedArrays bool
	// GreedyRS selects greedy regex matching when RS is a multi-character
	// extended regular expression (gawk-style RS extension); the default
	// is non-greedy, which tends to match POSIX tools' expectations for
	// "shortest separator" semantics.
	GreedyRS bool
	// CatchFormatErrors makes a malformed printf/sprintf format raise a
	// runtime error instead of silently falling back to a best-effort
	// rendering.
	CatchFormatErrors bool
	// NoAutoInput disables the VM's automatic per-record main-rule loop
	// (-ni): BEGIN and END still run, but main/pattern-action rules are
	// never driven by ARGV/stdin automatically, leaving input consumption
	// to explicit getline calls or to an extension instead.
	NoAutoInput bool

	Locale string
}

// Default returns the standard POSIX awk defaults.
func Default() Config {
	return Config{
		FS:      " ",
		OFS:     " ",
		ORS:     "\n",
		RS:      "\n",
		Subsep:  "\x1c",
		ConvFmt: "%.6g",
		OFmt:    "%.6g",
	}
}
