// Package partitioner implements the record partitioner: it sits on top
// of a character stream (a file or stdin opened by cmd/tawk for each
// ARGV entry) and hands the VM one record at a time, governed by the
// current RS value.
//
// Record state (spec.md §3 "Record state"): a Partitioner holds the
// underlying reader, a growable unconsumed-text buffer, an
// end-of-stream flag, and — when RS is neither empty nor a single
// character — a compiled record-separator regular expression.
package partitioner

import (
	"io"
	"regexp"
	"strings"
)

const readChunk = 64 * 1024

// Partitioner splits an input stream into records per the current RS.
type Partitioner struct {
	r   io.Reader
	buf []byte
	eof bool

	rs     string
	re     *regexp.Regexp
	greedy bool
}

// New constructs a Partitioner reading from r, using the POSIX record
// separator rs. greedy enables greedy-RS mode (see SetRS).
func New(r io.Reader, rs string, greedy bool) *Partitioner {
	p := &Partitioner{r: r, greedy: greedy}
	p.SetRS(rs)
	return p
}

// SetRS reconfigures the active separator. Per spec.md §4.5:
//   - "" selects paragraph mode (blank-line-separated records; a leading
//     run of blank lines is skipped, matching awk's documented behavior
//     rather than the "\z consume-to-EOF" reading some implementations
//     take — see DESIGN.md for this Open Question's resolution).
//   - a single character (including "\n" and "\r") is matched literally
//     by a byte scan, the fast path. "\r\n" is two characters, so it is
//     not on the fast path: it goes through the regex path below, where
//     it matches only that literal pair.
//   - anything else is compiled as an extended regular expression with
//     DOTALL/MULTILINE semantics, so RS can span or anchor on newlines.
func (p *Partitioner) SetRS(rs string) {
	if rs == p.rs {
		return
	}
	p.rs = rs
	p.re = nil
	if rs == "" || len(rs) <= 1 {
		return
	}
	pat := rs
	if !p.greedy {
		pat = nonGreedy(pat)
	}
	if re, err := regexp.Compile("(?sm:" + pat + ")"); err == nil {
		p.re = re
	}
}

// nonGreedy rewrites *, +, and every {...} quantifier in an ERE to their
// non-greedy forms, implementing the default (non-greedy) RS-regex
// matching policy spec.md §4.5 calls for.
func nonGreedy(pat string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pat); i++ {
		c := pat[i]
		b.WriteByte(c)
		switch c {
		case '\\':
			if i+1 < len(pat) {
				i++
				b.WriteByte(pat[i])
			}
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '*', '+':
			if !inClass {
				b.WriteByte('?')
			}
		case '}':
			if !inClass && i > 0 {
				b.WriteByte('?')
			}
		}
	}
	return b.String()
}

func (p *Partitioner) fill() bool {
	if p.eof {
		return false
	}
	chunk := make([]byte, readChunk)
	n, err := p.r.Read(chunk)
	if n > 0 {
		p.buf = append(p.buf, chunk[:n]...)
	}
	if err != nil {
		p.eof = true
	}
	return n > 0
}

// Next returns the next record and the separator text that terminated
// it (rt, AWK's RT extension variable), or ok=false at end of stream.
func (p *Partitioner) Next() (record, rt string, ok bool) {
	switch {
	case p.rs == "":
		return p.nextParagraph()
	case len(p.rs) <= 1:
		return p.nextLiteral()
	default:
		return p.nextRegex()
	}
}

func (p *Partitioner) nextLiteral() (string, string, bool) {
	sep := byte('\n')
	if len(p.rs) == 1 {
		sep = p.rs[0]
	}
	for {
		if i := indexByte(p.buf, sep); i >= 0 {
			rec := string(p.buf[:i])
			p.buf = p.buf[i+1:]
			return rec, string(sep), true
		}
		if !p.fill() {
			if len(p.buf) == 0 {
				return "", "", false
			}
			rec := string(p.buf)
			p.buf = nil
			return rec, "", true
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// nextParagraph skips any leading blank lines, then reads up to the next
// run of two-or-more newlines (or EOF), matching awk's blank-line
// paragraph mode; trailing newlines of the separating run become RT.
func (p *Partitioner) nextParagraph() (string, string, bool) {
	for {
		for len(p.buf) > 0 && p.buf[0] == '\n' {
			p.buf = p.buf[1:]
		}
		if len(p.buf) > 0 || !p.fill() {
			break
		}
	}
	if len(p.buf) == 0 && p.eof {
		return "", "", false
	}
	for {
		if idx := paragraphBreak(p.buf); idx >= 0 {
			rec := string(p.buf[:idx])
			j := idx
			for j < len(p.buf) && p.buf[j] == '\n' {
				j++
			}
			rt := string(p.buf[idx:j])
			p.buf = p.buf[j:]
			return rec, rt, true
		}
		if !p.fill() {
			rec := strings.TrimRight(string(p.buf), "\n")
			p.buf = nil
			if rec == "" {
				return "", "", false
			}
			return rec, "", true
		}
	}
}

// paragraphBreak finds the start of the first run of 2+ consecutive
// newlines in buf, or -1 if none is present yet.
func paragraphBreak(buf []byte) int {
	run := 0
	for i, c := range buf {
		if c == '\n' {
			run++
			if run == 2 {
				return i - 1
			}
		} else {
			run = 0
		}
	}
	return -1
}

// nextRegex implements the general RS-regex path with greedy-RS support
// (spec.md §4.5): after finding a match that abuts the end of the
// buffer, more input is pulled and the match retried, since a match
// touching the buffer boundary might extend given more text.
func (p *Partitioner) nextRegex() (string, string, bool) {
	for {
		loc := p.re.FindIndex(p.buf)
		if loc != nil && (loc[1] < len(p.buf) || p.eof) {
			rec := string(p.buf[:loc[0]])
			rt := string(p.buf[loc[0]:loc[1]])
			p.buf = p.buf[loc[1]:]
			return rec, rt, true
		}
		if !p.fill() {
			if len(p.buf) == 0 {
				return "", "", false
			}
			rec := string(p.buf)
			p.buf = nil
			return rec, "", true
		}
	}
}
