package vm

import (
	"bufio"
	"io"
	"os"
	"os/exec"

	"github.com/tawk-lang/tawk/pkg/partitioner"
)

// redirectKind mirrors bytecode.RedirectKind with names local to this
// file's helpers.
type redirectKind int

const (
	redirNone redirectKind = iota
	redirTruncate
	redirAppend
	redirPipe
)

func toRedirectKind(k int) redirectKind {
	switch k {
	case 1:
		return redirTruncate
	case 2:
		return redirAppend
	case 3:
		return redirPipe
	default:
		return redirNone
	}
}

// outStream is a cached output destination opened for `>`, `>>`, or `|`
// redirection, keyed by the literal filename/command string the script
// used — the same key `close()` expects.
type outStream struct {
	w      *bufio.Writer
	closer io.Closer
	cmd    *exec.Cmd
}

// inStream is a cached input source opened for `getline < file` or
// `cmd | getline`.
type inStream struct {
	r      *bufio.Reader
	closer io.Closer
	cmd    *exec.Cmd
	eof    bool

	// part is created lazily on first getline read against this stream,
	// using whatever RS is current at that moment (spec.md §4.5's record
	// partitioner, reused here rather than re-implemented for streams
	// getline opens outside the main input).
	part *partitioner.Partitioner
}

type ioStreams struct {
	stdout *bufio.Writer
	stderr *bufio.Writer
	out    map[string]*outStream
	in     map[string]*inStream
}

func newIOStreams() *ioStreams {
	return &ioStreams{
		stdout: bufio.NewWriter(os.Stdout),
		stderr: bufio.NewWriter(os.Stderr),
		out:    map[string]*outStream{},
		in:     map[string]*inStream{},
	}
}

// writerFor resolves a print/printf destination to a *bufio.Writer,
// opening (and caching) the underlying file or pipe on first use.
func (s *ioStreams) writerFor(kind redirectKind, dest string) (*bufio.Writer, error) {
	if kind == redirNone {
		return s.stdout, nil
	}
	if entry, ok := s.out[dest]; ok {
		return entry.w, nil
	}
	var entry *outStream
	switch kind {
	case redirTruncate:
		f, err := os.Create(dest)
		if err != nil {
			return nil, err
		}
		entry = &outStream{w: bufio.NewWriter(f), closer: f}
	case redirAppend:
		f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		entry = &outStream{w: bufio.NewWriter(f), closer: f}
	case redirPipe:
		cmd := exec.Command("sh", "-c", dest)
		cmd.Stdout = stdoutPassthrough{s}
		cmd.Stderr = os.Stderr
		pipeIn, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		entry = &outStream{w: bufio.NewWriter(pipeIn), closer: pipeIn, cmd: cmd}
	}
	s.out[dest] = entry
	return entry.w, nil
}

// readerFor resolves a getline source to a *bufio.Reader, opening (and
// caching) the underlying file or command on first use. isCmd
// distinguishes `cmd | getline` from `getline < file`.
func (s *ioStreams) readerFor(source string, isCmd bool) (*inStream, error) {
	if in, ok := s.in[source]; ok {
		return in, nil
	}
	var in *inStream
	if isCmd {
		cmd := exec.Command("sh", "-c", source)
		cmd.Stderr = os.Stderr
		pipeOut, err := cmd.StdoutPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		in = &inStream{r: bufio.NewReader(pipeOut), closer: pipeOut, cmd: cmd}
	} else {
		if source == "-" || source == "/dev/stdin" {
			in = &inStream{r: bufio.NewReader(os.Stdin)}
		} else {
			f, err := os.Open(source)
			if err != nil {
				return nil, err
			}
			in = &inStream{r: bufio.NewReader(f), closer: f}
		}
	}
	s.in[source] = in
	return in, nil
}

// close implements the close() builtin: it matches name against both
// the output and input stream tables (a script never knows which side
// opened a given pipe name) and returns the underlying process's exit
// status for a pipe, 0 for a plain file, or -1 if name was never opened.
func (s *ioStreams) close(name string) float64 {
	status := -1.0
	if o, ok := s.out[name]; ok {
		o.w.Flush()
		if o.closer != nil {
			o.closer.Close()
		}
		if o.cmd != nil {
			if err := o.cmd.Wait(); err != nil {
				status = float64(exitCodeOf(err))
			} else {
				status = 0
			}
		} else {
			status = 0
		}
		delete(s.out, name)
	}
	if in, ok := s.in[name]; ok {
		if in.closer != nil {
			in.closer.Close()
		}
		if in.cmd != nil {
			if err := in.cmd.Wait(); err != nil {
				status = float64(exitCodeOf(err))
			} else {
				status = 0
			}
		} else {
			status = 0
		}
		delete(s.in, name)
	}
	return status
}

func exitCodeOf(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return 1
}

// flush implements fflush(): name=="" flushes every open output stream
// (including stdout), otherwise only the named one.
func (s *ioStreams) flush(name string) float64 {
	if name == "" {
		s.stdout.Flush()
		for _, o := range s.out {
			o.w.Flush()
		}
		return 0
	}
	if name == "/dev/stdout" || name == "-" {
		s.stdout.Flush()
		return 0
	}
	if o, ok := s.out[name]; ok {
		o.w.Flush()
		return 0
	}
	return -1
}

func (s *ioStreams) flushAll() {
	s.stdout.Flush()
	for _, o := range s.out {
		o.w.Flush()
	}
}

func (vm *VM) flushAll() {
	vm.out.flushAll()
}

// stdoutPassthrough lets a `| command`'s own stdout fall through to the
// VM's buffered process stdout, interleaving correctly with direct
// print output once both sides are flushed.
type stdoutPassthrough struct{ s *ioStreams }

func (p stdoutPassthrough) Write(b []byte) (int, error) {
	p.s.stdout.Flush()
	return os.Stdout.Write(b)
}

// system() spawns a subprocess, waits for it, and returns its exit
// status — the only builtin besides getline/print/close that blocks on
// external I/O (spec.md §5).
func system(command string) float64 {
	cmd := exec.Command("sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	err := cmd.Run()
	if err == nil {
		return 0
	}
	return float64(exitCodeOf(err))
}

