package extension

import (
	"bufio"
	"os"

	"github.com/tawk-lang/tawk/pkg/value"
)

// StdinWrap exposes a single keyword, hasinput, which peeks whether
// stdin has buffered data available without consuming it — meant for
// use alongside "-ni" mode, where the main rule loop is driven by an
// extension (e.g. sockets) instead of automatic record reading, and the
// script wants to poll stdin cooperatively.
type StdinWrap struct {
	r *bufio.Reader
}

// NewStdinWrap wraps os.Stdin in a buffered reader the extension owns
// for the lifetime of the process.
func NewStdinWrap() *StdinWrap {
	return &StdinWrap{r: bufio.NewReader(os.Stdin)}
}

func (s *StdinWrap) Name() string       { return "stdinwrap" }
func (s *StdinWrap) Keywords() []string { return []string{"hasinput"} }

func (s *StdinWrap) Arity(keyword string) int { return 0 }

func (s *StdinWrap) Invoke(keyword string, args []value.Value, ctx Context) (value.Value, error) {
	_, err := s.r.Peek(1)
	if err != nil {
		return value.Num(0), nil
	}
	return value.Num(1), nil
}
