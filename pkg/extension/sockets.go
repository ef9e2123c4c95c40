package extension

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/tawk-lang/tawk/pkg/value"
)

// Sockets implements a minimal TCP client extension: sockopen, sockread,
// sockwrite, and sockclose, addressed by a script-chosen handle name
// rather than a numeric file descriptor, matching AWK's name-keyed
// stream model (the same convention print/getline use for files and
// pipes).
type Sockets struct {
	conns map[string]*sockConn
}

type sockConn struct {
	conn net.Conn
	r    *bufio.Reader
}

// NewSockets constructs an empty socket table.
func NewSockets() *Sockets {
	return &Sockets{conns: map[string]*sockConn{}}
}

func (s *Sockets) Name() string { return "sockets" }

func (s *Sockets) Keywords() []string {
	return []string{"sockopen", "sockread", "sockwrite", "sockclose"}
}

func (s *Sockets) Arity(keyword string) int {
	switch keyword {
	case "sockopen":
		return 3 // handle, host, port
	case "sockread":
		return 1 // handle
	case "sockwrite":
		return 2 // handle, data
	case "sockclose":
		return 1 // handle
	}
	return -1
}

func (s *Sockets) Invoke(keyword string, args []value.Value, ctx Context) (value.Value, error) {
	switch keyword {
	case "sockopen":
		return s.open(args, ctx)
	case "sockread":
		return s.read(args, ctx)
	case "sockwrite":
		return s.write(args, ctx)
	case "sockclose":
		return s.close(args, ctx)
	}
	return value.Uninitialized, fmt.Errorf("sockets: unknown keyword %q", keyword)
}

func (s *Sockets) open(args []value.Value, ctx Context) (value.Value, error) {
	handle := args[0].ToString("%.6g")
	host := args[1].ToString("%.6g")
	port := args[2].ToString("%.6g")
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), 10*time.Second)
	if err != nil {
		ctx.Warnf("sockopen %s: %v", handle, err)
		return value.Num(-1), nil
	}
	s.conns[handle] = &sockConn{conn: conn, r: bufio.NewReader(conn)}
	return value.Num(0), nil
}

func (s *Sockets) read(args []value.Value, ctx Context) (value.Value, error) {
	handle := args[0].ToString("%.6g")
	c, ok := s.conns[handle]
	if !ok {
		return value.Uninitialized, fmt.Errorf("sockread: %q is not open", handle)
	}
	line, err := c.r.ReadString('\n')
	if err != nil && line == "" {
		return value.Uninitialized, nil
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return value.StrNum(line), nil
}

func (s *Sockets) write(args []value.Value, ctx Context) (value.Value, error) {
	handle := args[0].ToString("%.6g")
	data := args[1].ToString("%.6g")
	c, ok := s.conns[handle]
	if !ok {
		return value.Uninitialized, fmt.Errorf("sockwrite: %q is not open", handle)
	}
	n, err := c.conn.Write([]byte(data))
	if err != nil {
		ctx.Warnf("sockwrite %s: %v", handle, err)
		return value.Num(-1), nil
	}
	return value.Num(float64(n)), nil
}

func (s *Sockets) close(args []value.Value, ctx Context) (value.Value, error) {
	handle := args[0].ToString("%.6g")
	c, ok := s.conns[handle]
	if !ok {
		return value.Num(-1), nil
	}
	delete(s.conns, handle)
	if err := c.conn.Close(); err != nil {
		return value.Num(-1), nil
	}
	return value.Num(0), nil
}
