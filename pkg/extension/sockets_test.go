package extension

import (
	"bufio"
	"net"
	"strings"
	"testing"

	"github.com/tawk-lang/tawk/pkg/value"
)

func TestSocketsOpenWriteReadClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		conn.Write([]byte("echo:" + line))
	}()

	_, port, _ := strings.Cut(ln.Addr().String(), ":")

	s := NewSockets()
	v, err := s.Invoke("sockopen", []value.Value{
		value.NewStr("h"), value.NewStr("127.0.0.1"), value.NewStr(port),
	}, fakeCtx{})
	if err != nil || v.ToNumber() != 0 {
		t.Fatalf("sockopen: v=%v err=%v", v, err)
	}

	v, err = s.Invoke("sockwrite", []value.Value{value.NewStr("h"), value.NewStr("hello\n")}, fakeCtx{})
	if err != nil || v.ToNumber() <= 0 {
		t.Fatalf("sockwrite: v=%v err=%v", v, err)
	}

	v, err = s.Invoke("sockread", []value.Value{value.NewStr("h")}, fakeCtx{})
	if err != nil {
		t.Fatalf("sockread: %v", err)
	}
	if got := v.ToString("%.6g"); got != "echo:hello" {
		t.Errorf("sockread = %q, want %q", got, "echo:hello")
	}

	v, err = s.Invoke("sockclose", []value.Value{value.NewStr("h")}, fakeCtx{})
	if err != nil || v.ToNumber() != 0 {
		t.Fatalf("sockclose: v=%v err=%v", v, err)
	}

	<-done
}

func TestSocketReadOnUnopenedHandleErrors(t *testing.T) {
	s := NewSockets()
	_, err := s.Invoke("sockread", []value.Value{value.NewStr("missing")}, fakeCtx{})
	if err == nil {
		t.Error("expected an error reading from an unopened handle")
	}
}
