package mgr

import (
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"
)

// TestListenConnectEcho exercises Listen/Connect/Send/Poll together: a
// listener echoes back whatever it reads, and the client observes the echo.
func TestListenConnectEcho(t *testing.T) {
	m := Init()
	defer m.Free()

	ln, lerr := m.Listen("tcp://127.0.0.1:0", func(c *Connection, ev Event, _ interface{}) {
		if ev == EvRead {
			_, _ = m.Send(c, c.Recv.Bytes())
			c.Recv.Zero()
		}
	}, nil)
	if lerr != nil {
		t.Fatalf("Listen: %v", lerr)
	}

	addr := ln.Listener.Addr().String()

	var got []byte
	done := make(chan struct{})
	cli := m.Connect("tcp://"+addr, func(c *Connection, ev Event, _ interface{}) {
		switch ev {
		case EvConnect:
			_, _ = m.Send(c, []byte("ping"))
		case EvRead:
			got = append(got, c.Recv.Bytes()...)
			c.Recv.Zero()
			close(done)
		}
	}, nil)
	if cli == nil {
		t.Fatal("expected a client connection")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.Poll(10)
		select {
		case <-done:
			if string(got) != "ping" {
				t.Fatalf("expected echoed %q, got %q", "ping", got)
			}
			return
		default:
		}
	}
	t.Fatal("timed out waiting for echo")
}

func TestConnectLiteralIPSkipsResolve(t *testing.T) {
	m := Init()
	defer m.Free()

	c := m.Connect("tcp://127.0.0.1:1", nil, nil)
	if c.Is(FlagResolving) {
		t.Fatal("literal IP target should never set FlagResolving")
	}
}

func TestWrapFDRejectsInvalidFD(t *testing.T) {
	m := Init()
	defer m.Free()

	if _, lerr := m.WrapFD(-1, nil, nil); lerr == nil {
		t.Fatal("expected an error wrapping an invalid fd")
	}
}

func TestWrapFDRegistersLiveDescriptorNotCallersOriginal(t *testing.T) {
	m := Init()
	defer m.Free()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	cli, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cli.Close()

	sc, ok := cli.(syscall.Conn)
	if !ok {
		t.Fatal("expected *net.TCPConn to implement syscall.Conn")
	}
	fd, ok := connFD(sc)
	if !ok {
		t.Fatal("expected to extract a raw fd from the dialed connection")
	}

	before := m.registeredFDs
	c, lerr := m.WrapFD(fd, nil, nil)
	if lerr != nil {
		t.Fatalf("WrapFD: %v", lerr)
	}
	if c.FD != fd {
		t.Fatalf("expected c.FD to keep the caller's original fd %d, got %d", fd, c.FD)
	}
	if c.pollFD < 0 {
		t.Fatal("expected WrapFD to register nc's own live fd in pollFD")
	}
	if c.pollFD == fd {
		t.Fatal("expected pollFD to differ from the caller's fd, since net.FileConn dups it")
	}
	if m.registeredFDs != before+1 {
		t.Fatalf("expected registeredFDs to increment by 1, got %d -> %d", before, m.registeredFDs)
	}
}

func TestDialUsesLiteralAddr(t *testing.T) {
	m := Init()
	defer m.Free()

	ln, lerr := m.Listen("tcp://127.0.0.1:0", nil, nil)
	if lerr != nil {
		t.Fatalf("Listen: %v", lerr)
	}
	addr := ln.Listener.Addr().String()

	cli := m.Connect(fmt.Sprintf("tcp://%s", addr), nil, nil)
	if cli.Net == nil {
		t.Fatal("expected dial to succeed")
	}
}
