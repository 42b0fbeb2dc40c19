package loop

import (
	"testing"

	"github.com/sabouaram/embednet/mgr"
	"github.com/sabouaram/embednet/tcpip"
)

func pumpUntil(t *testing.T, ifs []*tcpip.If, mgrs []*mgr.Manager, ticks int, done func() bool) {
	t.Helper()
	for i := 0; i < ticks; i++ {
		if done() {
			return
		}
		for _, f := range ifs {
			f.Service(int64(i))
		}
		for _, m := range mgrs {
			m.Poll(0)
		}
	}
	t.Fatal("condition never became true")
}

func TestTCPHandshakeAndEchoOverLoopback(t *testing.T) {
	driverA, driverB := NewPair()

	mgrA := mgr.Init()
	mgrB := mgr.Init()

	ifA := tcpip.New(driverA, mgrA,
		tcpip.WithMAC([6]byte{0x02, 0, 0, 0, 0, 1}),
		tcpip.WithStaticIP([4]byte{10, 0, 0, 1}, [4]byte{255, 255, 255, 0}, [4]byte{10, 0, 0, 254}))
	ifB := tcpip.New(driverB, mgrB,
		tcpip.WithMAC([6]byte{0x02, 0, 0, 0, 0, 2}),
		tcpip.WithStaticIP([4]byte{10, 0, 0, 2}, [4]byte{255, 255, 255, 0}, [4]byte{10, 0, 0, 254}))
	if ifA == nil || ifB == nil {
		t.Fatal("tcpip.New returned nil")
	}

	var serverConn *mgr.Connection
	var serverGotData []byte
	ifB.ListenTCP(9000, func(c *mgr.Connection, ev mgr.Event, data interface{}) {
		switch ev {
		case mgr.EvAccept:
			serverConn = c
		case mgr.EvRead:
			serverGotData = append(serverGotData, c.Recv.Bytes()...)
			c.Recv.Del(0, c.Recv.Len())
			_, _ = mgrB.Send(c, []byte("pong"))
		}
	}, nil)

	var clientEstablished bool
	var clientGotData []byte
	client := ifA.DialTCP([4]byte{10, 0, 0, 2}, 9000, func(c *mgr.Connection, ev mgr.Event, data interface{}) {
		switch ev {
		case mgr.EvConnect:
			clientEstablished = true
			_, _ = mgrA.Send(c, []byte("ping"))
		case mgr.EvRead:
			clientGotData = append(clientGotData, c.Recv.Bytes()...)
			c.Recv.Del(0, c.Recv.Len())
		}
	}, nil)
	if client == nil {
		t.Fatal("DialTCP returned nil")
	}

	ifs := []*tcpip.If{ifA, ifB}
	mgrs := []*mgr.Manager{mgrA, mgrB}

	pumpUntil(t, ifs, mgrs, 200, func() bool { return clientEstablished })
	if serverConn == nil {
		t.Fatal("server never saw an accepted connection")
	}

	pumpUntil(t, ifs, mgrs, 200, func() bool { return len(clientGotData) > 0 })
	if string(clientGotData) != "pong" {
		t.Fatalf("client got %q, want pong", clientGotData)
	}
	if string(serverGotData) != "ping" {
		t.Fatalf("server got %q, want ping", serverGotData)
	}
}
