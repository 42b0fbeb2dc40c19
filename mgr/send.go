package mgr

import (
	"fmt"

	liberr "github.com/sabouaram/embednet/errors"
)

// NetDownChecker lets the built-in stack (tcpip) tell the manager "outbound
// traffic is impossible right now" without mgr importing tcpip; set once by
// whoever wires a built-in tcpip.If to this Manager.
type NetDownChecker func(c *Connection) bool

// Send queues buf for sending: appended to the connection's send iobuf and
// flushed by the next Poll tick's write-readiness pass. A dialed UDP
// connection writes the datagram immediately instead, and when TLS is active
// the data goes to the TLS implementation to encrypt.
func (m *Manager) Send(c *Connection, buf []byte) (int, liberr.Error) {
	if m.DownChecker != nil && m.DownChecker(c) {
		return 0, liberr.New(liberr.MinPkgMgr, "net down")
	}

	if c.Is(FlagTLS) {
		if t, ok := c.TLS().(tlsSender); ok {
			return t.Send(buf)
		}
	}

	// A dialed UDP socket writes each Send call out at once as its own
	// datagram.
	if c.Is(FlagUDP) && c.Net != nil {
		n, err := c.Net.Write(buf)
		if n > 0 && m.Metrics != nil {
			m.Metrics.BytesSent.Add(float64(n))
		}
		if err != nil {
			return n, liberr.New(liberr.MinPkgMgr, "udp send: %s", err.Error())
		}
		return n, nil
	}

	// Everything else (TCP, demuxed peers of a UDP listener, built-in-stack
	// connections) is staged in the send iobuf and flushed by the next Poll
	// tick's write-readiness pass (mgr/poll.go); several Sends to a demuxed
	// UDP peer within one tick leave as a single datagram.
	c.Send.Add(c.Send.Len(), buf)
	return len(buf), nil
}

// Printf is a convenience wrapper over Send, mirroring mg_printf.
func (m *Manager) Printf(c *Connection, format string, args ...interface{}) (int, liberr.Error) {
	return m.Send(c, []byte(fmt.Sprintf(format, args...)))
}

// tlsSender is implemented by tlsopts.Conn; declared here so mgr does not
// import tlsopts.
type tlsSender interface {
	Send(buf []byte) (int, liberr.Error)
}
