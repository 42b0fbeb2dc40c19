package mgr

import (
	"errors"
	"io"
	"net"
	"syscall"
	"time"
)

// Poll drives one reactor tick: a single bounded blocking wait, then timers,
// DNS expiry and wakeups, then per-connection readiness, in that fixed
// order. A caller loops `for { m.Poll(timeoutMS) }`; timeoutMS bounds how
// long this call may block waiting for I/O when every connection is idle,
// further bounded by the nearest armed timer's deadline so a KEEPALIVE/ACK/
// ARP/SYN/FIN timer never overshoots its fire time waiting on idle sockets.
func (m *Manager) Poll(timeoutMS int) {
	now := time.Now().UnixMilli()
	m.waitReady(now, timeoutMS)
	now = time.Now().UnixMilli()

	m.Timers.Poll(now)
	m.expireDNS(now)
	m.drainWakeups()

	conns := m.Conns()
	if len(conns) == 0 {
		return
	}

	for _, c := range conns {
		c.fire(EvPoll, now)

		switch {
		case c.Is(FlagListening) && c.Is(FlagUDP):
			m.pollUDPListener(c)
		case c.Is(FlagListening):
			m.pollAccept(c)
		case c.udpParent != nil:
			m.pollUDPChild(c)
		default:
			m.pollIO(c)
		}
	}

	for _, c := range conns {
		if c.Is(FlagClosing) && c.Send.Len() == 0 {
			m.closeConn(c)
		}
	}
}

// waitReady is the single blocking call a tick may make. It refreshes each
// registered fd's write-interest bit from the connection's current send
// buffer, bounds the wait by timeoutMS and the nearest timer deadline, and
// blocks in the readiness poller. Its result only unblocks the tick at the
// right moment; the per-connection scan below still does its own
// non-blocking read/write regardless of which fds Wait reported ready.
func (m *Manager) waitReady(now int64, timeoutMS int) {
	boundMS := timeoutMS
	if next, ok := m.Timers.NextDeadlineMS(); ok {
		remain := int(next - now)
		if remain < 0 {
			remain = 0
		}
		if boundMS < 0 || remain < boundMS {
			boundMS = remain
		}
	}
	if m.registeredFDs == 0 {
		if boundMS > 0 {
			time.Sleep(time.Duration(boundMS) * time.Millisecond)
		}
		return
	}

	for c := m.head; c != nil; c = c.next {
		if c.pollFD < 0 {
			continue
		}
		_ = m.pollFd.SetWriteInterest(c.pollFD, c.Send.Len() > 0)
	}
	if _, err := m.pollFd.Wait(boundMS); err != nil {
		if boundMS > 0 {
			time.Sleep(time.Duration(boundMS) * time.Millisecond)
		}
	}
}

// pollAccept non-blockingly accepts at most one pending connection per tick
// per listener; further pending connections are picked up on the next tick.
func (m *Manager) pollAccept(c *Connection) {
	if c.Listener == nil {
		return
	}
	type deadliner interface {
		SetDeadline(time.Time) error
	}
	if d, ok := c.Listener.(deadliner); ok {
		_ = d.SetDeadline(time.Now())
	}
	nc, err := c.Listener.Accept()
	if err != nil {
		return
	}
	child := m.allocConn()
	child.Net = nc
	child.SetFlag(FlagAccepted)
	child.Loc = AddressFromNetIP(nc.LocalAddr().(*net.TCPAddr).IP, uint16(nc.LocalAddr().(*net.TCPAddr).Port))
	child.Rem = AddressFromNetIP(nc.RemoteAddr().(*net.TCPAddr).IP, uint16(nc.RemoteAddr().(*net.TCPAddr).Port))
	if sc, ok := nc.(syscall.Conn); ok {
		m.registerFD(child, sc)
		child.FD = child.pollFD
	}
	child.PFn = c.PFn
	child.Fn = c.Fn
	child.FnData = c.FnData
	child.fire(EvOpen, nil)
	child.fire(EvAccept, nil)
}

// pollUDPListener demuxes one shared UDP socket into one Connection per
// remote peer address: DHCP and DNS server paths both need this, a single
// bound socket serving many clients.
func (m *Manager) pollUDPListener(c *Connection) {
	if c.PacketConn == nil {
		return
	}
	readBuf := make([]byte, 4096)
	for {
		_ = c.PacketConn.SetReadDeadline(time.Now())
		n, addr, err := c.PacketConn.ReadFrom(readBuf)
		if err != nil {
			return
		}
		ua, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		key := addr.String()
		child, exists := c.udpPeers[key]
		if !exists {
			child = m.allocConn()
			child.SetFlag(FlagUDP)
			child.SetFlag(FlagAccepted)
			child.Loc = c.Loc
			child.Rem = AddressFromNetIP(ua.IP, uint16(ua.Port))
			child.PFn = c.PFn
			child.Fn = c.Fn
			child.FnData = c.FnData
			child.udpParent = c
			if c.udpPeers == nil {
				c.udpPeers = make(map[string]*Connection)
			}
			c.udpPeers[key] = child
			child.fire(EvOpen, nil)
			child.fire(EvAccept, nil)
		}
		if n > 0 {
			child.Recv.Add(child.Recv.Len(), readBuf[:n])
			if m.Metrics != nil {
				m.Metrics.BytesRecv.Add(float64(n))
			}
			child.fire(EvRead, nil)
		}
	}
}

// pollUDPChild flushes a demuxed UDP child's pending send buffer back out
// through its parent listener's shared socket.
func (m *Manager) pollUDPChild(c *Connection) {
	if c.Send.Len() == 0 {
		return
	}
	remote := &net.UDPAddr{IP: net.IP(c.Rem.IP[:4]), Port: int(c.Rem.port())}
	if c.Rem.IsIPv6 {
		remote = &net.UDPAddr{IP: net.IP(c.Rem.IP[:]), Port: int(c.Rem.port())}
	}
	n, err := c.udpParent.PacketConn.WriteTo(c.Send.Bytes(), remote)
	if n > 0 {
		c.Send.Del(0, n)
		if m.Metrics != nil {
			m.Metrics.BytesSent.Add(float64(n))
		}
	}
	if err != nil {
		m.Error(c, "write: %v", err)
	} else if n > 0 {
		c.fire(EvWrite, n)
	}
}

// pollIO drains whatever inbound bytes are already available without
// blocking the reactor, then flushes any pending outbound bytes. Connections
// on the built-in stack (Net == nil) are driven entirely by tcpip.If instead,
// which calls c.fire directly as frames arrive.
func (m *Manager) pollIO(c *Connection) {
	if c.Net == nil {
		return
	}

	readBuf := make([]byte, 4096)
	for {
		_ = c.Net.SetReadDeadline(time.Now())
		n, err := c.Net.Read(readBuf)
		if n > 0 {
			c.Recv.Add(c.Recv.Len(), readBuf[:n])
			if m.Metrics != nil {
				m.Metrics.BytesRecv.Add(float64(n))
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				break // nothing more waiting right now
			}
			if err != io.EOF {
				m.Error(c, "read: %v", err)
			} else {
				c.SetFlag(FlagClosing)
			}
			break
		}
		if n == 0 {
			break
		}
	}
	if c.Recv.Len() > 0 {
		c.fire(EvRead, nil)
	}

	if c.Send.Len() > 0 {
		_ = c.Net.SetWriteDeadline(time.Time{})
		n, err := c.Net.Write(c.Send.Bytes())
		if n > 0 {
			c.Send.Del(0, n)
			if m.Metrics != nil {
				m.Metrics.BytesSent.Add(float64(n))
			}
		}
		if err != nil {
			m.Error(c, "write: %v", err)
		} else if n > 0 {
			c.fire(EvWrite, n)
		}
	}
}
