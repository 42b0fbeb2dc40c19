package mgr

import (
	"net"
	"strconv"
	"syscall"

	liberr "github.com/sabouaram/embednet/errors"
	"github.com/sabouaram/embednet/internal/urlutil"
)

// Listen opens a listening socket for url and returns its Connection with
// FlagListening set. fn is installed on every accepted
// child connection as the user handler.
func (m *Manager) Listen(url string, fn Handler, fnData interface{}) (*Connection, liberr.Error) {
	u := urlutil.Parse(url)
	addr := net.JoinHostPort(u.Host, strconv.Itoa(int(u.Port)))

	c := m.allocConn()
	c.SetFlag(FlagListening)
	c.SetFlagTo(FlagUDP, urlutil.IsUDP(url))
	c.SetFlagTo(FlagTLS, urlutil.IsSSL(url))
	c.Fn = fn
	c.FnData = fnData

	if c.Is(FlagUDP) {
		pc, err := net.ListenPacket("udp", addr)
		if err != nil {
			m.removeConn(c)
			return nil, liberr.New(liberr.MinPkgMgr, "listen %s", addr).WithParent(err)
		}
		c.PacketConn = pc
		if la, ok := pc.LocalAddr().(*net.UDPAddr); ok {
			c.Loc = AddressFromNetIP(la.IP, uint16(la.Port))
		}
		if sc, ok := pc.(syscall.Conn); ok {
			m.registerFD(c, sc)
			c.FD = c.pollFD
		}
		c.fire(EvOpen, url)
		return c, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		m.removeConn(c)
		return nil, liberr.New(liberr.MinPkgMgr, "listen %s", addr).WithParent(err)
	}
	c.Listener = ln
	if la, ok := ln.Addr().(*net.TCPAddr); ok {
		c.Loc = AddressFromNetIP(la.IP, uint16(la.Port))
	}
	if sc, ok := ln.(syscall.Conn); ok {
		m.registerFD(c, sc)
		c.FD = c.pollFD
	}
	c.fire(EvOpen, url)
	return c, nil
}

