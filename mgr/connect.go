package mgr

import (
	"net"
	"strconv"
	"syscall"

	"github.com/sabouaram/embednet/internal/urlutil"
)

// Connect parses url, allocates a client connection, and kicks off DNS
// resolution or an immediate dial when the host is already a literal IP.
// fn becomes the connection's user handler.
func (m *Manager) Connect(url string, fn Handler, fnData interface{}) *Connection {
	u := urlutil.Parse(url)

	c := m.allocConn()
	c.SetFlag(FlagClient)
	c.SetFlagTo(FlagUDP, urlutil.IsUDP(url))
	c.SetFlagTo(FlagTLS, urlutil.IsSSL(url))
	c.Rem.PortNet = u.Port<<8 | u.Port>>8
	c.Fn = fn
	c.FnData = fnData

	c.fire(EvOpen, url)

	if ip := net.ParseIP(u.Host); ip != nil {
		port := u.Port
		c.Rem = AddressFromNetIP(ip, port)
		m.dial(c)
		return c
	}

	if lerr := m.Resolve(c, u.Host, false); lerr != nil {
		m.Error(c, "resolve: %v", lerr)
	}
	return c
}

// dial opens the transport connection once an address is known, either
// straight from Connect (literal IP) or from a completed DNS resolution.
func (m *Manager) dial(c *Connection) {
	network := "tcp"
	if c.Is(FlagUDP) {
		network = "udp"
	}
	addr := net.JoinHostPort(net.IP(c.Rem.IP[:]).String(), strconv.Itoa(int(c.Rem.port())))

	nc, err := net.Dial(network, addr)
	if err != nil {
		m.Error(c, "dial %s: %v", addr, err)
		return
	}
	c.Net = nc
	if la, ok := nc.LocalAddr().(*net.TCPAddr); ok {
		c.Loc = AddressFromNetIP(la.IP, uint16(la.Port))
	} else if la, ok := nc.LocalAddr().(*net.UDPAddr); ok {
		c.Loc = AddressFromNetIP(la.IP, uint16(la.Port))
	}
	if sc, ok := nc.(syscall.Conn); ok {
		m.registerFD(c, sc)
		c.FD = c.pollFD
	}
	c.fire(EvConnect, nil)
}
