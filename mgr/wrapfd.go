package mgr

import (
	"net"
	"os"
	"syscall"

	liberr "github.com/sabouaram/embednet/errors"
)

// WrapFD wraps an externally-owned file descriptor as a full-duplex
// connection, driven by the same Poll loop as any dialed or accepted
// connection.
func (m *Manager) WrapFD(fd int, fn Handler, fnData interface{}) (*Connection, liberr.Error) {
	f := os.NewFile(uintptr(fd), "wrapfd")
	if f == nil {
		return nil, liberr.New(liberr.MinPkgMgr, "invalid fd %d", fd)
	}
	nc, err := net.FileConn(f)
	_ = f.Close()
	if err != nil {
		return nil, liberr.New(liberr.MinPkgMgr, "wrapfd %d", fd).WithParent(err)
	}

	c := m.allocConn()
	c.FD = fd
	// net.FileConn dup'd fd into nc's own descriptor and f.Close() above
	// already closed the original, so the poller must register nc's live fd,
	// not fd itself.
	if sc, ok := nc.(syscall.Conn); ok {
		m.registerFD(c, sc)
	}
	c.Net = nc
	c.Fn = fn
	c.FnData = fnData
	if la, ok := nc.LocalAddr().(*net.TCPAddr); ok {
		c.Loc = AddressFromNetIP(la.IP, uint16(la.Port))
	}
	if ra, ok := nc.RemoteAddr().(*net.TCPAddr); ok {
		c.Rem = AddressFromNetIP(ra.IP, uint16(ra.Port))
	}
	c.fire(EvOpen, nil)
	return c, nil
}
