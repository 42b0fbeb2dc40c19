package mgr

import (
	"sync/atomic"
	"syscall"

	"github.com/sabouaram/embednet/internal/metrics"
	"github.com/sabouaram/embednet/internal/poller"
	"github.com/sabouaram/embednet/logger"
	"github.com/sabouaram/embednet/timer"
)

// Manager is the process-wide registry of connections and timers: a
// single-threaded reactor.
type Manager struct {
	head *Connection // intrusive list head

	Timers *timer.Wheel

	nextConnID   uint64
	nextTimerID  uint64
	ExtraConnSize int

	DNS4            string
	DNS6            string
	DNSTimeoutMS    int64
	UseDNS6         bool
	mqttID          uint32
	dnsReqs         []*dnsReq
	dnsCodec        DNSCodec
	dnsTxnSeq       uint16
	resolverConn    *Connection
	resolverAddr    string

	pollFd       poller.Poller
	registeredFDs int
	wake         *wakeupPair

	Log     logger.Logger
	Metrics *metrics.Collector

	// DownChecker, when set, lets an attached tcpip.If veto Send calls while
	// the built-in stack has no route (link down, ARP unresolved, etc).
	DownChecker NetDownChecker

	closed int32
}

// Option configures a Manager at Init time.
type Option func(*Manager)

func WithExtraConnSize(n int) Option { return func(m *Manager) { m.ExtraConnSize = n } }
func WithLogger(l logger.Logger) Option { return func(m *Manager) { m.Log = l } }
func WithMetrics(c *metrics.Collector) Option { return func(m *Manager) { m.Metrics = c } }

// Init zeroes a fresh Manager, sets the default DNS servers, and starts the
// readiness subsystem.
func Init(opts ...Option) *Manager {
	m := &Manager{
		Timers:       timer.New(),
		DNS4:         "udp://8.8.8.8:53",
		DNS6:         "udp://[2001:4860:4860::8888]:53",
		DNSTimeoutMS: 3000,
		Log:          logger.Discard(),
		pollFd:       poller.New(),
	}
	for _, o := range opts {
		o(m)
	}
	if m.Metrics == nil {
		m.Metrics = metrics.New("mgr")
	}
	m.wake = newWakeupPair(m)
	return m
}

// Free marks every connection closing and runs one Poll(0) so EV_CLOSE fires
// and buffers are released, then tears down the readiness subsystem.
func (m *Manager) Free() {
	if !atomic.CompareAndSwapInt32(&m.closed, 0, 1) {
		return
	}
	for c := m.head; c != nil; c = c.next {
		c.SetFlag(FlagClosing)
	}
	m.Poll(0)
	if m.wake != nil {
		m.wake.close()
	}
	_ = m.pollFd.Close()
}

// registerFD extracts sc's raw file descriptor and hands it to the readiness
// poller, recording it in c.pollFD; connections whose transport doesn't
// expose one (or on platforms with no native poll primitive) are simply
// never registered and fall back to the bounded sleep in Poll. sc need not
// be the same value as c.Net: WrapFD passes the net.Conn net.FileConn
// produced, which owns a dup'd descriptor distinct from the caller's
// original fd recorded in c.FD.
func (m *Manager) registerFD(c *Connection, sc syscall.Conn) {
	fd, ok := connFD(sc)
	if !ok {
		return
	}
	c.pollFD = fd
	if err := m.pollFd.Add(fd, false); err != nil {
		return
	}
	m.registeredFDs++
}

func (m *Manager) deregisterFD(c *Connection) {
	if c.pollFD < 0 {
		return
	}
	_ = m.pollFd.Remove(c.pollFD)
	m.registeredFDs--
	c.pollFD = -1
}

// NewConn allocates a bare connection not yet attached to any socket or
// built-in-stack state, for callers outside this package (the tcpip engine)
// that drive a Connection's lifecycle themselves instead of going through
// Listen/Connect/WrapFD.
func (m *Manager) NewConn() *Connection { return m.allocConn() }

// CloseNow fires EV_CLOSE and releases c immediately, bypassing the normal
// FlagClosing-then-drain-Send path Poll uses. Built-in-stack connections call
// this once their own teardown (e.g. a TCP FIN/RST sequence) has already
// flushed or discarded pending data.
func (m *Manager) CloseNow(c *Connection) { m.closeConn(c) }

func (m *Manager) allocConn() *Connection {
	m.nextConnID++
	c := newConnection(m.nextConnID, m)
	c.next = m.head
	m.head = c
	if m.Metrics != nil {
		m.Metrics.Connections.Inc()
	}
	return c
}

// Conns returns a snapshot slice of currently-owned connections, safe to
// range over even if the caller closes some of them.
func (m *Manager) Conns() []*Connection {
	var out []*Connection
	for c := m.head; c != nil; c = c.next {
		out = append(out, c)
	}
	return out
}

func (m *Manager) removeConn(target *Connection) {
	if m.head == target {
		m.head = target.next
		return
	}
	for c := m.head; c != nil; c = c.next {
		if c.next == target {
			c.next = target.next
			return
		}
	}
}

func (m *Manager) closeConn(c *Connection) {
	m.cancelDNS(c)
	m.deregisterFD(c)
	c.fire(EvClose, nil)
	c.Send.Zero()
	c.Recv.Zero()
	c.RTLS.Zero()
	if c.Net != nil {
		_ = c.Net.Close()
	}
	if c.Listener != nil {
		_ = c.Listener.Close()
	}
	if c.PacketConn != nil {
		_ = c.PacketConn.Close()
	}
	if c.udpParent != nil {
		for k, v := range c.udpParent.udpPeers {
			if v == c {
				delete(c.udpParent.udpPeers, k)
				break
			}
		}
	}
	m.removeConn(c)
	if m.Metrics != nil {
		m.Metrics.Connections.Dec()
	}
}
