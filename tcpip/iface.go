// Package tcpip is the built-in TCP/IP engine: ARP, IPv4, ICMP, UDP, a
// per-connection TCP state machine, and a DHCP client/server, all driven by
// frames a Driver pushes in and pulls out. It never touches a host socket;
// mgr.Connection objects on this path carry Net == nil and are driven
// entirely from rx/Service instead of mgr's own Poll loop.
package tcpip

import (
	"time"

	"github.com/sabouaram/embednet/internal/metrics"
	"github.com/sabouaram/embednet/logger"
	"github.com/sabouaram/embednet/mgr"
)

// Driver is the four-method trait a frame I/O backend implements. Polled
// drivers implement Rx; interrupt-driven drivers may always return 0 from Rx
// and instead push frames with If.Inject from their own ISR-equivalent
// goroutine.
type Driver interface {
	Init(i *If) bool
	Tx(frame []byte, i *If) int
	Rx(buf []byte, i *If) int
	Up(i *If) bool
}

// If is the built-in stack's interface state.
type If struct {
	Driver Driver
	Mgr    *mgr.Manager
	Log    logger.Logger
	Metric *metrics.Collector

	MAC     [6]byte
	IP      [4]byte
	Netmask [4]byte
	Gateway [4]byte
	MTU     int
	TXSize  int

	MACCheck    bool // verify destination MAC unless disabled
	VerifyCRC32 bool

	linkUp bool

	arp  *arpTable
	tcp  *tcpTable
	udp  *udpTable
	dhcpC *dhcpClient
	dhcpS *dhcpServer

	lastUpCheck int64
}

// Option configures an If at construction.
type Option func(*If)

func WithMAC(mac [6]byte) Option   { return func(i *If) { i.MAC = mac } }
func WithStaticIP(ip, mask, gw [4]byte) Option {
	return func(i *If) { i.IP = ip; i.Netmask = mask; i.Gateway = gw }
}
func WithMetrics(c *metrics.Collector) Option { return func(i *If) { i.Metric = c } }
func WithLogger(l logger.Logger) Option       { return func(i *If) { i.Log = l } }
func WithDHCPClient() Option                  { return func(i *If) { i.dhcpC = newDHCPClient(i) } }
func WithDHCPServer(pool DHCPPool) Option {
	return func(i *If) { i.dhcpS = newDHCPServer(i, pool) }
}

// New builds an If bound to d and m. d.Init is called immediately; a false
// return means the driver could not initialize and New returns nil.
func New(d Driver, m *mgr.Manager, opts ...Option) *If {
	i := &If{
		Driver: d,
		Mgr:    m,
		Log:    logger.Discard(),
		MTU:    1500,
		TXSize: 1514,
		MACCheck: true,
		// Forces the first Service call to run the Up() check immediately
		// instead of waiting out the 1 Hz interval, so a driver that's ready
		// at construction doesn't sit link-down for up to a second.
		lastUpCheck: -2000,
	}
	i.arp = newARPTable(i)
	i.tcp = newTCPTable(i)
	i.udp = newUDPTable(i)
	for _, o := range opts {
		o(i)
	}
	if i.Metric == nil {
		i.Metric = metrics.New("tcpip")
	}
	if !d.Init(i) {
		return nil
	}
	m.DownChecker = func(c *mgr.Connection) bool { return !i.linkUp }
	return i
}

// Inject feeds one externally-received frame into the stack; interrupt-
// driven drivers call this from their own callback instead of relying on Rx.
func (i *If) Inject(frame []byte) {
	i.rx(frame)
}

// Service performs one tick: poll the driver for frames (if it supports
// polled Rx), run the 1 Hz up() check, and drive TCP/DHCP timers. Call this
// once per reactor iteration, alongside mgr.Manager.Poll.
func (i *If) Service(nowMS int64) {
	buf := make([]byte, i.MTU+14)
	for {
		n := i.Driver.Rx(buf, i)
		if n <= 0 {
			break
		}
		i.rx(buf[:n])
	}

	if nowMS-i.lastUpCheck >= 1000 {
		i.lastUpCheck = nowMS
		wasUp := i.linkUp
		i.linkUp = i.Driver.Up(i)
		if i.linkUp && !wasUp && i.dhcpC != nil {
			i.dhcpC.reinit(nowMS)
		}
	}

	if i.dhcpC != nil {
		i.dhcpC.poll(nowMS)
	}
	if i.dhcpS != nil {
		i.dhcpS.poll(nowMS)
	}
	i.tcp.poll(nowMS)
	i.udp.poll(nowMS)
}

func nowMS() int64 { return time.Now().UnixMilli() }

const (
	etherTypeARP  = 0x0806
	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86dd

	protoICMP = 1
	protoTCP  = 6
	protoUDP  = 17
)

var broadcastMAC = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func macEqual(a, b [6]byte) bool { return a == b }

// rx dispatches one Ethernet frame.
func (i *If) rx(frame []byte) {
	if len(frame) < 14 {
		return
	}
	var dst [6]byte
	copy(dst[:], frame[0:6])
	if i.MACCheck && !macEqual(dst, i.MAC) && !macEqual(dst, broadcastMAC) {
		return
	}

	etherType := uint16(frame[12])<<8 | uint16(frame[13])
	payload := frame[14:]

	switch etherType {
	case etherTypeARP:
		i.arp.handle(payload)
	case etherTypeIPv4:
		i.rxIPv4(payload)
	case etherTypeIPv6:
		// IPv6 forwarding is out of scope and no IPv6 datapath is
		// implemented here.
	}
}

// tx wraps payload in an Ethernet header addressed to dstMAC and hands it to
// the driver, enforcing the TXSize budget.
func (i *If) tx(dstMAC [6]byte, etherType uint16, payload []byte) int {
	frame := make([]byte, 14+len(payload))
	copy(frame[0:6], dstMAC[:])
	copy(frame[6:12], i.MAC[:])
	frame[12] = byte(etherType >> 8)
	frame[13] = byte(etherType)
	copy(frame[14:], payload)
	if len(frame) > i.TXSize {
		frame = frame[:i.TXSize]
	}
	return i.Driver.Tx(frame, i)
}
