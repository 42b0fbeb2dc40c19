package tcpip

import (
	"encoding/binary"

	"github.com/sabouaram/embednet/internal/urlutil"
	"github.com/sabouaram/embednet/mgr"
)

const (
	tcpFIN = 1 << 0
	tcpSYN = 1 << 1
	tcpRST = 1 << 2
	tcpPSH = 1 << 3
	tcpACK = 1 << 4
)

type tcpState int

const (
	tcpClosed tcpState = iota
	tcpListenState
	tcpArpWait
	tcpSynSent
	tcpSynRcvd
	tcpEstablished
	tcpClosing
)

type timerType int

const (
	timerNone timerType = iota
	timerKeepalive
	timerArp
	timerSyn
	timerFin
	timerACK
)

// Timer thresholds in milliseconds.
const (
	arpTimeoutMS       = 100
	synTimeoutMS       = 15000
	finTimeoutMS       = 1000
	keepaliveTimeoutMS = 45000
	ackTimeoutMS       = 150
)

const maxRetries = 3

// tcpWindow is the advertised receive window, and the ACK-coalescing
// threshold is half of it: more than tcpWindow/2 bytes received since the
// last ACK forces an immediate ACK instead of waiting for the ACK timer.
const tcpWindow = 4096

// tcpConn is the built-in stack's per-connection TCP state: sequence
// numbers, the single pending timeout timer, and the quad identifying the
// peer.
type tcpConn struct {
	c        *mgr.Connection
	state    tcpState
	listener *tcpConn

	localPort  uint16
	remoteIP   [4]byte
	remotePort uint16
	remoteMAC  [6]byte

	sndNxt uint32
	sndUna uint32
	rcvNxt uint32

	unacked     []byte // our own unsent/unacked outbound payload, for retransmit bookkeeping
	unackedRecv uint32 // bytes received from the peer since our last ACK

	timer      timerType
	deadlineMS int64
	tmiss      int
}

type quad struct {
	remoteIP   [4]byte
	remotePort uint16
	localPort  uint16
}

type tcpTable struct {
	i         *If
	conns     map[uint64]*tcpConn
	byQuad    map[quad]*tcpConn
	listeners map[uint16]*tcpConn
	ephPort   uint16
}

func newTCPTable(i *If) *tcpTable {
	return &tcpTable{
		i:         i,
		conns:     make(map[uint64]*tcpConn),
		byQuad:    make(map[quad]*tcpConn),
		listeners: make(map[uint16]*tcpConn),
		ephPort:   49151,
	}
}

// isnForPort derives an initial sequence number from a 16-bit port the way
// this stack's ISN scheme literally specifies: htonl(htons(port)). It is
// predictable by design; see DESIGN.md for the trade-off this accepts.
func isnForPort(port uint16) uint32 {
	return urlutil.Htonl(uint32(urlutil.Htons(port)))
}

func (t *tcpTable) nextEphemeralPort() uint16 {
	t.ephPort++
	if t.ephPort < 49152 {
		t.ephPort = 49152
	}
	return t.ephPort
}

// ListenTCP binds port on the built-in stack and accepts inbound SYNs
// addressed to it.
func (i *If) ListenTCP(port uint16, fn mgr.Handler, fnData interface{}) *mgr.Connection {
	c := i.Mgr.NewConn()
	c.SetFlag(mgr.FlagListening)
	c.Loc = mgr.AddressFromIPv4(i.IP, port)
	c.Fn = fn
	c.FnData = fnData
	st := &tcpConn{c: c, state: tcpListenState, localPort: port}
	i.tcp.conns[c.ID] = st
	i.tcp.listeners[port] = st
	c.Fire(mgr.EvOpen, nil)
	return c
}

// DialTCP opens an outbound connection over the built-in stack: if ip's MAC
// is already cached the SYN goes out immediately, otherwise the connection
// parks in ARP_WAIT until arpTable.resolve wakes it via onARPResolved (same
// subnet issues an ARP request; off-subnet traffic would go via the gateway
// MAC instead).
func (i *If) DialTCP(ip [4]byte, port uint16, fn mgr.Handler, fnData interface{}) *mgr.Connection {
	c := i.Mgr.NewConn()
	c.SetFlag(mgr.FlagClient)
	c.Rem = mgr.AddressFromIPv4(ip, port)
	localPort := i.tcp.nextEphemeralPort()
	c.Loc = mgr.AddressFromIPv4(i.IP, localPort)
	c.Fn = fn
	c.FnData = fnData

	st := &tcpConn{
		c: c, localPort: localPort, remoteIP: ip, remotePort: port,
		sndNxt: isnForPort(localPort),
	}
	i.tcp.conns[c.ID] = st
	i.tcp.byQuad[quad{remoteIP: ip, remotePort: port, localPort: localPort}] = st
	c.Fire(mgr.EvOpen, nil)

	if mac, known := i.arp.macFor(ip); known {
		st.remoteMAC = mac
		i.tcp.sendSYN(st)
	} else {
		st.state = tcpArpWait
		c.SetFlag(mgr.FlagARPLooking)
		i.arp.await(ip, c.ID)
		i.tcp.armTimer(st, timerArp, arpTimeoutMS)
	}
	return c
}

// onARPResolved wakes a connection parked in ARP_WAIT (called by
// arpTable.resolve).
func (t *tcpTable) onARPResolved(connID uint64, mac [6]byte) {
	st, ok := t.conns[connID]
	if !ok || st.state != tcpArpWait {
		return
	}
	st.remoteMAC = mac
	st.c.ClearFlag(mgr.FlagARPLooking)
	t.sendSYN(st)
}

func (t *tcpTable) sendSYN(st *tcpConn) {
	st.state = tcpSynSent
	t.sendSegment(st, tcpSYN, nil)
	t.armTimer(st, timerSyn, synTimeoutMS)
}

func (t *tcpTable) buildSegment(st *tcpConn, flags byte, payload []byte) []byte {
	const hdrLen = 20
	b := make([]byte, hdrLen+len(payload))
	binary.BigEndian.PutUint16(b[0:2], st.localPort)
	binary.BigEndian.PutUint16(b[2:4], st.remotePort)
	binary.BigEndian.PutUint32(b[4:8], st.sndNxt)
	binary.BigEndian.PutUint32(b[8:12], st.rcvNxt)
	b[12] = byte(hdrLen/4) << 4
	b[13] = flags
	binary.BigEndian.PutUint16(b[14:16], tcpWindow) // advertised window
	copy(b[20:], payload)
	sum := pseudoHeaderSum(t.i.IP, st.remoteIP, protoTCP, uint16(len(b)))
	cksum := checksum16(b, sum)
	binary.BigEndian.PutUint16(b[16:18], cksum)
	return b
}

func (t *tcpTable) sendSegment(st *tcpConn, flags byte, payload []byte) {
	seg := t.buildSegment(st, flags, payload)
	ipPkt := buildIPv4(t.i.IP, st.remoteIP, protoTCP, seg)
	t.i.tx(st.remoteMAC, etherTypeIPv4, ipPkt)
	adv := uint32(len(payload))
	if flags&(tcpSYN|tcpFIN) != 0 {
		adv++
	}
	st.sndNxt += adv
	if t.i.Metric != nil {
		t.i.Metric.BytesSent.Add(float64(len(payload)))
	}
}

func (t *tcpTable) armTimer(st *tcpConn, typ timerType, ms int64) {
	st.timer = typ
	st.deadlineMS = nowMS() + ms
}

// rx dispatches one TCP segment and drives its connection's state
// transitions.
func (t *tcpTable) rx(h ipv4Header, payload []byte) {
	if len(payload) < 20 {
		return
	}
	srcPort := binary.BigEndian.Uint16(payload[0:2])
	dstPort := binary.BigEndian.Uint16(payload[2:4])
	seq := binary.BigEndian.Uint32(payload[4:8])
	ackNum := binary.BigEndian.Uint32(payload[8:12])
	hdrLen := int(payload[12]>>4) * 4
	if hdrLen < 20 || hdrLen > len(payload) {
		return
	}
	flags := payload[13]
	data := payload[hdrLen:]

	q := quad{remoteIP: h.Src, remotePort: srcPort, localPort: dstPort}
	st, ok := t.byQuad[q]
	if !ok {
		if flags&tcpSYN != 0 {
			t.accept(h.Src, srcPort, dstPort, seq)
		}
		return
	}

	if flags&tcpRST != 0 {
		t.reset(st)
		return
	}

	// any segment from an established peer is proof of life: a fresh
	// keepalive miss streak starts from here.
	st.tmiss = 0

	switch {
	case st.state == tcpSynSent && flags&(tcpSYN|tcpACK) == (tcpSYN|tcpACK):
		st.rcvNxt = seq + 1
		st.sndUna = ackNum
		st.state = tcpEstablished
		t.sendSegment(st, tcpACK, nil)
		st.timer = timerNone
		st.c.Fire(mgr.EvConnect, nil)
	case st.state == tcpSynRcvd && flags&tcpACK != 0:
		st.sndUna = ackNum
		st.state = tcpEstablished
		st.timer = timerNone
	default:
		t.handleEstablished(st, seq, ackNum, flags, data)
	}
}

// accept spins up a child connection answering a SYN on a listening port; if
// the peer's MAC isn't cached yet the SYN is dropped and an ARP request
// issued, relying on the peer's own SYN retransmit to complete the handshake.
func (t *tcpTable) accept(srcIP [4]byte, srcPort, dstPort uint16, seq uint32) {
	ls, ok := t.listeners[dstPort]
	if !ok {
		return
	}
	mac, known := t.i.arp.macFor(srcIP)
	if !known {
		t.i.arp.request(srcIP)
		return
	}

	child := t.i.Mgr.NewConn()
	child.SetFlag(mgr.FlagAccepted)
	child.Loc = mgr.AddressFromIPv4(t.i.IP, dstPort)
	child.Rem = mgr.AddressFromIPv4(srcIP, srcPort)
	child.Fn = ls.c.Fn
	child.FnData = ls.c.FnData

	st := &tcpConn{
		c: child, listener: ls, localPort: dstPort, remoteIP: srcIP, remotePort: srcPort,
		remoteMAC: mac, sndNxt: isnForPort(srcPort), rcvNxt: seq + 1, state: tcpSynRcvd,
	}
	t.conns[child.ID] = st
	t.byQuad[quad{remoteIP: srcIP, remotePort: srcPort, localPort: dstPort}] = st
	child.Fire(mgr.EvOpen, nil)
	child.Fire(mgr.EvAccept, nil)
	t.sendSegment(st, tcpSYN|tcpACK, nil)
	t.armTimer(st, timerSyn, synTimeoutMS)
}

func (t *tcpTable) handleEstablished(st *tcpConn, seq, ackNum uint32, flags byte, data []byte) {
	if flags&tcpACK != 0 && ackNum > st.sndUna && ackNum <= st.sndNxt {
		st.sndUna = ackNum
		st.unacked = nil
	}

	if seq != st.rcvNxt {
		// duplicate or out-of-order: ack what we already have so far and
		// drop the payload without delivering it.
		t.sendSegment(st, tcpACK, nil)
		return
	}

	if len(data) > 0 {
		st.c.Recv.Add(st.c.Recv.Len(), data)
		st.rcvNxt += uint32(len(data))
		st.unackedRecv += uint32(len(data))
		if t.i.Metric != nil {
			t.i.Metric.BytesRecv.Add(float64(len(data)))
		}
		st.c.Fire(mgr.EvRead, nil)

		if st.unackedRecv > tcpWindow/2 {
			t.sendSegment(st, tcpACK, nil)
			st.unackedRecv = 0
			t.armTimer(st, timerKeepalive, keepaliveTimeoutMS)
		} else {
			t.armTimer(st, timerACK, ackTimeoutMS)
		}
	}

	if flags&tcpFIN != 0 {
		st.rcvNxt++
		st.c.SetFlag(mgr.FlagClosing)
		if st.state == tcpEstablished {
			st.state = tcpClosing
			t.sendSegment(st, tcpFIN|tcpACK, nil)
			t.armTimer(st, timerFin, finTimeoutMS)
		} else {
			t.sendSegment(st, tcpACK, nil)
			t.closeConn(st)
		}
	}
}

func (t *tcpTable) reset(st *tcpConn) {
	t.i.Mgr.Error(st.c, "connection reset by peer")
	t.closeConn(st)
}

// errorByPeer fails every connection whose remote IP matches src, used when
// an inbound datagram can't be processed (e.g. a rejected IP fragment) but
// can still be attributed to a known peer.
func (t *tcpTable) errorByPeer(src [4]byte, msg string) {
	for _, st := range t.conns {
		if st.remoteIP == src {
			t.i.Mgr.Error(st.c, "%s", msg)
		}
	}
}

func (t *tcpTable) closeConn(st *tcpConn) {
	delete(t.conns, st.c.ID)
	delete(t.byQuad, quad{remoteIP: st.remoteIP, remotePort: st.remotePort, localPort: st.localPort})
	t.i.Mgr.CloseNow(st.c)
}

// flushSend stages one connection's pending Send buffer out as a single
// segment. Called every tick so a write issued from outside an EV_READ
// callback is not stranded until the next inbound packet.
func (t *tcpTable) flushSend(st *tcpConn) {
	if st.state != tcpEstablished || st.c.Send.Len() == 0 {
		return
	}
	payload := append([]byte(nil), st.c.Send.Bytes()...)
	t.sendSegment(st, tcpACK|tcpPSH, payload)
	st.c.Send.Del(0, len(payload))
	st.unacked = payload
	st.c.Fire(mgr.EvWrite, len(payload))
	t.armTimer(st, timerKeepalive, keepaliveTimeoutMS)
}

// poll drives every connection's pending send and its single outstanding
// ARP/SYN/FIN/KEEPALIVE/ACK timer.
func (t *tcpTable) poll(nowMS int64) {
	for _, st := range t.conns {
		t.flushSend(st)

		if st.timer == timerNone || nowMS < st.deadlineMS {
			continue
		}

		switch st.timer {
		case timerArp:
			st.tmiss++
			if st.tmiss > maxRetries {
				t.i.Mgr.Error(st.c, "ARP resolution timed out")
				t.closeConn(st)
				continue
			}
			t.i.arp.request(st.remoteIP)
			t.armTimer(st, timerArp, arpTimeoutMS)
		case timerSyn:
			st.tmiss++
			if st.tmiss > maxRetries {
				t.i.Mgr.Error(st.c, "connection timed out")
				t.closeConn(st)
				continue
			}
			if st.state == tcpSynSent {
				t.sendSegment(st, tcpSYN, nil)
			} else {
				t.sendSegment(st, tcpSYN|tcpACK, nil)
			}
			t.armTimer(st, timerSyn, synTimeoutMS)
			if t.i.Metric != nil {
				t.i.Metric.Retransmits.Inc()
			}
		case timerFin:
			st.tmiss++
			if st.tmiss > maxRetries {
				t.closeConn(st)
				continue
			}
			t.sendSegment(st, tcpFIN|tcpACK, nil)
			t.armTimer(st, timerFin, finTimeoutMS)
			if t.i.Metric != nil {
				t.i.Metric.Retransmits.Inc()
			}
		case timerKeepalive:
			st.tmiss++
			if st.tmiss > maxRetries {
				t.i.Mgr.Error(st.c, "keepalive")
				t.closeConn(st)
				continue
			}
			t.sendSegment(st, tcpACK, nil)
			t.armTimer(st, timerKeepalive, keepaliveTimeoutMS)
		case timerACK:
			t.sendSegment(st, tcpACK, nil)
			st.unackedRecv = 0
			t.armTimer(st, timerKeepalive, keepaliveTimeoutMS)
		}
	}
}
