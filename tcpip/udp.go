package tcpip

import "github.com/sabouaram/embednet/mgr"

// udpSocket is one bound UDP endpoint on the built-in stack: a listener that
// demuxes every remote peer into its own child mgr.Connection, mirroring
// mgr's own hosted UDP listener model (poll.go's pollUDPListener).
type udpSocket struct {
	conn  *mgr.Connection
	port  uint16
	peers map[[6]byte]*mgr.Connection
}

type udpTable struct {
	i      *If
	byPort map[uint16]*udpSocket
}

func newUDPTable(i *If) *udpTable {
	return &udpTable{i: i, byPort: make(map[uint16]*udpSocket)}
}

// ListenUDP binds port on the built-in stack (for any protocol handler, e.g.
// proto/dns, operating directly over this engine instead of a hosted socket;
// DHCP traffic is handled by the DHCP client/server code, not through this
// table).
func (i *If) ListenUDP(port uint16, fn mgr.Handler, fnData interface{}) *mgr.Connection {
	c := i.Mgr.NewConn()
	c.SetFlag(mgr.FlagListening)
	c.SetFlag(mgr.FlagUDP)
	c.Loc = mgr.AddressFromIPv4(i.IP, port)
	c.Fn = fn
	c.FnData = fnData
	i.udp.byPort[port] = &udpSocket{conn: c, port: port, peers: make(map[[6]byte]*mgr.Connection)}
	c.Fire(mgr.EvOpen, nil)
	return c
}

func peerKey(ip [4]byte, port uint16) [6]byte {
	var k [6]byte
	copy(k[:4], ip[:])
	k[4] = byte(port >> 8)
	k[5] = byte(port)
	return k
}

func buildUDP(src, dst [4]byte, srcPort, dstPort uint16, payload []byte) []byte {
	length := 8 + len(payload)
	b := make([]byte, length)
	b[0] = byte(srcPort >> 8)
	b[1] = byte(srcPort)
	b[2] = byte(dstPort >> 8)
	b[3] = byte(dstPort)
	b[4] = byte(length >> 8)
	b[5] = byte(length)
	copy(b[8:], payload)
	sum := pseudoHeaderSum(src, dst, protoUDP, uint16(length))
	cksum := checksum16(b, sum)
	if cksum == 0 {
		cksum = 0xFFFF // 0 is reserved to mean "no checksum computed"
	}
	b[6] = byte(cksum >> 8)
	b[7] = byte(cksum)
	return b
}

// rx demuxes one UDP datagram arriving on the built-in stack; rxIPv4
// dispatches here by IP protocol field.
func (u *udpTable) rx(h ipv4Header, payload []byte) {
	if len(payload) < 8 {
		return
	}
	srcPort := uint16(payload[0])<<8 | uint16(payload[1])
	dstPort := uint16(payload[2])<<8 | uint16(payload[3])
	data := payload[8:]

	sock, ok := u.byPort[dstPort]
	if !ok {
		return
	}

	key := peerKey(h.Src, srcPort)
	child, exists := sock.peers[key]
	if !exists {
		child = u.i.Mgr.NewConn()
		child.SetFlag(mgr.FlagUDP)
		child.SetFlag(mgr.FlagAccepted)
		child.Loc = sock.conn.Loc
		child.Rem = mgr.AddressFromIPv4(h.Src, srcPort)
		child.Fn = sock.conn.Fn
		child.FnData = sock.conn.FnData
		sock.peers[key] = child
		child.Fire(mgr.EvOpen, nil)
		child.Fire(mgr.EvAccept, nil)
	}
	if len(data) > 0 {
		child.Recv.Add(child.Recv.Len(), data)
		if u.i.Metric != nil {
			u.i.Metric.BytesRecv.Add(float64(len(data)))
		}
		child.Fire(mgr.EvRead, nil)
	}
	u.flush(sock, child)
}

// flush drains child's pending Send buffer as one UDP datagram addressed back
// to its peer. Called right after rx so a synchronous reply inside an
// EV_READ handler goes out the same tick, and again from poll so writes made
// outside of EV_READ (e.g. from a timer or EV_POLL) are not stranded.
func (u *udpTable) flush(sock *udpSocket, child *mgr.Connection) {
	if child.Send.Len() == 0 {
		return
	}
	dst := child.Rem.AsIPv4()
	mac, known := u.i.arp.macFor(dst)
	if !known {
		u.i.arp.await(dst, child.ID)
		return
	}
	payload := append([]byte(nil), child.Send.Bytes()...)
	src := sock.conn.Loc.AsIPv4()
	dgram := buildUDP(src, dst, sock.port, child.Rem.Port(), payload)
	ipPkt := buildIPv4(src, dst, protoUDP, dgram)
	n := u.i.tx(mac, etherTypeIPv4, ipPkt)
	if n > 0 {
		child.Send.Del(0, len(payload))
		if u.i.Metric != nil {
			u.i.Metric.BytesSent.Add(float64(len(payload)))
		}
		child.Fire(mgr.EvWrite, len(payload))
	}
}

// poll retries delivery for every peer with pending Send data, across every
// bound socket. An ARP resolution completing does not call this path
// (arpTable.resolve only wakes TCP connections directly); UDP senders waiting
// on ARP are instead picked up here on the next tick since a dropped datagram
// is tolerable for UDP.
func (u *udpTable) poll(nowMS int64) {
	for _, sock := range u.byPort {
		for _, child := range sock.peers {
			u.flush(sock, child)
		}
	}
}
