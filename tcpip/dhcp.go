package tcpip

import "encoding/binary"

// DHCP message op codes, message types (option 53), and the option codes this
// engine understands.
const (
	bootRequest = 1
	bootReply   = 2

	dhcpDiscover = 1
	dhcpOffer    = 2
	dhcpRequest  = 3
	dhcpDecline  = 4
	dhcpAck      = 5
	dhcpNak      = 6
	dhcpRelease  = 7

	optSubnetMask   = 1
	optRouter       = 3
	optLeaseTime    = 51
	optMsgType      = 53
	optServerID     = 54
	optParamReqList = 55
	optEnd          = 255
)

var dhcpMagicCookie = [4]byte{99, 130, 83, 99}

const dhcpClientPort = 68
const dhcpServerPort = 67

// dhcpHandled intercepts UDP traffic on the bootp ports before the generic
// udpTable demux sees it; DHCP has no resolved peer to demux against (the
// client has no IP yet, the server replies to a not-yet-leased address).
func (i *If) dhcpHandled(h ipv4Header, udpPayload []byte) bool {
	if len(udpPayload) < 8 {
		return false
	}
	srcPort := binary.BigEndian.Uint16(udpPayload[0:2])
	dstPort := binary.BigEndian.Uint16(udpPayload[2:4])
	if !((srcPort == dhcpServerPort || srcPort == dhcpClientPort) &&
		(dstPort == dhcpServerPort || dstPort == dhcpClientPort)) {
		return false
	}
	data := udpPayload[8:]
	if dstPort == dhcpServerPort && i.dhcpS != nil {
		i.dhcpS.rx(data)
	}
	if dstPort == dhcpClientPort && i.dhcpC != nil {
		i.dhcpC.rx(data)
	}
	return true
}

// dhcpMsg is a parsed (or to-be-built) BOOTP/DHCP message.
type dhcpMsg struct {
	op     byte
	xid    uint32
	ciaddr [4]byte
	yiaddr [4]byte
	chaddr [6]byte
	msgType byte
	options map[byte][]byte
}

func parseDHCP(b []byte) (dhcpMsg, bool) {
	var m dhcpMsg
	if len(b) < 240 {
		return m, false
	}
	m.op = b[0]
	m.xid = binary.BigEndian.Uint32(b[4:8])
	copy(m.ciaddr[:], b[12:16])
	copy(m.yiaddr[:], b[16:20])
	copy(m.chaddr[:], b[28:34])
	if [4]byte(b[236:240]) != dhcpMagicCookie {
		return m, false
	}
	m.options = make(map[byte][]byte)
	i := 240
	for i < len(b) {
		code := b[i]
		if code == optEnd {
			break
		}
		if code == 0 {
			i++
			continue
		}
		if i+1 >= len(b) {
			break
		}
		l := int(b[i+1])
		if i+2+l > len(b) {
			break
		}
		m.options[code] = b[i+2 : i+2+l]
		i += 2 + l
	}
	if mt, ok := m.options[optMsgType]; ok && len(mt) == 1 {
		m.msgType = mt[0]
	}
	return m, true
}

func buildDHCP(op byte, xid uint32, ciaddr, yiaddr [4]byte, chaddr [6]byte, msgType byte, opts map[byte][]byte) []byte {
	b := make([]byte, 240, 300)
	b[0] = op
	b[1] = 1 // htype ethernet
	b[2] = 6 // hlen
	binary.BigEndian.PutUint32(b[4:8], xid)
	copy(b[12:16], ciaddr[:])
	copy(b[16:20], yiaddr[:])
	copy(b[28:34], chaddr[:])
	copy(b[236:240], dhcpMagicCookie[:])

	b = append(b, optMsgType, 1, msgType)
	for code, val := range opts {
		b = append(b, code, byte(len(val)))
		b = append(b, val...)
	}
	b = append(b, optEnd)
	return b
}

// xidFromMAC derives a transaction id from the last 4 bytes of a MAC address.
func xidFromMAC(mac [6]byte) uint32 {
	return binary.BigEndian.Uint32([]byte{mac[2], mac[3], mac[4], mac[5]})
}

var broadcastIP = [4]byte{255, 255, 255, 255}
var zeroIP = [4]byte{0, 0, 0, 0}

// sendDHCPBroadcast wraps a bootp payload in UDP/IP and transmits it
// link-broadcast; no ARP resolution is needed or possible since DHCP runs
// before an address is assigned.
func (i *If) sendDHCPBroadcast(payload []byte, srcPort, dstPort uint16, srcIP [4]byte) {
	dgram := buildUDP(srcIP, broadcastIP, srcPort, dstPort, payload)
	ipPkt := buildIPv4(srcIP, broadcastIP, protoUDP, dgram)
	i.tx(broadcastMAC, etherTypeIPv4, ipPkt)
}

type dhcpClientState int

const (
	dhcpInit dhcpClientState = iota
	dhcpSelecting
	dhcpRequesting
	dhcpBound
	dhcpRenewing
)

// dhcpClient is the RFC 2131 client state machine: INIT -> DISCOVER ->
// REQUEST -> BOUND -> RENEWING.
type dhcpClient struct {
	i          *If
	state      dhcpClientState
	xid        uint32
	offeredIP  [4]byte
	serverID   [4]byte
	leaseSecs  uint32
	boundAtMS  int64
	retries    int
	nextActMS  int64
}

func newDHCPClient(i *If) *dhcpClient {
	return &dhcpClient{i: i}
}

// reinit starts (or restarts) lease acquisition, called on link-up.
func (d *dhcpClient) reinit(nowMS int64) {
	d.state = dhcpSelecting
	d.xid = xidFromMAC(d.i.MAC)
	d.retries = 0
	d.nextActMS = nowMS
}

func (d *dhcpClient) poll(nowMS int64) {
	if d.state == dhcpInit || nowMS < d.nextActMS {
		return
	}
	switch d.state {
	case dhcpSelecting:
		d.sendDiscover()
		d.retries++
		d.nextActMS = nowMS + 4000
	case dhcpRequesting:
		if d.retries > maxRetries {
			d.state = dhcpSelecting
			d.retries = 0
		}
		d.sendRequest(d.offeredIP, d.serverID)
		d.retries++
		d.nextActMS = nowMS + 4000
	case dhcpBound:
		if d.leaseSecs > 0 && nowMS-d.boundAtMS >= int64(d.leaseSecs)*1000/2 {
			d.state = dhcpRenewing
			d.nextActMS = nowMS
		}
	case dhcpRenewing:
		d.sendRequest(d.i.IP, d.serverID)
		d.nextActMS = nowMS + 4000
	}
}

func (d *dhcpClient) sendDiscover() {
	opts := map[byte][]byte{optParamReqList: {optSubnetMask, optRouter}}
	msg := buildDHCP(bootRequest, d.xid, zeroIP, zeroIP, d.i.MAC, dhcpDiscover, opts)
	d.i.sendDHCPBroadcast(msg, dhcpClientPort, dhcpServerPort, zeroIP)
}

func (d *dhcpClient) sendRequest(reqIP, serverID [4]byte) {
	opts := map[byte][]byte{
		50: reqIP[:],
		optServerID: serverID[:],
	}
	ciaddr := zeroIP
	if d.state == dhcpRenewing {
		ciaddr = d.i.IP
	}
	msg := buildDHCP(bootRequest, d.xid, ciaddr, zeroIP, d.i.MAC, dhcpRequest, opts)
	d.i.sendDHCPBroadcast(msg, dhcpClientPort, dhcpServerPort, ciaddr)
}

func (d *dhcpClient) rx(payload []byte) {
	m, ok := parseDHCP(payload)
	if !ok || m.op != bootReply || m.xid != d.xid {
		return
	}
	switch m.msgType {
	case dhcpOffer:
		if d.state != dhcpSelecting {
			return
		}
		d.offeredIP = m.yiaddr
		if sid, ok := m.options[optServerID]; ok && len(sid) == 4 {
			copy(d.serverID[:], sid)
		}
		d.state = dhcpRequesting
		d.retries = 0
		d.sendRequest(d.offeredIP, d.serverID)
	case dhcpAck:
		if d.state != dhcpRequesting && d.state != dhcpRenewing {
			return
		}
		d.i.IP = m.yiaddr
		if mask, ok := m.options[optSubnetMask]; ok && len(mask) == 4 {
			copy(d.i.Netmask[:], mask)
		}
		if gw, ok := m.options[optRouter]; ok && len(gw) == 4 {
			copy(d.i.Gateway[:], gw)
		}
		if lt, ok := m.options[optLeaseTime]; ok && len(lt) == 4 {
			d.leaseSecs = binary.BigEndian.Uint32(lt)
		}
		d.boundAtMS = nowMS()
		d.state = dhcpBound
	case dhcpNak:
		d.reinit(nowMS())
	}
}

// DHCPPool is a contiguous lease range the built-in server hands offers and
// acks out from.
type DHCPPool struct {
	Start   [4]byte
	End     [4]byte
	Netmask [4]byte
	Gateway [4]byte
	LeaseSeconds uint32
}

func (p DHCPPool) contains(ip [4]byte) bool {
	return u32(ip) >= u32(p.Start) && u32(ip) <= u32(p.End)
}

func u32(ip [4]byte) uint32 { return binary.BigEndian.Uint32(ip[:]) }

func ipFromU32(v uint32) [4]byte {
	var ip [4]byte
	binary.BigEndian.PutUint32(ip[:], v)
	return ip
}

// dhcpServer hands out leases from a fixed pool, keyed by client hardware
// address.
type dhcpServer struct {
	i         *If
	pool      DHCPPool
	leases    map[[6]byte][4]byte
	expiresMS map[[6]byte]int64
	used      map[[4]byte]bool
	offers    map[[6]byte][4]byte
}

func newDHCPServer(i *If, pool DHCPPool) *dhcpServer {
	return &dhcpServer{
		i: i, pool: pool,
		leases:    make(map[[6]byte][4]byte),
		expiresMS: make(map[[6]byte]int64),
		used:      make(map[[4]byte]bool),
		offers:    make(map[[6]byte][4]byte),
	}
}

// poll reclaims expired leases so a client that vanished without a RELEASE
// doesn't permanently hold its address.
func (s *dhcpServer) poll(nowMS int64) {
	for mac, exp := range s.expiresMS {
		if nowMS < exp {
			continue
		}
		if ip, ok := s.leases[mac]; ok {
			delete(s.used, ip)
			delete(s.leases, mac)
		}
		delete(s.expiresMS, mac)
	}
}

func (s *dhcpServer) nextFree(chaddr [6]byte) ([4]byte, bool) {
	if ip, ok := s.leases[chaddr]; ok {
		return ip, true
	}
	for v := u32(s.pool.Start); v <= u32(s.pool.End); v++ {
		ip := ipFromU32(v)
		if !s.used[ip] {
			return ip, true
		}
	}
	return [4]byte{}, false
}

func (s *dhcpServer) rx(payload []byte) {
	m, ok := parseDHCP(payload)
	if !ok || m.op != bootRequest {
		return
	}
	switch m.msgType {
	case dhcpDiscover:
		ip, ok := s.nextFree(m.chaddr)
		if !ok {
			return
		}
		s.offers[m.chaddr] = ip
		s.reply(m, ip, dhcpOffer)
	case dhcpRequest:
		want := m.yiaddr
		if v, ok := m.options[50]; ok && len(v) == 4 {
			copy(want[:], v)
		}
		offered, hasOffer := s.offers[m.chaddr]
		if hasOffer && want == offered && s.pool.contains(want) {
			s.used[want] = true
			s.leases[m.chaddr] = want
			if s.pool.LeaseSeconds > 0 {
				s.expiresMS[m.chaddr] = nowMS() + int64(s.pool.LeaseSeconds)*1000
			}
			delete(s.offers, m.chaddr)
			s.reply(m, want, dhcpAck)
			if s.i.Metric != nil {
				s.i.Metric.DHCPLeases.Inc()
			}
		} else {
			s.reply(m, zeroIP, dhcpNak)
		}
	case dhcpRelease:
		if ip, ok := s.leases[m.chaddr]; ok {
			delete(s.used, ip)
			delete(s.leases, m.chaddr)
			delete(s.expiresMS, m.chaddr)
		}
	}
}

func (s *dhcpServer) reply(req dhcpMsg, yiaddr [4]byte, msgType byte) {
	opts := map[byte][]byte{
		optServerID:  s.i.IP[:],
		optSubnetMask: s.pool.Netmask[:],
		optRouter:    s.pool.Gateway[:],
	}
	if msgType != dhcpNak && s.pool.LeaseSeconds > 0 {
		lt := make([]byte, 4)
		binary.BigEndian.PutUint32(lt, s.pool.LeaseSeconds)
		opts[optLeaseTime] = lt
	}
	msg := buildDHCP(bootReply, req.xid, zeroIP, yiaddr, req.chaddr, msgType, opts)
	s.i.sendDHCPBroadcast(msg, dhcpServerPort, dhcpClientPort, s.i.IP)
}
