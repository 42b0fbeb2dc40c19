package tcpip

// ARP op codes.
const (
	arpRequest = 1
	arpReply   = 2
)

// arpTable caches resolved MACs by IPv4 address and tracks connections
// waiting on a pending resolution.
type arpTable struct {
	i        *If
	cache    map[[4]byte][6]byte
	gwMAC    [6]byte
	gwMACSet bool
	waiters  map[[4]byte][]uint64 // ip -> connection ids flagged is_arplooking
}

func newARPTable(i *If) *arpTable {
	return &arpTable{i: i, cache: make(map[[4]byte][6]byte), waiters: make(map[[4]byte][]uint64)}
}

// handle processes one ARP payload (after the Ethernet header).
func (a *arpTable) handle(p []byte) {
	if len(p) < 28 {
		return
	}
	op := uint16(p[6])<<8 | uint16(p[7])
	var spa, tpa [4]byte
	var sha [6]byte
	copy(sha[:], p[8:14])
	copy(spa[:], p[14:18])
	copy(tpa[:], p[24:28])

	// Cache the sender's address opportunistically regardless of op: a host
	// that just asked for our MAC is very likely about to talk to us, and
	// this spares it a round trip resolving us back (RFC 826 update rule).
	a.cache[spa] = sha
	if spa == a.i.Gateway {
		a.gwMAC = sha
		a.gwMACSet = true
	}
	a.resolve(spa, sha)

	switch op {
	case arpRequest:
		if tpa == a.i.IP {
			a.reply(sha, spa)
		}
	}
}

// resolve transitions every TCP connection waiting on spa from ARP to SYN.
func (a *arpTable) resolve(ip [4]byte, mac [6]byte) {
	ids := a.waiters[ip]
	delete(a.waiters, ip)
	for _, id := range ids {
		a.i.tcp.onARPResolved(id, mac)
	}
}

// await registers target as waiting for ip's MAC and sends a request if one
// isn't already pending.
func (a *arpTable) await(ip [4]byte, connID uint64) {
	if mac, ok := a.cache[ip]; ok {
		a.i.tcp.onARPResolved(connID, mac)
		return
	}
	_, pending := a.waiters[ip]
	a.waiters[ip] = append(a.waiters[ip], connID)
	if !pending {
		a.request(ip)
	}
}

func (a *arpTable) request(tpa [4]byte) {
	p := make([]byte, 28)
	p[0], p[1] = 0, 1 // HTYPE ethernet
	p[2], p[3] = 0x08, 0x00
	p[4] = 6
	p[5] = 4
	p[6], p[7] = 0, arpRequest
	copy(p[8:14], a.i.MAC[:])
	copy(p[14:18], a.i.IP[:])
	copy(p[18:24], []byte{0, 0, 0, 0, 0, 0})
	copy(p[24:28], tpa[:])
	a.i.tx(broadcastMAC, etherTypeARP, p)
}

func (a *arpTable) reply(dstMAC [6]byte, dstIP [4]byte) {
	p := make([]byte, 28)
	p[0], p[1] = 0, 1
	p[2], p[3] = 0x08, 0x00
	p[4] = 6
	p[5] = 4
	p[6], p[7] = 0, arpReply
	copy(p[8:14], a.i.MAC[:])
	copy(p[14:18], a.i.IP[:])
	copy(p[18:24], dstMAC[:])
	copy(p[24:28], dstIP[:])
	a.i.tx(dstMAC, etherTypeARP, p)
}

// macFor returns the MAC to use reaching ip: the gateway if ip is outside our
// subnet, else the host's own cached/pending MAC.
func (a *arpTable) macFor(ip [4]byte) (mac [6]byte, known bool) {
	if !sameSubnet(ip, a.i.IP, a.i.Netmask) {
		if a.gwMACSet {
			return a.gwMAC, true
		}
		return [6]byte{}, false
	}
	mac, known = a.cache[ip]
	return
}

func sameSubnet(a, b, mask [4]byte) bool {
	for i := 0; i < 4; i++ {
		if a[i]&mask[i] != b[i]&mask[i] {
			return false
		}
	}
	return true
}
