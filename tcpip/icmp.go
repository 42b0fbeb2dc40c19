package tcpip

const (
	icmpEchoReply   = 0
	icmpEchoRequest = 8
)

// rxICMP answers echo requests addressed to us; everything else is dropped.
// ICMP is otherwise out of this engine's scope (no destination-unreachable,
// no traceroute support).
func (i *If) rxICMP(h ipv4Header, payload []byte) {
	if len(payload) < 8 || payload[0] != icmpEchoRequest || h.Dst != i.IP {
		return
	}

	reply := make([]byte, len(payload))
	copy(reply, payload)
	reply[0] = icmpEchoReply
	reply[1] = 0
	reply[2], reply[3] = 0, 0
	cksum := checksum16(reply, 0)
	reply[2] = byte(cksum >> 8)
	reply[3] = byte(cksum)

	dgram := buildIPv4(i.IP, h.Src, protoICMP, reply)
	mac, known := i.arp.macFor(h.Src)
	if !known {
		return
	}
	i.tx(mac, etherTypeIPv4, dgram)
}
