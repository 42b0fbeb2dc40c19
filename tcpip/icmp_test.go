package tcpip

import "testing"

type recordingDriver struct {
	sent [][]byte
}

func (r *recordingDriver) Init(i *If) bool { return true }
func (r *recordingDriver) Up(i *If) bool   { return true }
func (r *recordingDriver) Rx(buf []byte, i *If) int { return 0 }
func (r *recordingDriver) Tx(frame []byte, i *If) int {
	r.sent = append(r.sent, append([]byte(nil), frame...))
	return len(frame)
}

func TestRxICMPRepliesToEchoRequest(t *testing.T) {
	drv := &recordingDriver{}
	i := newTestIf()
	i.Driver = drv
	i.arp = newARPTable(i)

	peer := [4]byte{10, 0, 0, 9}
	peerMAC := [6]byte{0x02, 0, 0, 0, 0, 9}
	i.arp.cache[peer] = peerMAC

	req := []byte{icmpEchoRequest, 0, 0, 0, 0, 1, 0, 2, 'p', 'i', 'n', 'g'}
	cksum := checksum16(req, 0)
	req[2], req[3] = byte(cksum>>8), byte(cksum)

	i.rxICMP(ipv4Header{Src: peer, Dst: i.IP}, req)

	if len(drv.sent) != 1 {
		t.Fatalf("got %d frames sent, want 1", len(drv.sent))
	}
	frame := drv.sent[0]
	if frame[12] != 0x08 || frame[13] != 0x00 {
		t.Fatalf("got ethertype %x%x, want IPv4", frame[12], frame[13])
	}
	icmpPayload := frame[14+20:]
	if icmpPayload[0] != icmpEchoReply {
		t.Fatalf("got icmp type %d, want echo reply", icmpPayload[0])
	}
	if string(icmpPayload[4:]) != string(req[4:]) {
		t.Fatalf("got identifier+payload %q, want the request echoed back", icmpPayload[4:])
	}
}

func TestRxICMPIgnoresMisaddressedEchoRequest(t *testing.T) {
	drv := &recordingDriver{}
	i := newTestIf()
	i.Driver = drv
	i.arp = newARPTable(i)

	other := [4]byte{10, 0, 0, 99}
	req := []byte{icmpEchoRequest, 0, 0, 0, 0, 1, 0, 2}
	i.rxICMP(ipv4Header{Src: [4]byte{10, 0, 0, 9}, Dst: other}, req)

	if len(drv.sent) != 0 {
		t.Fatal("did not expect a reply for a request addressed to another host")
	}
}

func TestRxICMPDropsUnresolvedPeer(t *testing.T) {
	drv := &recordingDriver{}
	i := newTestIf()
	i.Driver = drv
	i.arp = newARPTable(i)

	req := []byte{icmpEchoRequest, 0, 0, 0, 0, 1, 0, 2}
	i.rxICMP(ipv4Header{Src: [4]byte{10, 0, 0, 9}, Dst: i.IP}, req)

	if len(drv.sent) != 0 {
		t.Fatal("expected no reply when the peer's MAC is not yet known")
	}
}
