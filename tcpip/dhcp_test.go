package tcpip

import "testing"

func TestBuildDHCPThenParseRoundTrips(t *testing.T) {
	chaddr := [6]byte{0x02, 0, 0, 0, 0, 7}
	yiaddr := [4]byte{10, 0, 0, 5}
	opts := map[byte][]byte{optSubnetMask: {255, 255, 255, 0}}

	raw := buildDHCP(bootReply, 0xdeadbeef, zeroIP, yiaddr, chaddr, dhcpOffer, opts)
	m, ok := parseDHCP(raw)
	if !ok {
		t.Fatal("expected a successful parse")
	}
	if m.op != bootReply || m.xid != 0xdeadbeef || m.yiaddr != yiaddr || m.chaddr != chaddr {
		t.Fatalf("got %+v", m)
	}
	if m.msgType != dhcpOffer {
		t.Fatalf("got msgType %d, want dhcpOffer", m.msgType)
	}
	if mask, ok := m.options[optSubnetMask]; !ok || string(mask) != string([]byte{255, 255, 255, 0}) {
		t.Fatalf("got subnet mask option %v", mask)
	}
}

func TestParseDHCPRejectsBadMagicCookie(t *testing.T) {
	raw := buildDHCP(bootRequest, 1, zeroIP, zeroIP, [6]byte{}, dhcpDiscover, nil)
	raw[236] ^= 0xff // corrupt the magic cookie
	if _, ok := parseDHCP(raw); ok {
		t.Fatal("expected parse to fail on a corrupted magic cookie")
	}
}

func TestXidFromMACUsesLastFourBytes(t *testing.T) {
	mac := [6]byte{0x02, 0x11, 0xaa, 0xbb, 0xcc, 0xdd}
	got := xidFromMAC(mac)
	want := uint32(0xaabbccdd)
	if got != want {
		t.Fatalf("got %#08x, want %#08x", got, want)
	}
}

func TestDHCPPoolContains(t *testing.T) {
	pool := DHCPPool{Start: [4]byte{10, 0, 0, 10}, End: [4]byte{10, 0, 0, 20}}
	if !pool.contains([4]byte{10, 0, 0, 15}) {
		t.Fatal("expected 10.0.0.15 to be within the pool")
	}
	if pool.contains([4]byte{10, 0, 0, 5}) {
		t.Fatal("did not expect 10.0.0.5 to be within the pool")
	}
}
