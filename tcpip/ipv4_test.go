package tcpip

import "testing"

func TestBuildIPv4ThenParseRoundTrips(t *testing.T) {
	src := [4]byte{10, 0, 0, 1}
	dst := [4]byte{10, 0, 0, 2}
	payload := []byte("hello")

	pkt := buildIPv4(src, dst, protoUDP, payload)
	h, body, ok := parseIPv4(pkt)
	if !ok {
		t.Fatal("expected a successful parse")
	}
	if h.Src != src || h.Dst != dst || h.Proto != protoUDP {
		t.Fatalf("got header %+v", h)
	}
	if string(body) != "hello" {
		t.Fatalf("got body %q", body)
	}
	if h.MF || h.FragOff != 0 {
		t.Fatal("a freshly built datagram should never look fragmented")
	}
}

func TestParseIPv4RejectsShortBuffer(t *testing.T) {
	if _, _, ok := parseIPv4([]byte{0x45, 0x00}); ok {
		t.Fatal("expected parse to fail on a truncated header")
	}
}

func TestParseIPv4DetectsMoreFragments(t *testing.T) {
	pkt := buildIPv4([4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, protoTCP, []byte("x"))
	pkt[6] |= 0x20 // set MF
	h, _, ok := parseIPv4(pkt)
	if !ok || !h.MF {
		t.Fatalf("expected MF to be detected, got ok=%v h=%+v", ok, h)
	}
}
