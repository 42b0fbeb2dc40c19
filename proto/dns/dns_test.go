package dns

import (
	"encoding/binary"
	"testing"
)

func TestEncodeQueryRoundTripsName(t *testing.T) {
	c := New()
	q := c.EncodeQuery(0x1234, "example.com", false)
	if binary.BigEndian.Uint16(q[0:2]) != 0x1234 {
		t.Fatal("txn id not encoded first")
	}
	name, next, err := readName(q, 12, 0)
	if err != nil {
		t.Fatalf("readName: %v", err)
	}
	if name != "example.com" {
		t.Fatalf("got %q", name)
	}
	qtype := binary.BigEndian.Uint16(q[next : next+2])
	if qtype != qtypeA {
		t.Fatalf("expected A query, got %d", qtype)
	}
}

func buildAResponse(txnID uint16, ip [4]byte) []byte {
	b := make([]byte, 12)
	binary.BigEndian.PutUint16(b[0:2], txnID)
	binary.BigEndian.PutUint16(b[2:4], 0x8180) // QR|RD|RA, rcode 0
	binary.BigEndian.PutUint16(b[4:6], 1)
	binary.BigEndian.PutUint16(b[6:8], 1)
	b = append(b, encodeName("example.com")...)
	b = append(b, 0, qtypeA, 0, qclassIN)

	answer := []byte{0xC0, 0x0C} // pointer back to the question name
	answer = append(answer, byte(qtypeA>>8), byte(qtypeA))
	answer = append(answer, byte(qclassIN>>8), byte(qclassIN))
	answer = append(answer, 0, 0, 0, 60) // TTL
	rdlen := make([]byte, 2)
	binary.BigEndian.PutUint16(rdlen, 4)
	answer = append(answer, rdlen...)
	answer = append(answer, ip[:]...)
	return append(b, answer...)
}

func TestParseResponseFindsA(t *testing.T) {
	c := New()
	msg := buildAResponse(0xabcd, [4]byte{93, 184, 216, 34})
	txnID, ip, rcode, ok := c.ParseResponse(msg)
	if !ok || rcode != 0 {
		t.Fatalf("parse failed: ok=%v rcode=%d", ok, rcode)
	}
	if txnID != 0xabcd {
		t.Fatalf("txn id mismatch: %x", txnID)
	}
	if ip.String() != "93.184.216.34" {
		t.Fatalf("got ip %s", ip)
	}
}

func TestParseResponseNXDomain(t *testing.T) {
	c := New()
	b := make([]byte, 12)
	binary.BigEndian.PutUint16(b[0:2], 7)
	binary.BigEndian.PutUint16(b[2:4], 0x8183) // rcode 3 NXDOMAIN
	binary.BigEndian.PutUint16(b[4:6], 1)
	b = append(b, encodeName("nope.invalid")...)
	b = append(b, 0, qtypeA, 0, qclassIN)

	_, _, rcode, ok := c.ParseResponse(b)
	if !ok || rcode != 3 {
		t.Fatalf("expected rcode 3, got ok=%v rcode=%d", ok, rcode)
	}
}
