package mqtt

import (
	"encoding/binary"
	"testing"
)

func TestVarintRoundTrip(t *testing.T) {
	for _, v := range []int{0, 127, 128, 16383, 16384, 2097151, 268435455} {
		enc := encodeVarint(v)
		got, n, err := decodeVarint(enc)
		if err != nil {
			t.Fatalf("decode(%d): %v", v, err)
		}
		if got != v || n != len(enc) {
			t.Fatalf("round trip %d: got %d consumed %d want %d", v, got, n, len(enc))
		}
	}
}

func TestBuildConnectParsesBack(t *testing.T) {
	pkt := BuildConnect(ConnectOptions{ClientID: "dev1", CleanSession: true, KeepAliveSec: 60})
	if pkt[0]>>4 != PktConnect {
		t.Fatalf("wrong packet type %d", pkt[0]>>4)
	}
}

func TestPublishRoundTrip(t *testing.T) {
	raw := BuildPublish(PublishOptions{Topic: "a/b", Payload: []byte("hi"), QoS: QoS1, PacketID: 7})
	pkt, n, ok := ParsePacket(raw)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if n != len(raw) {
		t.Fatalf("consumed %d want %d", n, len(raw))
	}
	if pkt.Topic != "a/b" || string(pkt.Payload) != "hi" || pkt.PacketID != 7 {
		t.Fatalf("got %+v", pkt)
	}
}

func TestBuildConnectGeneratesRandomClientIDWhenEmpty(t *testing.T) {
	pkt := BuildConnect(ConnectOptions{CleanSession: true, KeepAliveSec: 60})
	// variable header is "MQTT" (2+4) + level + flags + keepalive(2) = 10 bytes
	remLen, n, err := decodeVarint(pkt[1:])
	if err != nil {
		t.Fatalf("decode remaining length: %v", err)
	}
	body := pkt[1+n : 1+n+remLen]
	clientIDLen := int(binary.BigEndian.Uint16(body[10:12]))
	if clientIDLen != 20 {
		t.Fatalf("expected a 20-character generated client id, got length %d", clientIDLen)
	}
	clientID := string(body[12 : 12+clientIDLen])
	if clientID == "" {
		t.Fatal("expected a non-empty generated client id")
	}
}

func TestBuildConnectMQTT5EncodesProperties(t *testing.T) {
	pkt := BuildConnect(ConnectOptions{
		ClientID: "dev1", CleanSession: true, KeepAliveSec: 30, Version5: true,
		Properties: []Property{{ID: 0x11, Num: 3600}}, // Session Expiry Interval
	})
	remLen, n, err := decodeVarint(pkt[1:])
	if err != nil {
		t.Fatalf("decode remaining length: %v", err)
	}
	body := pkt[1+n : 1+n+remLen]
	// variable header: "MQTT"(6) + level(1) + flags(1) + keepalive(2) = 10, then properties
	props, consumed, perr := parseProperties(body[10:])
	if perr != nil {
		t.Fatalf("parseProperties: %v", perr)
	}
	if consumed == 0 || len(props) != 1 || props[0].ID != 0x11 || props[0].Num != 3600 {
		t.Fatalf("got props %+v consumed %d", props, consumed)
	}
}

func TestPropertyRoundTripAllTypes(t *testing.T) {
	in := []Property{
		{ID: 0x01, Num: 1},                          // byte
		{ID: 0x13, Num: 60},                         // short
		{ID: 0x11, Num: 3600},                       // int
		{ID: 0x0B, Num: 7},                          // varint
		{ID: 0x03, Str: "json"},                     // string
		{ID: 0x09, Bin: []byte{1, 2, 3}},             // binary
		{ID: 0x26, StrPair: [2]string{"k", "v"}},    // string pair
	}
	block := encodeProperties(in)
	out, consumed, err := parseProperties(block)
	if err != nil {
		t.Fatalf("parseProperties: %v", err)
	}
	if consumed != len(block) {
		t.Fatalf("consumed %d want %d", consumed, len(block))
	}
	if len(out) != len(in) {
		t.Fatalf("got %d properties want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].ID != in[i].ID || out[i].Num != in[i].Num || out[i].Str != in[i].Str ||
			string(out[i].Bin) != string(in[i].Bin) || out[i].StrPair != in[i].StrPair {
			t.Fatalf("property %d mismatch: got %+v want %+v", i, out[i], in[i])
		}
	}
}

func TestParsePacketVersionMQTT5ParsesPublishProperties(t *testing.T) {
	vh := appendStr(nil, "a/b")
	props := encodeProperties([]Property{{ID: 0x03, Str: "text/plain"}})
	body := append(vh, props...)
	body = append(body, []byte("payload")...)
	header := append([]byte{byte(PktPublish << 4)}, encodeVarint(len(body))...)
	raw := append(header, body...)

	pkt, n, ok := ParsePacketVersion(raw, true)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if n != len(raw) {
		t.Fatalf("consumed %d want %d", n, len(raw))
	}
	if pkt.Topic != "a/b" || string(pkt.Payload) != "payload" {
		t.Fatalf("got %+v", pkt)
	}
	if len(pkt.Properties) != 1 || pkt.Properties[0].Str != "text/plain" {
		t.Fatalf("expected decoded content-type property, got %+v", pkt.Properties)
	}
	if pkt.PropsSize == 0 {
		t.Fatal("expected non-zero PropsSize for an MQTT5 publish")
	}
}

func TestSessionAssignsIncrementingIDsSkippingZero(t *testing.T) {
	var s Session
	first := s.NextPacketID()
	if first == 0 {
		t.Fatal("packet id 0 is reserved")
	}
	second := s.NextPacketID()
	if second != first+1 {
		t.Fatalf("expected incrementing ids, got %d then %d", first, second)
	}
}
