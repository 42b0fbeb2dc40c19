// Package mqtt is the built-in MQTT 3.1.1/5 protocol handler: the
// variable-length integer codec, a CONNECT builder, PUBLISH encode/decode
// with QoS 1/2 id assignment, a minimal MQTT5 property table, and
// DISCONNECT.
package mqtt

import (
	"encoding/binary"
	"errors"

	"github.com/sabouaram/embednet/mgr"
)

// Control packet types (MQTT 3.1.1 §2.2.1, unchanged in MQTT5).
const (
	PktConnect    = 1
	PktConnAck    = 2
	PktPublish    = 3
	PktPubAck     = 4
	PktPubRec     = 5
	PktPubRel     = 6
	PktPubComp    = 7
	PktSubscribe  = 8
	PktSubAck     = 9
	PktUnsub      = 10
	PktUnsubAck   = 11
	PktPingReq    = 12
	PktPingResp   = 13
	PktDisconnect = 14
)

// QoS levels.
const (
	QoS0 = 0
	QoS1 = 1
	QoS2 = 2
)

var errMalformedVarint = errors.New("mqtt: malformed variable byte integer")

// encodeVarint writes MQTT's variable byte integer (up to 4 bytes, max value
// 268,435,455).
func encodeVarint(v int) []byte {
	var out []byte
	for {
		b := byte(v % 128)
		v /= 128
		if v > 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

// decodeVarint reads one variable byte integer from buf, returning the value
// and how many bytes it consumed.
func decodeVarint(buf []byte) (value, consumed int, err error) {
	mult := 1
	for i := 0; i < 4; i++ {
		if i >= len(buf) {
			return 0, 0, errMalformedVarint
		}
		b := buf[i]
		value += int(b&0x7F) * mult
		consumed++
		if b&0x80 == 0 {
			return value, consumed, nil
		}
		mult *= 128
	}
	return 0, 0, errMalformedVarint
}

// propType is the wire shape of one MQTT5 property value (MQTT5 §2.2.2.2);
// the parser walks a declared property block strictly by looking up each
// property identifier's type here, the same way the fixed-header flags are
// interpreted by position rather than guessed from content.
type propType byte

const (
	propTypeByte propType = iota
	propTypeShort
	propTypeInt
	propTypeVarint
	propTypeString
	propTypeBinary
	propTypeStringPair
)

// propertyTypes maps each MQTT5 property identifier to its wire type. An
// identifier missing from this table cannot be safely skipped (its width is
// unknown), so parseProperties treats that as malformed rather than
// guessing.
var propertyTypes = map[byte]propType{
	0x01: propTypeByte,       // Payload Format Indicator
	0x02: propTypeInt,        // Message Expiry Interval
	0x03: propTypeString,     // Content Type
	0x08: propTypeString,     // Response Topic
	0x09: propTypeBinary,     // Correlation Data
	0x0B: propTypeVarint,     // Subscription Identifier
	0x11: propTypeInt,        // Session Expiry Interval
	0x12: propTypeString,     // Assigned Client Identifier
	0x13: propTypeShort,      // Server Keep Alive
	0x15: propTypeString,     // Authentication Method
	0x16: propTypeBinary,     // Authentication Data
	0x17: propTypeByte,       // Request Problem Information
	0x18: propTypeInt,        // Will Delay Interval
	0x19: propTypeByte,       // Request Response Information
	0x1A: propTypeString,     // Response Information
	0x1C: propTypeString,     // Server Reference
	0x1F: propTypeString,     // Reason String
	0x21: propTypeShort,      // Receive Maximum
	0x22: propTypeShort,      // Topic Alias Maximum
	0x23: propTypeShort,      // Topic Alias
	0x24: propTypeByte,       // Maximum QoS
	0x25: propTypeByte,       // Retain Available
	0x26: propTypeStringPair, // User Property
	0x27: propTypeInt,        // Maximum Packet Size
	0x28: propTypeByte,       // Wildcard Subscription Available
	0x29: propTypeByte,       // Subscription Identifier Available
	0x2A: propTypeByte,       // Shared Subscription Available
}

var (
	errUnknownProperty = errors.New("mqtt: unknown property identifier")
	errMalformedProp   = errors.New("mqtt: malformed property value")
)

// Property is one decoded (or to-encode) MQTT5 property. Only the field
// matching its ID's propType is meaningful; encodeProperty/parseProperties
// never read or write the others.
type Property struct {
	ID      byte
	Num     uint32
	Str     string
	Bin     []byte
	StrPair [2]string
}

func encodeProperty(p Property) ([]byte, error) {
	pt, ok := propertyTypes[p.ID]
	if !ok {
		return nil, errUnknownProperty
	}
	out := []byte{p.ID}
	switch pt {
	case propTypeByte:
		out = append(out, byte(p.Num))
	case propTypeShort:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(p.Num))
		out = append(out, b...)
	case propTypeInt:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, p.Num)
		out = append(out, b...)
	case propTypeVarint:
		out = append(out, encodeVarint(int(p.Num))...)
	case propTypeString:
		out = appendStr(out, p.Str)
	case propTypeBinary:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(len(p.Bin)))
		out = append(out, b...)
		out = append(out, p.Bin...)
	case propTypeStringPair:
		out = appendStr(out, p.StrPair[0])
		out = appendStr(out, p.StrPair[1])
	}
	return out, nil
}

// encodeProperties builds a varint-length-prefixed MQTT5 property block.
// props may be empty, which still emits a valid (zero-length) block.
func encodeProperties(props []Property) []byte {
	var body []byte
	for _, p := range props {
		enc, err := encodeProperty(p)
		if err != nil {
			continue
		}
		body = append(body, enc...)
	}
	return append(encodeVarint(len(body)), body...)
}

// parseProperties reads one varint-length-prefixed property block off buf,
// walking each property by its table-declared width, and returns the
// properties plus how many bytes (including the length prefix) it consumed.
func parseProperties(buf []byte) (props []Property, consumed int, err error) {
	length, n, verr := decodeVarint(buf)
	if verr != nil {
		return nil, 0, verr
	}
	pos := n
	end := n + length
	if end > len(buf) {
		return nil, 0, errMalformedProp
	}
	for pos < end {
		id := buf[pos]
		pos++
		pt, ok := propertyTypes[id]
		if !ok {
			return nil, 0, errUnknownProperty
		}
		p := Property{ID: id}
		switch pt {
		case propTypeByte:
			if pos >= end {
				return nil, 0, errMalformedProp
			}
			p.Num = uint32(buf[pos])
			pos++
		case propTypeShort:
			if pos+2 > end {
				return nil, 0, errMalformedProp
			}
			p.Num = uint32(binary.BigEndian.Uint16(buf[pos : pos+2]))
			pos += 2
		case propTypeInt:
			if pos+4 > end {
				return nil, 0, errMalformedProp
			}
			p.Num = binary.BigEndian.Uint32(buf[pos : pos+4])
			pos += 4
		case propTypeVarint:
			v, vn, verr2 := decodeVarint(buf[pos:end])
			if verr2 != nil {
				return nil, 0, errMalformedProp
			}
			p.Num = uint32(v)
			pos += vn
		case propTypeString:
			if pos+2 > end {
				return nil, 0, errMalformedProp
			}
			l := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
			pos += 2
			if pos+l > end {
				return nil, 0, errMalformedProp
			}
			p.Str = string(buf[pos : pos+l])
			pos += l
		case propTypeBinary:
			if pos+2 > end {
				return nil, 0, errMalformedProp
			}
			l := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
			pos += 2
			if pos+l > end {
				return nil, 0, errMalformedProp
			}
			p.Bin = append([]byte(nil), buf[pos:pos+l]...)
			pos += l
		case propTypeStringPair:
			for i := 0; i < 2; i++ {
				if pos+2 > end {
					return nil, 0, errMalformedProp
				}
				l := int(binary.BigEndian.Uint16(buf[pos : pos+2]))
				pos += 2
				if pos+l > end {
					return nil, 0, errMalformedProp
				}
				p.StrPair[i] = string(buf[pos : pos+l])
				pos += l
			}
		}
		props = append(props, p)
	}
	return props, end, nil
}

// clientIDCharset is what randomClientID draws from: MQTT 3.1.1 §3.1.3.1
// guarantees servers accept at least this alphabet for a 1-23 char id.
const clientIDCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// fallbackIDEntropy stands in for randomClientID's entropy when a caller
// doesn't supply any, so BuildConnect never fails to produce an id; it still
// varies per character rather than repeating one byte.
var fallbackIDEntropy = []byte{
	0x5a, 0x3c, 0x91, 0xe7, 0x24, 0x6b, 0xd0, 0x17,
	0x88, 0xf1, 0x0a, 0x59, 0xc2, 0x3d, 0x76, 0xbe,
	0x42, 0x9f, 0x1e, 0xd5,
}

// randomClientID generates a 20-character client id from entropy the caller
// supplies, keeping this package free of a math/rand/crypto-rand dependency
// choice the way ClientMaskKey does in proto/ws.
func randomClientID(entropy []byte) string {
	id := make([]byte, 20)
	for i := range id {
		id[i] = clientIDCharset[int(entropy[i%len(entropy)])%len(clientIDCharset)]
	}
	return string(id)
}

// ConnectOptions configures BuildConnect.
type ConnectOptions struct {
	ClientID     string
	Username     string
	Password     []byte
	KeepAliveSec uint16
	CleanSession bool
	Version5     bool
	Properties   []Property // MQTT5 only; ignored when Version5 is false
	WillTopic    string
	WillPayload  []byte
	WillQoS      byte
	WillRetain   bool

	// IDEntropy seeds randomClientID when ClientID is empty. Callers on the
	// built-in stack pass bytes from whatever entropy source they already
	// wire in; a nil or empty slice falls back to a fixed seed, trading
	// randomness for never failing to produce a client id, and a slice
	// shorter than the id is reused cyclically.
	IDEntropy []byte
}

func appendStr(b []byte, s string) []byte {
	l := make([]byte, 2)
	binary.BigEndian.PutUint16(l, uint16(len(s)))
	b = append(b, l...)
	return append(b, s...)
}

// BuildConnect builds a CONNECT packet (MQTT 3.1.1 §3.1, or MQTT5 when
// Version5 is set, carrying o.Properties through the property table). A
// blank ClientID is replaced with a random 20-character one, the way a
// broker would assign one anyway for a clean session.
func BuildConnect(o ConnectOptions) []byte {
	if o.ClientID == "" {
		entropy := o.IDEntropy
		if len(entropy) == 0 {
			entropy = fallbackIDEntropy
		}
		o.ClientID = randomClientID(entropy)
	}
	protoName := "MQTT"
	level := byte(4)
	if o.Version5 {
		level = 5
	}

	var flags byte
	if o.CleanSession {
		flags |= 0x02
	}
	if o.WillTopic != "" {
		flags |= 0x04
		flags |= o.WillQoS << 3
		if o.WillRetain {
			flags |= 0x20
		}
	}
	if o.Username != "" {
		flags |= 0x80
	}
	if o.Password != nil {
		flags |= 0x40
	}

	var vh []byte
	vh = appendStr(vh, protoName)
	vh = append(vh, level, flags)
	ka := make([]byte, 2)
	binary.BigEndian.PutUint16(ka, o.KeepAliveSec)
	vh = append(vh, ka...)
	if o.Version5 {
		vh = append(vh, encodeProperties(o.Properties)...)
	}

	var payload []byte
	payload = appendStr(payload, o.ClientID)
	if o.WillTopic != "" {
		if o.Version5 {
			payload = append(payload, encodeVarint(0)...)
		}
		payload = appendStr(payload, o.WillTopic)
		lw := make([]byte, 2)
		binary.BigEndian.PutUint16(lw, uint16(len(o.WillPayload)))
		payload = append(payload, lw...)
		payload = append(payload, o.WillPayload...)
	}
	if o.Username != "" {
		payload = appendStr(payload, o.Username)
	}
	if o.Password != nil {
		lp := make([]byte, 2)
		binary.BigEndian.PutUint16(lp, uint16(len(o.Password)))
		payload = append(payload, lp...)
		payload = append(payload, o.Password...)
	}

	body := append(vh, payload...)
	header := append([]byte{PktConnect << 4}, encodeVarint(len(body))...)
	return append(header, body...)
}

// PublishOptions configures BuildPublish.
type PublishOptions struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retain   bool
	Dup      bool
	PacketID uint16 // required when QoS > 0
}

// BuildPublish builds a PUBLISH packet (MQTT 3.1.1 §3.3); the caller supplies
// PacketID for QoS 1/2 (outbound id assignment lives in Session below).
func BuildPublish(o PublishOptions) []byte {
	flags := byte(PktPublish << 4)
	if o.Dup {
		flags |= 0x08
	}
	flags |= o.QoS << 1
	if o.Retain {
		flags |= 0x01
	}

	var vh []byte
	vh = appendStr(vh, o.Topic)
	if o.QoS > 0 {
		id := make([]byte, 2)
		binary.BigEndian.PutUint16(id, o.PacketID)
		vh = append(vh, id...)
	}
	body := append(vh, o.Payload...)
	header := append([]byte{flags}, encodeVarint(len(body))...)
	return append(header, body...)
}

// BuildDisconnect builds a bare DISCONNECT packet (MQTT 3.1.1 §3.14).
func BuildDisconnect() []byte {
	return []byte{PktDisconnect << 4, 0}
}

// Packet is one parsed control packet. PropsStart/PropsSize locate the raw
// property block within the original buffer (zero when the packet carried
// no properties, e.g. every MQTT 3.1.1 packet); Properties holds the
// already-decoded values from the same block.
type Packet struct {
	Type       byte
	Flags      byte
	Topic      string
	PacketID   uint16
	Payload    []byte
	PropsStart int
	PropsSize  int
	Properties []Property
}

// ParsePacket decodes exactly one fixed+variable header control packet off
// buf as MQTT 3.1.1 (no property block), returning how many bytes it
// consumed. Use ParsePacketVersion for an MQTT5 connection.
func ParsePacket(buf []byte) (Packet, int, bool) {
	return ParsePacketVersion(buf, false)
}

// ParsePacketVersion decodes one control packet, walking an MQTT5 property
// block for PUBLISH/CONNACK when v5 is true (FlagMQTT5 on the
// owning Connection); other packet types are parsed the same either way,
// since they rarely carry properties in practice here.
func ParsePacketVersion(buf []byte, v5 bool) (Packet, int, bool) {
	if len(buf) < 2 {
		return Packet{}, 0, false
	}
	pktType := buf[0] >> 4
	flags := buf[0] & 0x0F
	remLen, n, err := decodeVarint(buf[1:])
	if err != nil {
		return Packet{}, 0, false
	}
	start := 1 + n
	if len(buf) < start+remLen {
		return Packet{}, 0, false
	}
	body := buf[start : start+remLen]
	p := Packet{Type: pktType, Flags: flags}

	switch pktType {
	case PktPublish:
		if len(body) < 2 {
			return Packet{}, 0, false
		}
		topicLen := int(binary.BigEndian.Uint16(body[0:2]))
		if len(body) < 2+topicLen {
			return Packet{}, 0, false
		}
		p.Topic = string(body[2 : 2+topicLen])
		rest := body[2+topicLen:]
		qos := (flags >> 1) & 0x03
		if qos > 0 {
			if len(rest) < 2 {
				return Packet{}, 0, false
			}
			p.PacketID = binary.BigEndian.Uint16(rest[0:2])
			rest = rest[2:]
		}
		if v5 {
			props, consumed, perr := parseProperties(rest)
			if perr != nil {
				return Packet{}, 0, false
			}
			p.Properties = props
			p.PropsStart = start + (len(body) - len(rest))
			p.PropsSize = consumed
			rest = rest[consumed:]
		}
		p.Payload = append([]byte(nil), rest...)
	case PktConnAck:
		if len(body) < 2 {
			return Packet{}, 0, false
		}
		rest := body[2:]
		if v5 {
			props, consumed, perr := parseProperties(rest)
			if perr != nil {
				return Packet{}, 0, false
			}
			p.Properties = props
			p.PropsStart = start + 2
			p.PropsSize = consumed
			rest = rest[consumed:]
		}
		p.Payload = append([]byte(nil), rest...)
	default:
		p.Payload = append([]byte(nil), body...)
	}
	return p, start + remLen, true
}

// Session tracks outbound QoS 1/2 packet id assignment; ids wrap at 16 bits
// per the protocol, skipping 0.
type Session struct {
	nextID uint16
}

func (s *Session) NextPacketID() uint16 {
	s.nextID++
	if s.nextID == 0 {
		s.nextID = 1
	}
	return s.nextID
}

// Handler parses inbound control packets off c.Recv and fires EvMQTTOpen for
// CONNACK, EvMQTTCommand for PUBACK/PUBREL/PINGRESP/DISCONNECT/etc and
// EvMQTTMessage for PUBLISH, doing the
// QoS 1/2 acknowledgement handshake (PUBACK / PUBREC+PUBREL+PUBCOMP)
// automatically so the user handler only ever sees delivered messages.
type Handler struct{}

// Attach wires h as c's protocol handler for an MQTT 3.1.1 connection. Use
// AttachVersion for MQTT5, which enables property-block parsing.
func (h *Handler) Attach(c *mgr.Connection) {
	c.PFn = h.onEvent
}

// AttachVersion wires h as c's protocol handler and records whether this
// connection negotiated MQTT5 (via FlagMQTT5), the only thing onEvent needs
// to decide whether PUBLISH/CONNACK carry a property block.
func (h *Handler) AttachVersion(c *mgr.Connection, v5 bool) {
	c.SetFlagTo(mgr.FlagMQTT5, v5)
	c.PFn = h.onEvent
}

func (h *Handler) onEvent(c *mgr.Connection, ev mgr.Event, _ interface{}) {
	if ev != mgr.EvRead {
		return
	}
	for {
		pkt, n, ok := ParsePacketVersion(c.Recv.Bytes(), c.Is(mgr.FlagMQTT5))
		if !ok {
			return
		}
		c.Recv.Del(0, n)

		switch pkt.Type {
		case PktPublish:
			qos := (pkt.Flags >> 1) & 0x03
			c.Fire(mgr.EvMQTTMessage, pkt)
			switch qos {
			case QoS1:
				_, _ = c.Manager().Send(c, ackPacket(PktPubAck, pkt.PacketID))
			case QoS2:
				_, _ = c.Manager().Send(c, ackPacket(PktPubRec, pkt.PacketID))
			}
		case PktPubRel:
			if len(pkt.Payload) >= 2 {
				pkt.PacketID = binary.BigEndian.Uint16(pkt.Payload[0:2])
			}
			_, _ = c.Manager().Send(c, ackPacket(PktPubComp, pkt.PacketID))
			c.Fire(mgr.EvMQTTCommand, pkt)
		case PktConnAck:
			c.Fire(mgr.EvMQTTOpen, pkt)
		case PktDisconnect:
			c.SetFlag(mgr.FlagClosing)
			c.Fire(mgr.EvMQTTCommand, pkt)
		default:
			c.Fire(mgr.EvMQTTCommand, pkt)
		}
	}
}

func ackPacket(pktType byte, id uint16) []byte {
	idb := make([]byte, 2)
	binary.BigEndian.PutUint16(idb, id)
	return append([]byte{pktType << 4, 2}, idb...)
}
