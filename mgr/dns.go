package mgr

import (
	"net"
	"strings"
	"time"

	liberr "github.com/sabouaram/embednet/errors"
)

// dnsReq tracks one outstanding resolution: at most one per connection.
// cancelDNS walks the slice and drops matching entries when a connection
// closes before its resolution completes.
type dnsReq struct {
	conn     *Connection
	host     string
	txnID    uint16
	tried6   bool
	expireMS int64
}

// DNSCodec is implemented by proto/dns and installed with WithDNSCodec; mgr
// owns only the request/timeout bookkeeping of the resolve state machine,
// never the wire format itself.
type DNSCodec interface {
	EncodeQuery(txnID uint16, host string, qtypeAAAA bool) []byte
	ParseResponse(buf []byte) (txnID uint16, ip net.IP, rcode int, ok bool)
}

func WithDNSCodec(d DNSCodec) Option { return func(m *Manager) { m.dnsCodec = d } }

func (m *Manager) nextDNSTxnID() uint16 {
	m.dnsTxnSeq++
	return m.dnsTxnSeq
}

// resolverSocket lazily dials the given DNS server and keeps a single shared
// UDP connection for all outstanding queries, mirroring the one "DNS
// connection" the original keeps per manager.
func (m *Manager) resolverSocket(server string) (*Connection, liberr.Error) {
	if m.resolverConn != nil && m.resolverAddr == server {
		return m.resolverConn, nil
	}
	raddr, err := net.ResolveUDPAddr("udp", strings.TrimPrefix(server, "udp://"))
	if err != nil {
		return nil, liberr.New(liberr.MinPkgMgr, "bad dns server %q", server).WithParent(err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, liberr.New(liberr.MinPkgMgr, "dns dial").WithParent(err)
	}
	c := m.allocConn()
	c.Net = conn
	c.SetFlag(FlagUDP)
	c.SetFlag(FlagClient)
	c.PFn = m.dnsReplyHandler
	m.resolverConn = c
	m.resolverAddr = server
	return c, nil
}

// Resolve issues an A (or AAAA when forceV6) query for host on target's
// behalf. target gains FlagResolving until the reply arrives, a retry
// fires, or the request times out.
func (m *Manager) Resolve(target *Connection, host string, forceV6 bool) liberr.Error {
	if m.dnsCodec == nil {
		return liberr.New(liberr.MinPkgMgr, "no dns codec installed")
	}
	m.cancelDNS(target)
	server := m.DNS4
	if forceV6 {
		server = m.DNS6
	}
	rc, lerr := m.resolverSocket(server)
	if lerr != nil {
		return lerr
	}
	txn := m.nextDNSTxnID()
	query := m.dnsCodec.EncodeQuery(txn, host, forceV6)
	if _, err := rc.Net.Write(query); err != nil {
		return liberr.New(liberr.MinPkgMgr, "dns send").WithParent(err)
	}
	target.SetFlag(FlagResolving)
	m.dnsReqs = append(m.dnsReqs, &dnsReq{
		conn:     target,
		host:     host,
		txnID:    txn,
		tried6:   forceV6,
		expireMS: time.Now().UnixMilli() + m.DNSTimeoutMS,
	})
	return nil
}

// cancelDNS drops any outstanding request belonging to target.
func (m *Manager) cancelDNS(target *Connection) {
	out := m.dnsReqs[:0]
	for _, r := range m.dnsReqs {
		if r.conn != target {
			out = append(out, r)
		}
	}
	m.dnsReqs = out
}

// expireDNS is called once per Poll tick and fails any request past its
// deadline with a timeout error.
func (m *Manager) expireDNS(nowMS int64) {
	if len(m.dnsReqs) == 0 {
		return
	}
	out := m.dnsReqs[:0]
	for _, r := range m.dnsReqs {
		if nowMS < r.expireMS {
			out = append(out, r)
			continue
		}
		target := r.conn
		target.ClearFlag(FlagResolving)
		m.Error(target, "%s DNS lookup failed", remoteLabel(target))
	}
	m.dnsReqs = out
}

func remoteLabel(c *Connection) string {
	if c == nil {
		return "?"
	}
	return c.Rem.String()
}

// dnsReplyHandler is the resolver connection's protocol handler: it matches
// replies to outstanding requests by transaction id and resolves or retries.
func (m *Manager) dnsReplyHandler(rc *Connection, ev Event, _ interface{}) {
	if ev != EvRead {
		return
	}
	buf := append([]byte(nil), rc.Recv.Bytes()...)
	rc.Recv.Zero()

	txn, ip, rcode, ok := m.dnsCodec.ParseResponse(buf)
	var match *dnsReq
	idx := -1
	for i, r := range m.dnsReqs {
		if r.txnID == txn {
			match = r
			idx = i
			break
		}
	}
	if match == nil {
		return
	}
	m.dnsReqs = append(m.dnsReqs[:idx], m.dnsReqs[idx+1:]...)
	target := match.conn

	if !ok || rcode != 0 {
		if !match.tried6 && m.UseDNS6 {
			if lerr := m.Resolve(target, match.host, true); lerr == nil {
				return
			}
		}
		target.ClearFlag(FlagResolving)
		m.Error(target, "%s DNS lookup failed", remoteLabel(target))
		return
	}

	port := target.Rem.port()
	target.Rem = AddressFromNetIP(ip, port)
	target.ClearFlag(FlagResolving)
	target.fire(EvResolve, ip)
	if target.Is(FlagClient) && target.Net == nil {
		m.dial(target)
	}
}
