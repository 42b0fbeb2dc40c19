/*
 * MIT License
 *
 * Copyright (c) 2021 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package mgr

import (
	"net"

	"github.com/bits-and-blooms/bitset"

	"github.com/sabouaram/embednet/iobuf"
)

// Flag indexes Connection's flag bitset. A bits-and-blooms/bitset backs it
// instead of a plain uint32 so the set can
// grow past 32 bits as protocol handlers add their own private flags (the
// built-in stack's ConnState does this) without a breaking layout change.
type Flag uint

const (
	FlagListening Flag = iota
	FlagClient
	FlagAccepted
	FlagUDP
	FlagConnecting
	FlagResolving
	FlagClosing
	FlagDraining
	FlagTLS
	FlagTLSHandshake
	FlagWebsocket
	FlagMQTT5
	FlagResp
	FlagARPLooking
	FlagReadable
	FlagWritable
	FlagHexdumping
	FlagFull
	flagCount
)

// Connection is the central entity: identity, buffers, flags, the
// protocol/user callback pair, and a small protocol scratch area.
type Connection struct {
	ID  uint64
	FD  int // raw socket fd, or an index into the built-in stack's table
	Net net.Conn // non-nil on the hosted path; nil on the built-in-stack path

	Listener   net.Listener   // non-nil only for a FlagListening TCP connection
	PacketConn net.PacketConn // non-nil only for a FlagListening UDP connection

	Loc Address
	Rem Address

	Send iobuf.IoBuf
	Recv iobuf.IoBuf
	RTLS iobuf.IoBuf // raw TLS ciphertext staging

	flags *bitset.BitSet

	// PFn/PFnData is the protocol handler (HTTP/WS/MQTT/DNS); it always runs
	// before Fn/FnData, the user handler, for a given event.
	PFn     Handler
	PFnData interface{}
	Fn      Handler
	FnData  interface{}

	// Data is protocol scratch space, e.g. HTTP static serving stores the
	// remaining content length here.
	Data [36]byte

	next *Connection // intrusive list link, owned by Manager
	mgr  *Manager

	tls     tlsHooks
	extra   []byte // built-in-stack ConnState, sized by Manager.ExtraConnSize

	// pollFD is the descriptor actually registered with the readiness poller.
	// It mirrors FD for every path except WrapFD, where the caller-supplied fd
	// is consumed by net.FileConn's internal dup and is no longer the live
	// descriptor; -1 means "not registered".
	pollFD int

	// udpPeers/udpParent demux a single shared UDP listening socket into one
	// Connection per remote peer, mirroring the built-in stack's UDP "pseudo
	// connection" model used by the DHCP and DNS server paths.
	udpPeers  map[string]*Connection
	udpParent *Connection
}

// tlsHooks lets the tlsopts package attach per-connection state without mgr
// importing it (mgr stays free of a crypto/tls dependency chain); see
// mgr.Connection.SetTLS / TLS.
type tlsHooks struct {
	impl interface{}
}

func newConnection(id uint64, m *Manager) *Connection {
	c := &Connection{
		ID:     id,
		FD:     -1,
		pollFD: -1,
		flags:  bitset.New(uint(flagCount)),
		mgr:    m,
	}
	c.Send = *iobuf.New(64)
	c.Recv = *iobuf.New(64)
	c.RTLS = *iobuf.New(64)
	if m.ExtraConnSize > 0 {
		c.extra = make([]byte, m.ExtraConnSize)
	}
	return c
}

func (c *Connection) Is(f Flag) bool    { return c.flags.Test(uint(f)) }
func (c *Connection) SetFlag(f Flag)    { c.flags.Set(uint(f)) }
func (c *Connection) ClearFlag(f Flag)  { c.flags.Clear(uint(f)) }
func (c *Connection) SetFlagTo(f Flag, v bool) {
	if v {
		c.SetFlag(f)
	} else {
		c.ClearFlag(f)
	}
}

// Extra returns the built-in stack's per-connection scratch (ConnState),
// sized by Manager.ExtraConnSize at connection creation time.
func (c *Connection) Extra() []byte { return c.extra }

// SetTLS / TLS attach an opaque TLS implementation (see tlsopts.Conn) without
// mgr needing to know its concrete type.
func (c *Connection) SetTLS(impl interface{}) { c.tls.impl = impl }
func (c *Connection) TLS() interface{}         { return c.tls.impl }

// Manager returns the owning Manager.
func (c *Connection) Manager() *Manager { return c.mgr }

func (c *Connection) fire(ev Event, data interface{}) {
	if c.PFn != nil {
		c.PFn(c, ev, data)
	}
	if c.Fn != nil {
		c.Fn(c, ev, data)
	}
}

// Fire dispatches ev to the protocol handler then the user handler, in that
// order. Exported so drivers outside this package (the built-in TCP/IP
// engine's per-connection state machine) can raise events on connections they
// manage directly, the way Poll does for hosted connections.
func (c *Connection) Fire(ev Event, data interface{}) { c.fire(ev, data) }
