// Package loop implements a pure-Go tcpip.Driver for unit tests: frames
// handed to Tx on one end land in Rx on the other, with no real NIC
// involved. It is grounded on nothing external — it is boundary glue whose
// only job is to exist so tcpip.If can be driven without a kernel network
// stack in a test binary.
package loop

import (
	"sync"

	"github.com/sabouaram/embednet/tcpip"
)

// Driver is one end of a loopback link.
type Driver struct {
	mu    sync.Mutex
	inbox [][]byte
	peer  *Driver
	up    bool
}

// NewPair builds two cross-wired drivers: frames Tx'd on a arrive via Rx on
// b, and vice versa.
func NewPair() (a, b *Driver) {
	a = &Driver{up: true}
	b = &Driver{up: true}
	a.peer = b
	b.peer = a
	return a, b
}

func (d *Driver) Init(i *tcpip.If) bool { return true }

func (d *Driver) Tx(frame []byte, i *tcpip.If) int {
	cp := append([]byte(nil), frame...)
	d.peer.mu.Lock()
	d.peer.inbox = append(d.peer.inbox, cp)
	d.peer.mu.Unlock()
	return len(frame)
}

func (d *Driver) Rx(buf []byte, i *tcpip.If) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.inbox) == 0 {
		return 0
	}
	frame := d.inbox[0]
	d.inbox = d.inbox[1:]
	return copy(buf, frame)
}

func (d *Driver) Up(i *tcpip.If) bool { return d.up }

// SetUp flips the simulated link state, for exercising the built-in stack's
// 1 Hz link-up polling and DHCP reinit-on-link-up behavior in tests.
func (d *Driver) SetUp(up bool) { d.up = up }
