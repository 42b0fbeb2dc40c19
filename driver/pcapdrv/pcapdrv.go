// Package pcapdrv implements tcpip.Driver over a real or virtual NIC using
// github.com/google/gopacket/pcap, for running the built-in stack against
// actual link traffic in integration tests instead of the kernel's own
// TCP/IP stack.
package pcapdrv

import (
	"time"

	"github.com/google/gopacket/pcap"

	"github.com/sabouaram/embednet/tcpip"
)

// Driver captures and injects raw Ethernet frames on one network interface.
type Driver struct {
	ifaceName string
	snapLen   int32
	handle    *pcap.Handle
}

// New builds a driver bound to ifaceName; Init opens the live capture handle,
// Up reports carrier state.
func New(ifaceName string) *Driver {
	return &Driver{ifaceName: ifaceName, snapLen: 65536}
}

func (d *Driver) Init(i *tcpip.If) bool {
	h, err := pcap.OpenLive(d.ifaceName, d.snapLen, true, 10*time.Millisecond)
	if err != nil {
		return false
	}
	d.handle = h
	return true
}

func (d *Driver) Tx(frame []byte, i *tcpip.If) int {
	if d.handle == nil {
		return 0
	}
	if err := d.handle.WritePacketData(frame); err != nil {
		return 0
	}
	return len(frame)
}

func (d *Driver) Rx(buf []byte, i *tcpip.If) int {
	if d.handle == nil {
		return 0
	}
	data, _, err := d.handle.ReadPacketData()
	if err != nil {
		return 0
	}
	return copy(buf, data)
}

func (d *Driver) Up(i *tcpip.If) bool {
	iface, err := pcap.FindAllDevs()
	if err != nil {
		return d.handle != nil
	}
	for _, dev := range iface {
		if dev.Name == d.ifaceName {
			return len(dev.Addresses) > 0 || d.handle != nil
		}
	}
	return d.handle != nil
}

// Close releases the capture handle.
func (d *Driver) Close() {
	if d.handle != nil {
		d.handle.Close()
	}
}
