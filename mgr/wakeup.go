package mgr

import (
	"encoding/binary"
	"net"
	"time"
)

// wakeupPair is the cross-thread wakeup mechanism: a loopback UDP socket
// pair. Any goroutine may call Manager.Wakeup; the manager's own Poll drains
// pending datagrams and fires EV_WAKEUP on the targeted connection.
//
// Wire format: a 4-byte native-endian connection id followed by the payload.
type wakeupPair struct {
	rx *net.UDPConn
	tx *net.UDPConn
}

func newWakeupPair(m *Manager) *wakeupPair {
	rx, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		return nil
	}
	tx, err := net.DialUDP("udp", nil, rx.LocalAddr().(*net.UDPAddr))
	if err != nil {
		_ = rx.Close()
		return nil
	}
	return &wakeupPair{rx: rx, tx: tx}
}

func (w *wakeupPair) close() {
	if w == nil {
		return
	}
	if w.tx != nil {
		_ = w.tx.Close()
	}
	if w.rx != nil {
		_ = w.rx.Close()
	}
}

// Wakeup delivers a cross-thread WAKEUP event to the connection identified by
// connID on the manager's next Poll. Safe to call from any goroutine.
func (m *Manager) Wakeup(connID uint64, payload []byte) error {
	if m.wake == nil || m.wake.tx == nil {
		return nil
	}
	buf := make([]byte, 4+len(payload))
	binary.NativeEndian.PutUint32(buf, uint32(connID))
	copy(buf[4:], payload)
	_, err := m.wake.tx.Write(buf)
	return err
}

// drainWakeups is called once per Poll and delivers any pending wakeups
// without blocking.
func (m *Manager) drainWakeups() {
	if m.wake == nil || m.wake.rx == nil {
		return
	}
	buf := make([]byte, 2048)
	for {
		_ = m.wake.rx.SetReadDeadline(time.Now())
		n, err := m.wake.rx.Read(buf)
		if err != nil || n < 4 {
			return
		}
		id := uint64(binary.NativeEndian.Uint32(buf[:4]))
		payload := append([]byte(nil), buf[4:n]...)
		for c := m.head; c != nil; c = c.next {
			if c.ID == id {
				c.fire(EvWakeup, payload)
				break
			}
		}
	}
}
