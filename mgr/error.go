package mgr

import "fmt"

// Error logs, marks c closing, and fires EV_ERROR with the formatted message.
// Every fatal per-connection error routes through here; peer close is never
// routed through Error (see tcpip/poll read paths) because EV_ERROR means
// abnormal termination, not "the other side hung up".
func (m *Manager) Error(c *Connection, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	m.Log.Entry().WithField("conn", c.ID).Error(msg)
	c.SetFlag(FlagClosing)
	if m.Metrics != nil {
		m.Metrics.ErrorsFired.Inc()
	}
	c.fire(EvError, msg)
}
