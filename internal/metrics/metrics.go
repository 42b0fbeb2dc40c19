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

// Package metrics exposes the manager's and the built-in stack's counters as
// prometheus gauges/counters, registered lazily so packages that never call
// Register() never pull a collector into the default registry (useful for the
// unit tests, which construct many short-lived Managers).
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Collector struct {
	Connections   prometheus.Gauge
	BytesSent     prometheus.Counter
	BytesRecv     prometheus.Counter
	Retransmits   prometheus.Counter
	DHCPLeases    prometheus.Counter
	DNSTimeouts   prometheus.Counter
	ErrorsFired   prometheus.Counter
}

// New builds a Collector with a given label prefix (e.g. the manager's name) but
// does not register it; call Register to attach it to a *prometheus.Registry.
func New(subsystem string) *Collector {
	cst := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "embednet",
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	return &Collector{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "embednet",
			Subsystem: subsystem,
			Name:      "connections",
			Help:      "Number of connections currently owned by the manager.",
		}),
		BytesSent:   cst("bytes_sent_total", "Bytes handed to the transport for sending."),
		BytesRecv:   cst("bytes_received_total", "Bytes accepted into connection recv buffers."),
		Retransmits: cst("tcp_retransmits_total", "Built-in stack TCP retransmissions."),
		DHCPLeases:  cst("dhcp_leases_total", "DHCP leases acquired by the built-in client."),
		DNSTimeouts: cst("dns_timeouts_total", "DNS requests that timed out before a response."),
		ErrorsFired: cst("errors_total", "EV_ERROR events fired across all connections."),
	}
}

func (c *Collector) Register(reg *prometheus.Registry) error {
	for _, m := range []prometheus.Collector{
		c.Connections, c.BytesSent, c.BytesRecv, c.Retransmits, c.DHCPLeases, c.DNSTimeouts, c.ErrorsFired,
	} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}
