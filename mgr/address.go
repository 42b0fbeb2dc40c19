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

// Package mgr is the connection/event manager: a single-threaded cooperative
// reactor owning every Connection, driving the readiness loop, and
// multiplexing protocol handlers over a uniform byte-stream abstraction.
package mgr

import (
	"fmt"
	"net"
)

// Address is a 16-byte IP slot (only the first 4 bytes are meaningful for
// IPv4), a network-byte-order port, and an IPv6/scope marker.
type Address struct {
	IP       [16]byte
	PortNet  uint16 // network byte order
	IsIPv6   bool
	ScopeID  uint8
}

func (a Address) String() string {
	if a.IsIPv6 {
		ip := net.IP(a.IP[:])
		return fmt.Sprintf("[%s]:%d", ip.String(), a.port())
	}
	ip := net.IPv4(a.IP[0], a.IP[1], a.IP[2], a.IP[3])
	return fmt.Sprintf("%s:%d", ip.String(), a.port())
}

// port returns the port in host byte order for display purposes.
func (a Address) port() uint16 {
	return a.PortNet<<8 | a.PortNet>>8
}

// Port returns the port in host byte order.
func (a Address) Port() uint16 { return a.port() }

// AsIPv4 returns the first 4 bytes of the address, meaningful only when
// !IsIPv6.
func (a Address) AsIPv4() [4]byte {
	var ip [4]byte
	copy(ip[:], a.IP[:4])
	return ip
}

func AddressFromIPv4(ip [4]byte, portHost uint16) Address {
	var a Address
	copy(a.IP[:4], ip[:])
	a.PortNet = portHost<<8 | portHost>>8
	return a
}

func AddressFromNetIP(ip net.IP, portHost uint16) Address {
	var a Address
	if v4 := ip.To4(); v4 != nil {
		copy(a.IP[:4], v4)
	} else {
		a.IsIPv6 = true
		copy(a.IP[:], ip.To16())
	}
	a.PortNet = portHost<<8 | portHost>>8
	return a
}
