/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package errors

// Minimum code reserved for each package's own error range. A package adds its
// ordinal position within its errors to this base to get a stable, non-colliding
// CodeError, the same convention the logging/httpserver packages this library was
// grown from use for their own ranges.
const (
	MinPkgIoBuf   = 100
	MinPkgTimer   = 150
	MinPkgMgr     = 200
	MinPkgPoller  = 250
	MinPkgTcpIP   = 300
	MinPkgDriver  = 400
	MinPkgVFS     = 450
	MinPkgTLS     = 500
	MinPkgHTTP    = 600
	MinPkgWS      = 650
	MinPkgMQTT    = 700
	MinPkgDNS     = 750
	MinPkgConfig  = 800
	MinPkgURL     = 850
)
