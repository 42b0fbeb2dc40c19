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

// Package urlutil holds the small pure-function helpers every layer of the core
// consumes: a borrowed-bytes string view, URL grammar parsing, network byte
// order conversion, and a base64 wrapper.
package urlutil

// Str is a borrowed view into a connection's recv buffer: a pointer plus a
// length, never a copy. HTTP/WS/MQTT message fields use it so parsing stays
// zero-alloc.
type Str struct {
	buf []byte
}

func S(b []byte) Str { return Str{buf: b} }

func (s Str) Bytes() []byte { return s.buf }
func (s Str) String() string {
	if len(s.buf) == 0 {
		return ""
	}
	return string(s.buf)
}
func (s Str) Len() int        { return len(s.buf) }
func (s Str) Empty() bool     { return len(s.buf) == 0 }
func (s Str) Equal(o string) bool {
	return s.String() == o
}
