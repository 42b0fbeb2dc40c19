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

// Package iobuf provides the growable, alignment-aware byte buffer every
// connection's send/recv/rtls staging area is built from, and the framed SPSC
// queue a driver hands raw frames to the poller through.
package iobuf

// IoBuf is a growable byte buffer with an alignment invariant: Len() is always
// <= cap(buf), and the backing array's capacity is always a multiple of Align.
// Resizing to 0 zeroes the freed memory before letting it go, standing in for
// the original's "wipe key material before free" discipline even though Go's
// GC (not an explicit free) reclaims the array.
type IoBuf struct {
	buf   []byte
	align int
}

// New returns an IoBuf with the given alignment (must be a power of two, or 1
// to disable alignment).
func New(align int) *IoBuf {
	if align <= 0 {
		align = 1
	}
	return &IoBuf{align: align}
}

func (b *IoBuf) Len() int  { return len(b.buf) }
func (b *IoBuf) Cap() int  { return cap(b.buf) }
func (b *IoBuf) Bytes() []byte { return b.buf }
func (b *IoBuf) Align() int { return b.align }

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if n%align == 0 {
		return n
	}
	return (n/align + 1) * align
}

// Resize grows or shrinks the backing array to hold newSize bytes, preserving
// min(len, newSize) bytes of content. Shrinking to 0 zeroes the old contents.
func (b *IoBuf) Resize(newSize int) {
	if newSize < 0 {
		newSize = 0
	}
	target := roundUp(newSize, b.align)

	if target <= cap(b.buf) {
		if newSize < len(b.buf) {
			// zero the bytes being dropped, mirroring the C implementation's
			// wipe-before-shrink behavior.
			for i := newSize; i < len(b.buf); i++ {
				b.buf[i] = 0
			}
		}
		b.buf = b.buf[:newSize]
		return
	}

	fresh := make([]byte, newSize, target)
	n := len(b.buf)
	if n > newSize {
		n = newSize
	}
	copy(fresh, b.buf[:n])

	for i := range b.buf {
		b.buf[i] = 0
	}
	b.buf = fresh
}

// Add inserts n bytes at offset, making room by shifting the tail right if
// offset < Len(). offset may equal Len() to append.
func (b *IoBuf) Add(offset int, data []byte) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.buf) {
		offset = len(b.buf)
	}
	n := len(data)
	old := len(b.buf)
	b.Resize(old + n)
	copy(b.buf[offset+n:], b.buf[offset:old])
	copy(b.buf[offset:offset+n], data)
}

// Del removes n bytes at offset, shifting the tail left and zeroing the
// now-unused trailing bytes.
func (b *IoBuf) Del(offset, n int) {
	if offset < 0 || n <= 0 || offset >= len(b.buf) {
		return
	}
	if offset+n > len(b.buf) {
		n = len(b.buf) - offset
	}
	copy(b.buf[offset:], b.buf[offset+n:])
	b.Resize(len(b.buf) - n)
}

// Zero truncates to zero length, wiping prior contents.
func (b *IoBuf) Zero() {
	b.Resize(0)
}
