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

// Package poller picks the most capable readiness primitive available for
// hosted connections. On every unix target golang.org/x/sys/unix exposes
// poll(2), which already folds the epoll-vs-kqueue-vs-select choice into one
// portable call; on other platforms New returns a stub that tracks registered
// fds but whose Wait always returns an error without waiting.
package poller

// Readiness is the result for one registered fd.
type Readiness struct {
	FD       int
	Readable bool
	Writable bool
	Err      bool
}

// Poller multiplexes readiness across a set of file descriptors, one pass per
// call to Wait.
type Poller interface {
	// Add registers fd for readability, and for writability if wantWrite.
	Add(fd int, wantWrite bool) error
	// SetWriteInterest toggles the write-interest bit for an already
	// registered fd, mirroring the epoll-backed implementation's advice to
	// "keep the write-interest bit in sync with send.len > 0".
	SetWriteInterest(fd int, want bool) error
	Remove(fd int) error
	// Wait blocks up to timeoutMS (0 = return immediately, <0 = forever) and
	// returns the fds that became ready.
	Wait(timeoutMS int) ([]Readiness, error)
	Close() error
}
