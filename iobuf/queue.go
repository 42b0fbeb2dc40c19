package iobuf

import (
	"encoding/binary"
	"sync/atomic"
)

// Queue is a single-producer/single-consumer framed ring buffer: each message
// is preceded by a 4-byte native-order length prefix. A length of 0 is a wrap
// marker, not user data — the producer writes one when the next message
// wouldn't fit contiguously ahead of head, and the consumer, on seeing it,
// resets its read position to the start of the ring.
//
// head/tail are only ever advanced by their respective sides; the atomic
// stores/loads around the length word give the release/acquire pairing a
// frame's payload write needs before its length becomes visible to the
// consumer.
type Queue struct {
	ring []byte
	head uint32 // next write position, producer-owned
	tail uint32 // next read position, consumer-owned
}

const lenPrefix = 4

func NewQueue(size int) *Queue {
	return &Queue{ring: make([]byte, size)}
}

func (q *Queue) cap() uint32 { return uint32(len(q.ring)) }

// Book reserves contiguous space for a length-len message and returns the
// payload slice to fill in; Commit must follow once it's populated. Returns
// nil if the message cannot fit even after wrapping.
func (q *Queue) Book(n int) []byte {
	need := uint32(lenPrefix + n)
	head := q.head
	tail := atomic.LoadUint32(&q.tail)

	var free uint32
	if head >= tail {
		free = q.cap() - head
		if free >= need {
			return q.ring[head+lenPrefix : head+need]
		}
		// Doesn't fit ahead: try wrapping to the start, if the consumer has
		// left room there.
		if tail >= need {
			if head+lenPrefix <= q.cap() {
				binary.NativeEndian.PutUint32(q.ring[head:], 0) // wrap marker
			}
			q.head = 0
			return q.ring[lenPrefix:need]
		}
		return nil
	}

	free = tail - head
	if free >= need {
		return q.ring[head+lenPrefix : head+need]
	}
	return nil
}

// Commit publishes the len bytes booked by the immediately preceding Book
// call, writing the length prefix last so an acquiring reader never observes
// payload bytes before the length that describes them.
func (q *Queue) Commit(n int) {
	need := uint32(lenPrefix + n)
	head := q.head
	binary.NativeEndian.PutUint32(q.ring[head:], uint32(n))
	atomic.StoreUint32(&q.head, head+need)
}

// Peek returns the next pending message without consuming it, or (nil, false)
// if the ring is empty.
func (q *Queue) Peek() ([]byte, bool) {
	head := atomic.LoadUint32(&q.head)
	tail := q.tail

	if tail == head {
		return nil, false
	}

	n := binary.NativeEndian.Uint32(q.ring[tail:])
	if n == 0 {
		// wrap marker: the real message starts at offset 0.
		q.tail = 0
		return q.Peek()
	}
	return q.ring[tail+lenPrefix : tail+lenPrefix+n], true
}

// Pop discards the n bytes returned by the most recent Peek.
func (q *Queue) Pop(n int) {
	q.tail += uint32(lenPrefix + n)
}
