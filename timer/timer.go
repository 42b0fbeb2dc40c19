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

// Package timer implements the intrusive timer wheel every manager and every
// built-in-stack connection schedules periodic/one-shot work on.
package timer

type Flag uint8

const (
	Repeat Flag = 1 << iota
	RunNow
	called
)

type Timer struct {
	ID       uint64
	PeriodMS int64
	ExpireMS int64
	Flags    Flag
	Fn       func(arg interface{})
	Arg      interface{}
}

func (f Flag) has(bit Flag) bool { return f&bit != 0 }

// Wheel is an unordered collection of Timers polled once per reactor tick.
// Deletion mid-iteration is supported (Poll tolerates a timer removing
// itself or a sibling from its own callback).
type Wheel struct {
	timers []*Timer
	nextID uint64
}

func New() *Wheel {
	return &Wheel{}
}

// Add schedules a new timer and returns it so the caller can later Remove it.
func (w *Wheel) Add(periodMS int64, flags Flag, fn func(arg interface{}), arg interface{}) *Timer {
	w.nextID++
	t := &Timer{ID: w.nextID, PeriodMS: periodMS, Flags: flags, Fn: fn, Arg: arg}
	w.timers = append(w.timers, t)
	return t
}

func (w *Wheel) Remove(t *Timer) {
	for i, cur := range w.timers {
		if cur == t {
			w.timers = append(w.timers[:i], w.timers[i+1:]...)
			return
		}
	}
}

func (w *Wheel) Len() int { return len(w.timers) }

// NextDeadlineMS returns the nearest still-armed timer deadline and true, or
// (0, false) if no timer is armed yet. Callers use this to bound how long a
// blocking wait (e.g. a readiness poll) may sleep before a timer needs
// servicing.
func (w *Wheel) NextDeadlineMS() (int64, bool) {
	have := false
	var next int64
	for _, t := range w.timers {
		if t.ExpireMS == 0 {
			continue
		}
		if !have || t.ExpireMS < next {
			next = t.ExpireMS
			have = true
		}
	}
	return next, have
}

// expired reports whether now has crossed expire, handling both the "never
// armed yet" (expire == 0) and the clock skew / wrapped-deadline cases.
func expired(expire, period, now int64) (bool, int64) {
	if expire == 0 {
		return false, now + period
	}
	if now+period < expire {
		// now appears to have gone backwards relative to expire: rebase.
		return false, 0
	}
	return now >= expire, expire
}

// Poll fires every timer whose deadline has passed (or which carries RunNow
// and hasn't fired yet), rearming REPEAT timers at most one period's worth of
// catch-up past now.
func (w *Wheel) Poll(nowMS int64) {
	// Snapshot the slice so a callback that Adds a new timer doesn't make this
	// tick fire it too, and so Remove of an earlier timer doesn't skip a
	// later one (mirrors "iteration must tolerate deletions mid-loop").
	snapshot := make([]*Timer, len(w.timers))
	copy(snapshot, w.timers)

	for _, t := range snapshot {
		if !w.contains(t) {
			continue // removed by an earlier callback in this same tick
		}
		if t.Flags.has(called) && !t.Flags.has(Repeat) {
			continue // a one-shot timer fires at most once
		}

		runNow := t.Flags.has(RunNow) && !t.Flags.has(called)
		exp, newExpire := expired(t.ExpireMS, t.PeriodMS, nowMS)

		if newExpire != t.ExpireMS && !exp {
			t.ExpireMS = newExpire
		}

		if !runNow && !exp {
			continue
		}

		t.Flags |= called
		if t.Fn != nil {
			t.Fn(t.Arg)
		}

		if !w.contains(t) {
			continue // callback removed itself
		}

		if t.Flags.has(Repeat) {
			next := t.ExpireMS + t.PeriodMS
			if t.PeriodMS > 0 {
				for next <= nowMS {
					if nowMS-next > t.PeriodMS {
						// drifted by more than one period: cap the catch-up.
						next = nowMS + t.PeriodMS
						break
					}
					next += t.PeriodMS
				}
			}
			t.ExpireMS = next
		}
	}
}

func (w *Wheel) contains(t *Timer) bool {
	for _, cur := range w.timers {
		if cur == t {
			return true
		}
	}
	return false
}
