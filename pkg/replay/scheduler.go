package replay

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from running. It reports whether the call was
	// still pending.
	Stop() bool
}

// Scheduler runs functions after a delay. Implementations decide which
// goroutine the function runs on; the player only requires that scheduled
// calls do not run before AfterFunc returns.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realTime struct{}

// RealTime schedules on the wall clock via [time.AfterFunc].
var RealTime Scheduler = realTime{}

func (realTime) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Manual is a Scheduler driven by hand. Nothing runs until [Manual.Advance]
// or [Manual.Next] is called, which makes timed playback deterministic in
// tests and in frame-stepped front ends.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	m   *Manual
	at  time.Duration
	seq int
	f   func()
}

// NewManual returns a manual scheduler at time zero.
func NewManual() *Manual {
	return &Manual{}
}

// AfterFunc queues f to run once the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Stop removes the timer from the queue.
func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	for i, p := range t.m.pending {
		if p == t {
			t.m.pending = append(t.m.pending[:i], t.m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Now returns the elapsed manual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of queued calls.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Advance moves the clock forward by d, running every call that falls due
// in order. Calls scheduled by those calls run too if they fall inside the
// window. It returns the number of calls run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	n := 0
	for m.fire(target) {
		n++
	}

	m.mu.Lock()
	if m.now < target {
		m.now = target
	}
	m.mu.Unlock()
	return n
}

// Next jumps to the earliest queued call and runs it. It reports false when
// nothing is queued.
func (m *Manual) Next() bool {
	return m.fire(-1)
}

// fire runs the earliest call due at or before target; a negative target
// means any call.
func (m *Manual) fire(target time.Duration) bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if a.at != b.at {
			return a.at < b.at
		}
		return a.seq < b.seq
	})
	t := m.pending[0]
	if target >= 0 && t.at > target {
		m.mu.Unlock()
		return false
	}
	m.pending = m.pending[1:]
	if t.at > m.now {
		m.now = t.at
	}
	m.mu.Unlock()

	t.f()
	return true
}
