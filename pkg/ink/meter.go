// Package ink implements the ink budget that limits how much can be drawn in
// one composition session.
//
// A [Meter] is a single pool shared by every page of a letter. Each accepted
// segment is paid for up front with [Meter.Subtract]; a refused charge is a
// normal outcome reported as false, not an error. Clearing a page pays its
// usage back with [Meter.Add].
package ink

import "math"

// DefaultMax is the ink available to a fresh composition session.
const DefaultMax = 20000

// Meter tracks remaining ink within [0, max].
//
// A Meter is owned by one event loop and is not safe for concurrent use.
type Meter struct {
	remaining float64
	max       float64
}

// New returns a full meter holding max ink. A non-positive or non-finite max
// yields an empty meter that refuses every charge.
func New(max float64) *Meter {
	if math.IsNaN(max) || math.IsInf(max, 0) || max < 0 {
		max = 0
	}
	return &Meter{remaining: max, max: max}
}

// Subtract charges amount against the meter. When the charge would take the
// meter below zero it returns false and leaves the meter unchanged.
// Negative and NaN amounts are refused.
func (m *Meter) Subtract(amount float64) bool {
	if math.IsNaN(amount) || amount < 0 {
		return false
	}
	if m.remaining-amount < 0 {
		return false
	}
	m.remaining -= amount
	return true
}

// Add returns amount to the meter, never exceeding max.
func (m *Meter) Add(amount float64) {
	if math.IsNaN(amount) || amount <= 0 {
		return
	}
	m.remaining = math.Min(m.remaining+amount, m.max)
}

// Reset refills the meter.
func (m *Meter) Reset() {
	m.remaining = m.max
}

// Remaining returns the ink left.
func (m *Meter) Remaining() float64 {
	return m.remaining
}

// Max returns the capacity.
func (m *Meter) Max() float64 {
	return m.max
}

// Level returns the remaining ink as a fraction of max, for the on-screen
// gauge.
func (m *Meter) Level() float64 {
	if m.max == 0 {
		return 0
	}
	return m.remaining / m.max
}
