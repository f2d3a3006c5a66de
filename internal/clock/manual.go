package clock

import (
	"context"
	"time"
)

// Manual is a Clock whose time only moves when told to.
// It is not safe for concurrent use.
type Manual struct {
	now       time.Time
	ResyncErr error
	Resyncs   int
}

// NewManual creates a Manual clock set to start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.
func (m *Manual) Now() time.Time {
	return m.now
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.now = t
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.now = m.now.Add(d)
}

// Resync implements Clock by counting calls and returning ResyncErr.
func (m *Manual) Resync(context.Context) error {
	m.Resyncs++
	return m.ResyncErr
}
