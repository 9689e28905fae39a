// Package deadline tracks a run's wall-clock budget. It never interrupts
// work; callers poll Expired between units of work.
package deadline

import "time"

// Clock returns the current time
type Clock func() time.Time

// Supervisor answers whether the run's budget has elapsed. A zero limit
// means no deadline.
type Supervisor struct {
	start time.Time
	limit time.Duration
	now   Clock
}

// New starts a supervisor on the wall clock
func New(limit time.Duration) *Supervisor {
	return NewWithClock(limit, time.Now)
}

// NewWithClock starts a supervisor on the given clock
func NewWithClock(limit time.Duration, now Clock) *Supervisor {
	if limit < 0 {
		limit = 0
	}
	return &Supervisor{start: now(), limit: limit, now: now}
}

// StartedAt returns a wall-clock supervisor whose budget began at start,
// e.g. at process start rather than when the run was set up
func StartedAt(limit time.Duration, start time.Time) *Supervisor {
	s := New(limit)
	s.start = start
	return s
}

// Enabled reports whether a deadline is configured
func (s *Supervisor) Enabled() bool { return s.limit > 0 }

// Limit returns the configured budget
func (s *Supervisor) Limit() time.Duration { return s.limit }

// Elapsed returns the time since the supervisor started
func (s *Supervisor) Elapsed() time.Duration { return s.now().Sub(s.start) }

// Expired reports whether the deadline has passed. Always false without a deadline.
func (s *Supervisor) Expired() bool {
	return s.Enabled() && s.Elapsed() >= s.limit
}

// Remaining returns the budget left, and false when there is no deadline
func (s *Supervisor) Remaining() (time.Duration, bool) {
	if !s.Enabled() {
		return 0, false
	}
	left := s.limit - s.Elapsed()
	if left < 0 {
		left = 0
	}
	return left, true
}
