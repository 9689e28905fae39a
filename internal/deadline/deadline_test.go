package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestSupervisor_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewWithClock(10*time.Second, clock.now)

	assert.True(t, s.Enabled())
	assert.False(t, s.Expired())

	clock.advance(9 * time.Second)
	assert.False(t, s.Expired())
	left, ok := s.Remaining()
	assert.True(t, ok)
	assert.Equal(t, time.Second, left)

	clock.advance(time.Second)
	assert.True(t, s.Expired())

	clock.advance(time.Minute)
	left, _ = s.Remaining()
	assert.Zero(t, left)
	assert.Equal(t, 70*time.Second, s.Elapsed())
}

func TestSupervisor_NoDeadline(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	for _, limit := range []time.Duration{0, -time.Second} {
		s := NewWithClock(limit, clock.now)
		clock.advance(24 * time.Hour)

		assert.False(t, s.Enabled())
		assert.False(t, s.Expired())
		_, ok := s.Remaining()
		assert.False(t, ok)
	}
}

func TestNew_UsesWallClock(t *testing.T) {
	s := New(time.Hour)
	assert.False(t, s.Expired())
	assert.GreaterOrEqual(t, s.Elapsed(), time.Duration(0))
}

func TestStartedAt_CountsFromStart(t *testing.T) {
	s := StartedAt(time.Minute, time.Now().Add(-2*time.Minute))
	assert.True(t, s.Expired())

	s = StartedAt(time.Minute, time.Now())
	assert.False(t, s.Expired())
	left, ok := s.Remaining()
	assert.True(t, ok)
	assert.LessOrEqual(t, left, time.Minute)
}
