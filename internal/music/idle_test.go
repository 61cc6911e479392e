package music

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIdleTimerFiresAfterDuration(t *testing.T) {
	var fired atomic.Int32
	timer := NewIdleTimer(20*time.Millisecond, func() { fired.Add(1) })

	timer.Arm()
	assert.True(t, timer.Armed())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.False(t, timer.Armed())
}

func TestIdleTimerDisarmCancels(t *testing.T) {
	var fired atomic.Int32
	timer := NewIdleTimer(30*time.Millisecond, func() { fired.Add(1) })

	timer.Arm()
	timer.Disarm()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestIdleTimerRearmRestartsCountdown(t *testing.T) {
	var fired atomic.Int32
	timer := NewIdleTimer(60*time.Millisecond, func() { fired.Add(1) })

	timer.Arm()
	time.Sleep(40 * time.Millisecond)
	timer.Arm()
	time.Sleep(40 * time.Millisecond)

	// the second Arm reset the clock, so nothing has fired yet
	assert.Equal(t, int32(0), fired.Load())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestIdleTimerDisarmWhenIdleIsNoop(t *testing.T) {
	timer := NewIdleTimer(10*time.Millisecond, func() {})
	timer.Disarm()
	assert.False(t, timer.Armed())
}

func TestSessionOccupancyDrivesIdleTimer(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.IdleTimeout = time.Hour
	})

	// not connected yet, occupancy changes are ignored
	f.session.OnChannelOccupancy(1, true)
	assert.False(t, f.session.idle.Armed())

	f.play(t, "track")

	f.session.OnChannelOccupancy(1, true)
	assert.True(t, f.session.idle.Armed())

	f.session.OnChannelOccupancy(2, false)
	assert.False(t, f.session.idle.Armed())
}

func TestIdleExpiryStopsSession(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.IdleTimeout = 15 * time.Millisecond
	})

	f.play(t, "track")
	f.session.OnChannelOccupancy(1, true)

	assert.Eventually(t, func() bool {
		return !f.session.Status().Connected
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.backend.disconnects)
}
