package music

import (
	"sync"
	"time"
)

// IdleTimer is the leave-when-alone countdown. Arm starts (or restarts) the
// countdown, Disarm cancels it; the callback fires once per armed period,
// after the full duration has elapsed without a Disarm.
type IdleTimer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
	onExpire func()
}

func NewIdleTimer(d time.Duration, onExpire func()) *IdleTimer {
	return &IdleTimer{duration: d, onExpire: onExpire}
}

// Arm starts the countdown. Arming an already armed timer restarts it from
// the full duration.
func (t *IdleTimer) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.duration, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		t.onExpire()
	})
}

// Disarm cancels a pending countdown. Disarming an idle timer is a no-op.
func (t *IdleTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Armed reports whether a countdown is currently pending.
func (t *IdleTimer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
