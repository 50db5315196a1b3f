package heartbeat

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMonitor_FiresTimeoutOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired int32
	m := NewMonitor(func() { atomic.AddInt32(&fired, 1) })

	m.mu.Lock()
	m.lastSeen = time.Now().Add(-HeartbeatTimeout - time.Second)
	m.lastTick = time.Now().Add(-time.Second)
	m.mu.Unlock()

	m.check()
	m.check()

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("expected timeout to fire exactly once, fired %d times", got)
	}
}

func TestMonitor_Observe_ResetsDeadline(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired int32
	m := NewMonitor(func() { atomic.AddInt32(&fired, 1) })

	m.mu.Lock()
	m.lastSeen = time.Now().Add(-HeartbeatTimeout - time.Second)
	m.lastTick = time.Now().Add(-time.Second)
	m.mu.Unlock()

	m.Observe()
	m.check()

	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("expected no timeout after Observe reset the deadline, fired %d times", got)
	}
}

func TestMonitor_SleepGap_DoesNotFireTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	var fired int32
	m := NewMonitor(func() { atomic.AddInt32(&fired, 1) })

	m.mu.Lock()
	// Simulate a long suspend: lastTick far in the past, lastSeen even
	// further, as if no ticks occurred while the host slept.
	m.lastTick = time.Now().Add(-SleepResetThreshold - time.Minute)
	m.lastSeen = time.Now().Add(-HeartbeatTimeout - time.Minute)
	m.mu.Unlock()

	m.check()

	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("expected a large tick gap to be treated as sleep, not timeout, fired %d times", got)
	}
}

func TestMonitor_StopEndsRunLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewMonitor(func() {})
	done := make(chan struct{})
	go func() {
		m.Run(10 * time.Millisecond)
		close(done)
	}()

	m.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
