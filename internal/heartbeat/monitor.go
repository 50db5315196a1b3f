// Package heartbeat implements the controller->Service liveness protocol
// (spec §4.D): the control plane periodically sends a Heartbeat to the
// privileged Service; if the Service stops receiving them for
// HeartbeatTimeout, it concludes the control plane has crashed or been
// killed and stops the Core it was asked to supervise on the control
// plane's behalf — but never uninstalls or otherwise touches itself.
//
// A REDESIGN FLAG resolved during expansion: on timeout the Service stops
// only the Core, never itself; a missed heartbeat is evidence the GUI
// process died, not evidence the Service should exit, since the whole
// point of a privileged Service outliving the GUI is to be available
// again the next time the GUI starts.
package heartbeat

import (
	"sync"
	"time"
)

// HeartbeatTimeout is how long the Service waits without a Heartbeat
// before concluding the control plane is gone and stopping the Core.
const HeartbeatTimeout = 70 * time.Second

// SleepResetThreshold is the gap between two successive tick
// observations that indicates the host was suspended rather than the
// control plane having hung: a real hang produces ticks at the monitor's
// own interval; a sleep/resume produces one enormous gap. When the
// observed gap exceeds this threshold the monitor resets its deadline
// instead of firing a timeout for a heartbeat the suspended control
// plane had no chance to send.
const SleepResetThreshold = 60 * time.Second

// Monitor tracks the most recent Heartbeat receipt and exposes whether
// the controller is still considered alive.
type Monitor struct {
	mu           sync.Mutex
	lastSeen     time.Time
	lastTick     time.Time
	onTimeout    func()
	timeoutFired bool

	stop chan struct{}
}

// NewMonitor constructs a Monitor that calls onTimeout at most once, the
// first time HeartbeatTimeout elapses without an observed Heartbeat (and
// the gap isn't attributable to host sleep).
func NewMonitor(onTimeout func()) *Monitor {
	now := time.Now()
	return &Monitor{
		lastSeen:  now,
		lastTick:  now,
		onTimeout: onTimeout,
		stop:      make(chan struct{}),
	}
}

// Observe records a received Heartbeat, resetting the timeout deadline.
func (m *Monitor) Observe() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen = time.Now()
	m.timeoutFired = false
}

// Run ticks every checkInterval until Stop is called, firing onTimeout at
// most once.
func (m *Monitor) Run(checkInterval time.Duration) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) check() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	gap := now.Sub(m.lastTick)
	m.lastTick = now

	if gap > SleepResetThreshold {
		// Host was almost certainly suspended between ticks; treat this
		// as a fresh start rather than counting the suspended interval
		// against the controller.
		m.lastSeen = now
		m.timeoutFired = false
		return
	}

	if m.timeoutFired {
		return
	}
	if now.Sub(m.lastSeen) >= HeartbeatTimeout {
		m.timeoutFired = true
		if m.onTimeout != nil {
			m.onTimeout()
		}
	}
}

// Stop ends the Run loop.
func (m *Monitor) Stop() {
	close(m.stop)
}
