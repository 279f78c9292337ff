package alerting

import (
	"sync"
	"time"
)

// DefaultThrottleWindow is the minimum interval between two alerts with
// the same identity key.
const DefaultThrottleWindow = 300 * time.Second

type throttleKey struct {
	accountID string
	metric    string
	severity  Severity
}

// Throttle suppresses alerts that repeat an identical (account, metric,
// severity) key too soon. State lives for the process lifetime only.
//
// Policy: a candidate is compared against the most recent previously
// emitted alert with the same key. It is suppressed when that alert's
// timestamp is within the window, and otherwise allowed and recorded as
// the new most-recent alert, so a persistent condition re-alerts once
// per window rather than going silent after the first notification.
type Throttle struct {
	window time.Duration

	mu      sync.Mutex
	latest  map[throttleKey]Alert
	history []Alert
}

// NewThrottle creates a throttle with the given window; zero or negative
// falls back to DefaultThrottleWindow.
func NewThrottle(window time.Duration) *Throttle {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &Throttle{
		window: window,
		latest: make(map[throttleKey]Alert),
	}
}

// Allow reports whether the alert survives throttling. Allowed alerts are
// appended to the history; suppressed alerts leave the state untouched.
// Safe for concurrent use.
func (t *Throttle) Allow(alert Alert) bool {
	key := throttleKey{alert.AccountID, alert.Metric, alert.Severity}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prior, ok := t.latest[key]; ok {
		if alert.Timestamp.Sub(prior.Timestamp) < t.window {
			return false
		}
	}

	t.latest[key] = alert
	t.history = append(t.history, alert)
	return true
}

// History returns a copy of every alert that survived throttling, in
// emission order.
func (t *Throttle) History() []Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Alert, len(t.history))
	copy(out, t.history)
	return out
}
