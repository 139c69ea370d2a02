// Package retry holds reconnection policy as plain data so callers and tests
// can reason about attempt budgets without running timers.
package retry

import "time"

// Policy bounds a reconnection loop: at most MaxAttempts tries, Interval
// apart. The zero value allows no attempts.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// Allows reports whether the given attempt (1-based) is within budget.
func (p Policy) Allows(attempt int) bool {
	return attempt >= 1 && attempt <= p.MaxAttempts
}

// Delay returns how long to wait before the given attempt. The first attempt
// also waits: a peer that just dropped the connection is rarely back
// immediately.
func (p Policy) Delay(attempt int) time.Duration {
	if !p.Allows(attempt) {
		return 0
	}
	return p.Interval
}

// Exhausted reports whether the budget is spent after the given number of
// failed attempts.
func (p Policy) Exhausted(failed int) bool {
	return failed >= p.MaxAttempts
}
