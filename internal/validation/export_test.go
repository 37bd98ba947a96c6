package validation

import "time"

// SetNow pins the clock for tests and returns a restore func.
func SetNow(t time.Time) func() {
	prev := now
	now = func() time.Time { return t }
	return func() { now = prev }
}
