package utils

import "time"

// Now returns the current time in UTC at millisecond precision, the
// resolution every store round-trips exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
