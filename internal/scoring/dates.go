package scoring

import "time"

// Stored dates arrive as date-only values from some call sites and as
// full timestamps from others. Everything is coerced to a calendar day
// here, once, before any day arithmetic or payment-map keying; no other
// file in this package inspects time-of-day.

// dayOf truncates a timestamp to its calendar date in UTC.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns the whole days from a to b (negative if b is
// before a). Both arguments must already be calendar days.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
