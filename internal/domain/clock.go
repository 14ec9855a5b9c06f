package domain

import "time"

// Clock abstracts wall-clock time so that time-of-day pricing is testable
// with a fixed hour instead of the real clock.
type Clock interface {
	Now() time.Time
}

// JitterSource abstracts the random component of fraud scoring so tests
// can pin it to a fixed value. Jitter returns a value in [0, 0.2).
type JitterSource interface {
	Jitter() float64
}
