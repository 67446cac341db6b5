package utils

import "time"

// Clock is the only source of "now". It is passed in, never read from a
// package variable, so tests can pin it.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c).UTC()
}
