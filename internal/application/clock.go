package application

import "time"

// Clock is injected so timestamps can be pinned in tests
type Clock interface {
	Now() time.Time
}

// SystemClock reports the wall clock in UTC
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always reports the same instant
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
