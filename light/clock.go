package light

import (
	"time"

	tmtime "github.com/tendermint/lightcore/libs/time"
)

// Clock supplies the current time for freshness checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the OS clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return tmtime.Now() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
