package main

import (
	"time"

	"go.uber.org/zap/zapcore"
)

var (
	_ Clocker       = (*Clock)(nil) // ensure Clock implements Clocker.
	_ zapcore.Clock = (*Clock)(nil) // ensure Clock can timestamp logs.
)

// Clocker is an interface for getting current real time.
type Clocker interface {
	Now() time.Time
}

// Clock implements the Clocker interface. It also serves as the
// logger clock so that logs and status uptime share one timezone.
type Clock struct {
	tz *time.Location
}

// NewClock returns a ready to use Clock with timezone sets
// to UTC in production environment and Local in dev env.
func NewClock(isProd bool) *Clock {
	if isProd {
		return &Clock{time.UTC}
	}
	return &Clock{time.Local}
}

// Now provides current clock time.
func (ck *Clock) Now() time.Time {
	return time.Now().In(ck.tz)
}

// NewTicker implements zapcore.Clock.
func (ck *Clock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
