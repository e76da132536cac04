package request

import "time"

type Timer interface {
	Stop() bool
}

// Clock abstracts time for the accept-window watchdog.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock is the wall clock.
func RealClock() Clock { return realClock{} }
