package gourdiansink

import "time"

// Clock supplies the current time to the sink. The rotation policy compares
// bucket strings derived from Clock.Now, so injecting a fake clock lets tests
// cross time boundaries without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
