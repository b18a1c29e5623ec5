// Package clock abstracts wall-clock time so services can be tested
// against a fixed instant.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// New returns the real UTC clock.
func New() Clock { return systemClock{} }
