package calendar

import (
	"context"
	"math/rand"
	"time"
)

// Delay is a politeness pause drawn uniformly from [Min, Max].
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// DefaultPoliteness matches the 5-8 s window used between page visits.
func DefaultPoliteness() Delay {
	return Delay{Min: 5 * time.Second, Max: 8 * time.Second}
}

// Next draws the next pause.
func (d Delay) Next() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)+1))
}

// Wait sleeps for the next pause or until ctx is done.
func (d Delay) Wait(ctx context.Context) error {
	return sleep(ctx, d.Next())
}
