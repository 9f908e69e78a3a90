// Package systemclock provides the monotonic wall clock.
package systemclock

import (
	"context"
	"time"

	"github.com/user/framepace/pkg/ports"
)

// Clock measures time since its creation using the monotonic clock.
type Clock struct {
	epoch time.Time
}

// New creates a clock whose epoch is now.
func New() *Clock {
	return &Clock{epoch: time.Now()}
}

func (c *Clock) Now() time.Duration {
	return time.Since(c.epoch)
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ ports.Clock = (*Clock)(nil)
