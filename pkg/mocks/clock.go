package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/user/framepace/pkg/ports"
)

// Clock is a manual ports.Clock. Sleep advances the clock instantly by
// the requested duration and records it.
type Clock struct {
	mu     sync.Mutex
	now    time.Duration
	Sleeps []time.Duration
}

// NewClock creates a clock starting at start.
func NewClock(start time.Duration) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sleeps = append(c.Sleeps, d)
	c.now += d
	return nil
}

// TotalSlept returns the sum of all recorded sleeps.
func (c *Clock) TotalSlept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.Sleeps {
		total += d
	}
	return total
}

var _ ports.Clock = (*Clock)(nil)
