// Package pacing maps presentation timestamps onto a host clock.
package pacing

import (
	"context"
	"math"
	"math/big"
	"time"

	"github.com/user/framepace/pkg/ports"
)

const (
	// DefaultMaxSleep bounds a single Clock.Sleep inside Wait.
	DefaultMaxSleep = 50 * time.Millisecond
	// DefaultLateTolerance is how far past its target a frame may be
	// presented before it counts as late.
	DefaultLateTolerance = 20 * time.Millisecond
)

// ToPresentationSeconds converts absolute ticks to seconds. The value is
// computed from the tick count each time, never from a running sum.
func ToPresentationSeconds(ticks int64, tb ports.Rational) float64 {
	if !tb.Valid() {
		return 0
	}
	r := new(big.Rat).SetFrac(
		new(big.Int).Mul(big.NewInt(ticks), big.NewInt(tb.Num)),
		big.NewInt(tb.Den),
	)
	f, _ := r.Float64()
	return f
}

// ToDuration converts absolute ticks to a duration rounded to the
// nearest nanosecond.
func ToDuration(ticks int64, tb ports.Rational) time.Duration {
	if !tb.Valid() {
		return 0
	}
	num := new(big.Int).Mul(big.NewInt(ticks), big.NewInt(tb.Num))
	num.Mul(num, big.NewInt(int64(time.Second)))
	den := big.NewInt(tb.Den)

	// round half away from zero
	half := new(big.Int).Quo(den, big.NewInt(2))
	if num.Sign() < 0 {
		num.Sub(num, half)
	} else {
		num.Add(num, half)
	}
	q := num.Quo(num, den)
	if !q.IsInt64() {
		if q.Sign() < 0 {
			return time.Duration(math.MinInt64)
		}
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(q.Int64())
}

// Decision is the outcome of a pacing check.
type Decision struct {
	Ready bool
	// Wait is how long until the frame is due. Zero when Ready.
	Wait time.Duration
}

// ShouldPresentNow compares a target presentation time with the clock,
// both in seconds on the same time line. Wait is rounded to the
// nanosecond.
func ShouldPresentNow(target, now float64) Decision {
	if target <= now {
		return Decision{Ready: true}
	}
	return Decision{Wait: time.Duration(math.Round((target - now) * float64(time.Second)))}
}

// Stats summarises presentation accuracy.
type Stats struct {
	Presented     int
	Late          int
	MaxLateness   time.Duration
	TotalLateness time.Duration
}

// MeanLateness returns the average lateness of presented frames.
func (s Stats) MeanLateness() time.Duration {
	if s.Presented == 0 {
		return 0
	}
	return s.TotalLateness / time.Duration(s.Presented)
}

// Pacer anchors stream time to a clock. The origin is fixed by the first
// Schedule call and never moves afterwards.
type Pacer struct {
	clock         ports.Clock
	MaxSleep      time.Duration
	LateTolerance time.Duration

	started bool
	origin  time.Duration
	stats   Stats
}

// NewPacer creates a pacer over clock.
func NewPacer(clock ports.Clock) *Pacer {
	return &Pacer{
		clock:         clock,
		MaxSleep:      DefaultMaxSleep,
		LateTolerance: DefaultLateTolerance,
	}
}

// Started reports whether the origin has been fixed.
func (p *Pacer) Started() bool {
	return p.started
}

// Origin returns the clock reading that corresponds to stream time zero.
func (p *Pacer) Origin() time.Duration {
	return p.origin
}

// Schedule decides whether a frame with the given stream time is due.
// The first call establishes the origin and is always Ready.
func (p *Pacer) Schedule(target time.Duration) Decision {
	now := p.clock.Now()
	if !p.started {
		p.started = true
		p.origin = now - target
		return Decision{Ready: true}
	}
	return ShouldPresentNow((p.origin + target).Seconds(), now.Seconds())
}

// Wait blocks until target is due, sleeping in slices of at most MaxSleep,
// then records the frame as presented. It returns how late the frame was.
func (p *Pacer) Wait(ctx context.Context, target time.Duration) (time.Duration, error) {
	d := p.Schedule(target)
	for !d.Ready {
		sleep := d.Wait
		if p.MaxSleep > 0 && sleep > p.MaxSleep {
			sleep = p.MaxSleep
		}
		if err := p.clock.Sleep(ctx, sleep); err != nil {
			return 0, err
		}
		d = p.Schedule(target)
	}
	return p.record(target), nil
}

// Present records a frame delivered without waiting, fixing the origin
// if needed.
func (p *Pacer) Present(target time.Duration) time.Duration {
	p.Schedule(target)
	return p.record(target)
}

func (p *Pacer) record(target time.Duration) time.Duration {
	late := p.clock.Now() - (p.origin + target)
	if late < 0 {
		late = 0
	}
	p.stats.Presented++
	p.stats.TotalLateness += late
	if late > p.stats.MaxLateness {
		p.stats.MaxLateness = late
	}
	if late > p.LateTolerance {
		p.stats.Late++
	}
	return late
}

// Stats returns presentation statistics.
func (p *Pacer) Stats() Stats {
	return p.stats
}
