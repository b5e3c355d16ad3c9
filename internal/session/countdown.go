package session

import (
	"context"
	"time"
)

// Ticker delivers periodic ticks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

// NewTicker wraps time.NewTicker.
func NewTicker(d time.Duration) Ticker {
	return timeTicker{time.NewTicker(d)}
}

// Countdown drives a timed session's clock once per second.
type Countdown struct {
	session   *Session
	newTicker func(time.Duration) Ticker
	onTick    func(Snapshot)
}

// CountdownOption configures a Countdown.
type CountdownOption func(*Countdown)

// WithTicker replaces the wall-clock ticker.
func WithTicker(newTicker func(time.Duration) Ticker) CountdownOption {
	return func(c *Countdown) { c.newTicker = newTicker }
}

// WithTickObserver is called after every tick with the new state.
func WithTickObserver(fn func(Snapshot)) CountdownOption {
	return func(c *Countdown) { c.onTick = fn }
}

// NewCountdown creates a Countdown for s.
func NewCountdown(s *Session, opts ...CountdownOption) *Countdown {
	c := &Countdown{session: s, newTicker: NewTicker}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run ticks until the session leaves Active, reaches zero, or ctx is done.
// The ticker is always stopped before Run returns.
func (c *Countdown) Run(ctx context.Context) error {
	ticker := c.newTicker(time.Second)
	defer ticker.Stop()

	done := c.session.Done()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
			return nil
		case <-ticker.C():
			ticked, running := c.session.tick()
			if ticked && c.onTick != nil {
				c.onTick(c.session.Snapshot())
			}
			if !running {
				return nil
			}
		}
	}
}
