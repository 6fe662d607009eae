// Package wait polls a condition until it holds or its time runs out.
//
// Each wait moves through three states: it starts Polling, and ends either
// Satisfied (the predicate held on some check) or TimedOut (the deadline
// passed first). The predicate is always checked at least once, including
// with a zero timeout, so a condition that already holds never times out.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// State is where a wait is in its lifecycle.
type State int

const (
	Polling State = iota
	Satisfied
	TimedOut
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Satisfied:
		return "satisfied"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// DefaultInterval is the pause between checks when a Condition sets none.
const DefaultInterval = 500 * time.Millisecond

// ErrTimeout matches every *TimeoutError.
var ErrTimeout = errors.New("wait timed out")

// TimeoutError reports a condition that did not hold within its timeout.
type TimeoutError struct {
	Description string
	Timeout     time.Duration
	Polls       int
	// LastErr is the error returned by the final check, if any.
	LastErr error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s (%d checks)", e.Timeout, e.Description, e.Polls)
	if e.LastErr != nil {
		msg += ": last check failed: " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// Predicate checks the condition once. A check error does not stop the wait;
// the condition is treated as not yet holding.
type Predicate func(ctx context.Context) (bool, error)

// Condition describes what to wait for.
type Condition struct {
	Description string
	Check       Predicate
	Timeout     time.Duration
	Interval    time.Duration
}

// Outcome summarizes a finished wait.
type Outcome struct {
	State   State
	Polls   int
	Elapsed time.Duration
}

// Until polls c.Check until it returns true, the timeout passes, or ctx is
// done. The last check runs at the deadline. A timeout yields a
// *TimeoutError; a canceled ctx yields ctx.Err().
func Until(ctx context.Context, c Condition) (Outcome, error) {
	if c.Check == nil {
		return Outcome{State: TimedOut}, fmt.Errorf("wait for %s: no predicate", c.Description)
	}
	interval := c.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	start := time.Now()
	deadline := start.Add(c.Timeout)
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// The first check spends the initial token.
	limiter.Allow()

	out := Outcome{State: Polling}
	var lastErr error
	for {
		out.Polls++
		ok, err := c.Check(ctx)
		if ok {
			out.State = Satisfied
			out.Elapsed = time.Since(start)
			return out, nil
		}
		lastErr = err

		remaining := time.Until(deadline)
		if remaining <= 0 {
			out.State = TimedOut
			out.Elapsed = time.Since(start)
			return out, &TimeoutError{
				Description: c.Description,
				Timeout:     c.Timeout,
				Polls:       out.Polls,
				LastErr:     lastErr,
			}
		}

		delay := limiter.Reserve().Delay()
		if delay > remaining {
			delay = remaining
		}
		if err := Pause(ctx, delay); err != nil {
			out.State = TimedOut
			out.Elapsed = time.Since(start)
			return out, err
		}
	}
}

// Pause blocks for d or until ctx is done. It exists for settle delays the
// page gives no signal for; prefer Until wherever a condition can be observed.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
