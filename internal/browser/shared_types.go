// internal/browser/shared_types.go
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionAcquisition means the browser process could not be started or reached.
	ErrSessionAcquisition = errors.New("browser session could not be acquired")
	// ErrElementNotFound means an action's target never matched within the action timeout.
	ErrElementNotFound = errors.New("element not found")
	// ErrSessionReleased is returned by page operations on a released session.
	ErrSessionReleased = errors.New("browser session already released")
)

// valueOnlyContext is a context that inherits values but not cancellation.
type valueOnlyContext struct{ context.Context }

func (valueOnlyContext) Deadline() (time.Time, bool) { return time.Time{}, false }
func (valueOnlyContext) Done() <-chan struct{}       { return nil }
func (valueOnlyContext) Err() error                  { return nil }

// Detach returns a context carrying ctx's values but not its deadline or
// cancellation. Release paths use it so cleanup runs after an interrupt.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}

// CombineContext returns a context derived from primary (so it keeps primary's
// values, including the chromedp target) that is also canceled when secondary is done.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
