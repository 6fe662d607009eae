// internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/config"
)

// selectActiveField selects the text of the focused input so the next key
// press replaces it. Frameworks with controlled inputs only observe edits that
// arrive as key events.
const selectActiveField = `(function() {
	const el = document.activeElement;
	if (el && typeof el.select === 'function') { el.select(); }
})()`

// Session is one browser process with one tab, owned by a single scenario.
type Session struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	// ctx is the chromedp tab context.
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	releaseOnce sync.Once
	released    atomic.Bool
	onRelease   func()
}

// Ensure Session implements Handle.
var _ Handle = (*Session)(nil)

// ID returns the unique identifier for the session.
func (s *Session) ID() string {
	return s.id
}

// Released reports whether Release has run.
func (s *Session) Released() bool {
	return s.released.Load()
}

// run executes actions bound to both the tab lifetime and ctx, with an
// optional per-call timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.released.Load() {
		return ErrSessionReleased
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	return chromedp.Run(runCtx, actions...)
}

// elementAction runs an action that targets loc. Running out of time while
// the element is still missing is reported as ErrElementNotFound.
func (s *Session) elementAction(ctx context.Context, verb string, loc Locator, build func(sel string, opt chromedp.QueryOption) chromedp.Action) error {
	sel, opt := loc.Query()
	s.logger.Debug("Element action", zap.String("action", verb), zap.Stringer("locator", loc))

	err := s.run(ctx, s.cfg.ActionTimeout, build(sel, opt))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return fmt.Errorf("%s %s: %w", verb, loc, ErrElementNotFound)
	default:
		return fmt.Errorf("%s %s: %w", verb, loc, err)
	}
}

// Navigate loads url and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Info("Navigating", zap.String("url", url))
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %s: %w", url, s.cfg.NavigationTimeout, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// SendKeys types text into the element matching loc.
func (s *Session) SendKeys(ctx context.Context, loc Locator, text string) error {
	return s.elementAction(ctx, "type into", loc, func(sel string, opt chromedp.QueryOption) chromedp.Action {
		return chromedp.SendKeys(sel, text, opt)
	})
}

// Clear empties the input matching loc using key events.
func (s *Session) Clear(ctx context.Context, loc Locator) error {
	return s.elementAction(ctx, "clear", loc, func(sel string, opt chromedp.QueryOption) chromedp.Action {
		return chromedp.Tasks{
			chromedp.Focus(sel, opt),
			chromedp.Evaluate(selectActiveField, nil),
			chromedp.KeyEvent(kb.Backspace),
		}
	})
}

// Click clicks the first visible element matching loc.
func (s *Session) Click(ctx context.Context, loc Locator) error {
	return s.elementAction(ctx, "click", loc, func(sel string, opt chromedp.QueryOption) chromedp.Action {
		return chromedp.Click(sel, opt)
	})
}

// Present reports whether at least one element currently matches loc. It
// does not wait for the element to appear.
func (s *Session) Present(ctx context.Context, loc Locator) (bool, error) {
	sel, opt := loc.Query()
	var nodes []*cdp.Node
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Nodes(sel, &nodes, opt, chromedp.AtLeast(0))); err != nil {
		return false, fmt.Errorf("probe %s: %w", loc, err)
	}
	return len(nodes) > 0, nil
}

// Screenshot captures the current viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

// URL returns the location of the current page.
func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.cfg.ActionTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

// Release closes the tab and terminates the browser process. Only the first
// call does anything. It never fails: a browser that is already gone, or one
// that does not close before ctx is done, is killed through its allocator.
func (s *Session) Release(ctx context.Context) {
	s.releaseOnce.Do(func() {
		s.released.Store(true)
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic while releasing browser session.", zap.Any("panic", r))
			}
		}()

		s.logger.Debug("Releasing browser session.")

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Debug("Graceful browser close reported an error.", zap.Error(err))
			}
		case <-ctx.Done():
			s.logger.Warn("Timed out closing the browser gracefully; killing it.", zap.Error(ctx.Err()))
		}

		s.cancelTab()
		s.cancelAlloc()

		if s.onRelease != nil {
			s.onRelease()
		}
		s.logger.Info("Browser session released.")
	})
}
