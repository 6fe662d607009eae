package scenario

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/evidence"
	"github.com/xkilldash9x/uiprobe/internal/wait"
)

// Env is what a scenario body works with: its own page plus the shared
// sign-in flow, evidence recorder and wait settings. Every wait and capture
// made through Env is recorded on the scenario's Result.
type Env struct {
	Page browser.Page
	Auth *auth.Flow

	name         string
	recorder     *evidence.Recorder
	reporter     Reporter
	timeout      time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
	result       *Result
}

// Logger returns the scenario's logger.
func (e *Env) Logger() *zap.Logger {
	return e.logger
}

// URL resolves path against the target's base URL.
func (e *Env) URL(path string) (string, error) {
	u, err := url.JoinPath(e.Auth.BaseURL, path)
	if err != nil {
		return "", fmt.Errorf("build URL for %s: %w", path, err)
	}
	return u, nil
}

// Open navigates the page to path under the base URL.
func (e *Env) Open(ctx context.Context, path string) error {
	u, err := e.URL(path)
	if err != nil {
		return err
	}
	return e.Page.Navigate(ctx, u)
}

// WaitFor blocks until loc is present, using the configured ceiling.
func (e *Env) WaitFor(ctx context.Context, description string, loc browser.Locator) (Check, error) {
	return e.WaitForWithin(ctx, description, loc, e.timeout)
}

// WaitForWithin blocks until loc is present or timeout passes. A satisfied
// wait is recorded as a Check.
func (e *Env) WaitForWithin(ctx context.Context, description string, loc browser.Locator, timeout time.Duration) (Check, error) {
	e.logger.Debug("Waiting for element.", zap.String("description", description), zap.Stringer("locator", loc), zap.Duration("timeout", timeout))

	out, err := wait.Until(ctx, wait.Condition{
		Description: fmt.Sprintf("%s (%s)", description, loc),
		Check: func(ctx context.Context) (bool, error) {
			return e.Page.Present(ctx, loc)
		},
		Timeout:  timeout,
		Interval: e.pollInterval,
	})
	if err != nil {
		return Check{}, err
	}

	c := Check{
		Description: description,
		Locator:     loc.String(),
		Polls:       out.Polls,
		Elapsed:     out.Elapsed,
	}
	e.result.Checks = append(e.result.Checks, c)
	e.reporter.CheckPassed(e.name, c)
	return c, nil
}

// Capture writes a screenshot of the page under label.
func (e *Env) Capture(ctx context.Context, label string) error {
	a, err := e.recorder.Capture(ctx, e.name, e.Page, label)
	if err != nil {
		return err
	}
	e.result.Artifacts = append(e.result.Artifacts, a)
	e.reporter.EvidenceCaptured(e.name, a)
	return nil
}

// Note records an observation that does not affect the outcome.
func (e *Env) Note(msg string) {
	e.logger.Info(msg)
	e.result.Notes = append(e.result.Notes, msg)
	e.reporter.Noted(e.name, msg)
}

// Pause sleeps for d. Only used where the page offers nothing to wait on.
func (e *Env) Pause(ctx context.Context, d time.Duration) error {
	e.logger.Debug("Pausing.", zap.Duration("duration", d))
	return wait.Pause(ctx, d)
}
