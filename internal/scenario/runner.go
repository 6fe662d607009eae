// Package scenario runs the UI scenarios against fresh browser sessions.
package scenario

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/evidence"
)

// Scenario is one linear script run against its own session.
type Scenario interface {
	Name() string
	Description() string
	Run(ctx context.Context, env *Env) error
}

// Acquirer hands out a fresh browser session per call.
type Acquirer interface {
	Lease(ctx context.Context) (browser.Handle, error)
}

// Reporter receives progress as scenarios run. Calls are made from the
// runner's goroutine, one scenario at a time.
type Reporter interface {
	ScenarioStarted(name, description string)
	CheckPassed(scenario string, c Check)
	EvidenceCaptured(scenario string, a evidence.Artifact)
	Noted(scenario, msg string)
	ScenarioFinished(r Result)
}

// Options tunes the runner.
type Options struct {
	// Timeout is the default ceiling for each wait.
	Timeout      time.Duration
	PollInterval time.Duration
	// ReleaseTimeout bounds the graceful browser close.
	ReleaseTimeout time.Duration
	// FailFast stops the run after the first scenario that does not pass.
	FailFast bool
}

// Runner executes scenarios strictly one after another.
type Runner struct {
	acquirer Acquirer
	auth     *auth.Flow
	recorder *evidence.Recorder
	reporter Reporter
	opts     Options
	logger   *zap.Logger
}

// NewRunner creates a runner. A nil reporter discards progress.
func NewRunner(acquirer Acquirer, flow *auth.Flow, recorder *evidence.Recorder, reporter Reporter, opts Options, logger *zap.Logger) *Runner {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if opts.ReleaseTimeout <= 0 {
		opts.ReleaseTimeout = 10 * time.Second
	}
	return &Runner{
		acquirer: acquirer,
		auth:     flow,
		recorder: recorder,
		reporter: reporter,
		opts:     opts,
		logger:   logger.Named("runner"),
	}
}

// Run executes scenarios in order and returns one Result per scenario that
// was started. With FailFast, scenarios after the first failure are skipped.
func (r *Runner) Run(ctx context.Context, scenarios ...Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for i, s := range scenarios {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Run interrupted; skipping remaining scenarios.", zap.Error(err), zap.Strings("skipped", names(scenarios[i:])))
			break
		}

		res := r.runOne(ctx, s)
		results = append(results, res)

		if !res.Passed() && r.opts.FailFast && i+1 < len(scenarios) {
			r.logger.Warn("Stopping after failed scenario.",
				zap.String("scenario", res.Name),
				zap.Strings("skipped", names(scenarios[i+1:])))
			break
		}
	}
	return results
}

// runOne owns one session for the duration of one scenario. The deferred
// calls run in reverse: a panic is recovered first, then the session is
// released, then the result is finalized and reported.
func (r *Runner) runOne(ctx context.Context, s Scenario) (res Result) {
	res = Result{Name: s.Name(), Started: time.Now()}
	logger := r.logger.With(zap.String("scenario", s.Name()))
	logger.Info("Scenario starting.")
	r.reporter.ScenarioStarted(s.Name(), s.Description())

	defer func() {
		res.Duration = time.Since(res.Started)
		res.Status = Classify(res.Err)
		if res.Err != nil {
			logger.Error("Scenario did not pass.", zap.String("status", string(res.Status)), zap.Error(res.Err))
		} else {
			logger.Info("Scenario passed.", zap.Duration("duration", res.Duration))
		}
		r.reporter.ScenarioFinished(res)
	}()

	handle, err := r.acquirer.Lease(ctx)
	if err != nil {
		res.Err = fmt.Errorf("acquire session: %w", err)
		return res
	}
	res.SessionID = handle.ID()
	logger = logger.With(zap.String("session_id", handle.ID()))

	defer func() {
		// Release must run even if ctx was canceled mid-scenario.
		releaseCtx, cancel := context.WithTimeout(browser.Detach(ctx), r.opts.ReleaseTimeout)
		defer cancel()
		handle.Release(releaseCtx)
	}()

	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic in scenario.", zap.Any("panic", p), zap.String("stack", string(debug.Stack())))
			res.Err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	env := &Env{
		Page:         handle,
		Auth:         r.auth,
		name:         s.Name(),
		recorder:     r.recorder,
		reporter:     r.reporter,
		timeout:      r.opts.Timeout,
		pollInterval: r.opts.PollInterval,
		logger:       logger,
		result:       &res,
	}
	res.Err = s.Run(ctx, env)
	return res
}

func names(scenarios []Scenario) []string {
	out := make([]string, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.Name()
	}
	return out
}

type nopReporter struct{}

func (nopReporter) ScenarioStarted(string, string)             {}
func (nopReporter) CheckPassed(string, Check)                  {}
func (nopReporter) EvidenceCaptured(string, evidence.Artifact) {}
func (nopReporter) Noted(string, string)                       {}
func (nopReporter) ScenarioFinished(Result)                    {}
