package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/evidence"
	"github.com/xkilldash9x/uiprobe/internal/observability"
	"github.com/xkilldash9x/uiprobe/internal/reporting"
	"github.com/xkilldash9x/uiprobe/internal/scenario"
)

// ErrScenariosFailed is returned when a run did not pass every scenario.
var ErrScenariosFailed = errors.New("not every scenario passed")

// sessionProvider leases browser sessions and cleans up any left open.
type sessionProvider interface {
	scenario.Acquirer
	Shutdown(ctx context.Context)
}

// newSessionProvider is replaced in tests.
var newSessionProvider = func(cfg config.BrowserConfig, logger *zap.Logger) sessionProvider {
	return browser.NewManager(cfg, logger)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run the named scenarios, or all of them, in catalog order",
		Example: `  uiprobe run
  uiprobe run login elements --headless
  UIPROBE_PASSWORD=secret uiprobe run admin --base-url https://staging.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(cmd, args)
		},
	}
}

// runScenarios executes the selected scenarios and writes the console output,
// evidence manifest and run report.
func runScenarios(cmd *cobra.Command, names []string) error {
	ctx := cmd.Context()
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}

	all, err := scenario.Catalog(cfg)
	if err != nil {
		return fmt.Errorf("invalid scenario configuration: %w", err)
	}
	selected, err := scenario.Select(all, names)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger := observability.GetLogger().With(zap.String("run_id", runID))

	flow, err := auth.NewFlow(cfg.Target, cfg.Wait, logger)
	if err != nil {
		return fmt.Errorf("invalid sign-in configuration: %w", err)
	}
	recorder, err := evidence.NewRecorder(cfg.Evidence.Dir, logger)
	if err != nil {
		return err
	}

	provider := newSessionProvider(cfg.Browser, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(browser.Detach(ctx), cfg.Browser.ReleaseTimeout)
		defer cancel()
		provider.Shutdown(shutdownCtx)
	}()

	console := reporting.NewConsole(cmd.OutOrStdout())
	console.Banner(cfg.Target.BaseURL)

	runner := scenario.NewRunner(provider, flow, recorder, console, scenario.Options{
		Timeout:        cfg.Wait.Timeout,
		PollInterval:   cfg.Wait.PollInterval,
		ReleaseTimeout: cfg.Browser.ReleaseTimeout,
		FailFast:       cfg.Run.FailFast,
	}, logger)

	started := time.Now()
	results := runner.Run(ctx, selected...)
	skipped := skippedScenarios(selected, results)
	console.Summary(results, skipped)

	if cfg.Evidence.Manifest != "" {
		path, err := recorder.WriteManifest(cfg.Evidence.Manifest)
		if err != nil {
			return err
		}
		logger.Info("Evidence manifest written.", zap.String("path", path))
	}

	report := reporting.NewRunReport(runID, Version, cfg.Target.BaseURL, started, results, skipped)
	if cfg.Run.Report != "" {
		if err := writeReport(cfg.Run.ReportFormat, cfg.Run.Report, report); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if !report.Passed {
		return fmt.Errorf("%w: %d of %d passed", ErrScenariosFailed, countPassed(results), len(selected))
	}
	return nil
}

func writeReport(format, path string, report *reporting.RunReport) (err error) {
	w, err := reporting.New(format, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report: %w", cerr)
		}
	}()
	return w.Write(report)
}

func skippedScenarios(selected []scenario.Scenario, results []scenario.Result) []string {
	var skipped []string
	for _, s := range selected[len(results):] {
		skipped = append(skipped, s.Name())
	}
	return skipped
}

func countPassed(results []scenario.Result) int {
	n := 0
	for _, r := range results {
		if r.Passed() {
			n++
		}
	}
	return n
}
