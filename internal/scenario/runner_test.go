package scenario

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/evidence"
	"github.com/xkilldash9x/uiprobe/internal/mocks"
	"github.com/xkilldash9x/uiprobe/internal/wait"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingReporter keeps every progress event as a line.
type recordingReporter struct {
	events  []string
	results []Result
}

func (r *recordingReporter) ScenarioStarted(name, _ string) {
	r.events = append(r.events, "start "+name)
}
func (r *recordingReporter) CheckPassed(scenario string, c Check) {
	r.events = append(r.events, fmt.Sprintf("check %s %s", scenario, c.Description))
}
func (r *recordingReporter) EvidenceCaptured(scenario string, a evidence.Artifact) {
	r.events = append(r.events, fmt.Sprintf("evidence %s %s", scenario, a.Label))
}
func (r *recordingReporter) Noted(scenario, msg string) {
	r.events = append(r.events, fmt.Sprintf("note %s %s", scenario, msg))
}
func (r *recordingReporter) ScenarioFinished(res Result) {
	r.events = append(r.events, fmt.Sprintf("finish %s %s", res.Name, res.Status))
	r.results = append(r.results, res)
}

type harness struct {
	cfg      *config.Config
	acquirer *mocks.FakeAcquirer
	reporter *recordingReporter
	recorder *evidence.Recorder
	runner   *Runner
	dir      string
	// missing lists locators the fake app never renders.
	missing map[string]bool
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Wait.Timeout = 150 * time.Millisecond
	cfg.Wait.PollInterval = 5 * time.Millisecond
	cfg.Scenarios.Login.Settle = 60 * time.Millisecond
	cfg.Scenarios.Admin.Settle = 10 * time.Millisecond
	return cfg
}

func newHarness(t *testing.T, mutate func(*config.Config)) *harness {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	logger := zaptest.NewLogger(t)

	h := &harness{cfg: cfg, reporter: &recordingReporter{}, dir: t.TempDir(), missing: map[string]bool{}}
	h.acquirer = &mocks.FakeAcquirer{New: func(n int) *mocks.FakePage {
		p := mocks.NewFakePage(fmt.Sprintf("session-%d", n))
		h.wireApp(p)
		return p
	}}

	flow, err := auth.NewFlow(cfg.Target, cfg.Wait, logger)
	require.NoError(t, err)
	h.recorder, err = evidence.NewRecorder(h.dir, logger)
	require.NoError(t, err)

	h.runner = NewRunner(h.acquirer, flow, h.recorder, h.reporter, Options{
		Timeout:        cfg.Wait.Timeout,
		PollInterval:   cfg.Wait.PollInterval,
		ReleaseTimeout: time.Second,
		FailFast:       cfg.Run.FailFast,
	}, logger)
	return h
}

// wireApp makes p behave like the application: a bad sign-in shows the red
// error message, a good one renders the admin layout.
func (h *harness) wireApp(p *mocks.FakePage) {
	rejection := browser.MustParseLocator(h.cfg.Scenarios.Login.RejectionIndicator)
	p.OnClick = func(p *mocks.FakePage, _ browser.Locator) {
		creds := h.cfg.Target.Credentials
		if p.Typed(browser.ByName("email")) != creds.Identifier || p.Typed(browser.ByName("password")) != creds.Secret {
			h.show(p, rejection)
			return
		}
		p.Hide(rejection)
		h.show(p, browser.ByTag("header"))
		for _, cp := range h.cfg.Scenarios.Elements.Checkpoints {
			h.show(p, browser.MustParseLocator(cp.Locator))
		}
	}
}

func (h *harness) show(p *mocks.FakePage, loc browser.Locator) {
	if !h.missing[loc.String()] {
		p.ShowAfter(loc, 2)
	}
}

func (h *harness) catalog(t *testing.T) []Scenario {
	t.Helper()
	all, err := Catalog(h.cfg)
	require.NoError(t, err)
	return all
}

func assertReleasedOnce(t *testing.T, pages []*mocks.FakePage) {
	t.Helper()
	for _, p := range pages {
		assert.Equal(t, 1, p.Releases(), "session %s must be released exactly once", p.ID())
	}
}

func TestRunner_AllScenariosPass(t *testing.T) {
	h := newHarness(t, nil)

	results := h.runner.Run(context.Background(), h.catalog(t)...)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, StatusPassed, r.Status, "%s: %v", r.Name, r.Err)
		assert.NoError(t, r.Err)
	}
	assert.Equal(t, []string{"login", "admin", "elements"}, []string{results[0].Name, results[1].Name, results[2].Name})

	pages := h.acquirer.Pages()
	require.Len(t, pages, 3, "every scenario gets a fresh session")
	assertReleasedOnce(t, pages)
	assert.Equal(t, "session-1", results[1].SessionID)

	var labels []string
	for _, a := range h.recorder.Artifacts() {
		labels = append(labels, a.Label)
		assert.FileExists(t, filepath.Join(h.dir, a.Label+".png"))
	}
	assert.Equal(t, []string{LabelLoginRejected, LabelLoginAccepted, LabelAdminDashboard, LabelElements}, labels)

	assert.Equal(t, "http://localhost:5174/admin", pages[1].URL())
	assert.Equal(t, "http://localhost:5174/admin/packages-management", pages[2].URL())
}

func TestRunner_ElementsChecksInOrder(t *testing.T) {
	h := newHarness(t, nil)
	all := h.catalog(t)

	results := h.runner.Run(context.Background(), all[2])
	require.Len(t, results, 1)
	require.True(t, results[0].Passed(), "%v", results[0].Err)

	want := []Check{
		{Description: "header region", Locator: "tag=header"},
		{Description: "side navigation", Locator: "tag=aside"},
		{Description: "page heading", Locator: "partial_text=h1:Gestión de Paquetes"},
		{Description: "packages table", Locator: "tag=table"},
		{Description: "success action button", Locator: "css=button.bg-success-700"},
		{Description: "flex container", Locator: "xpath=//div[contains(@class,'flex')]"},
	}
	if diff := cmp.Diff(want, results[0].Checks, cmpopts.IgnoreFields(Check{}, "Polls", "Elapsed")); diff != "" {
		t.Errorf("checks mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_ElementsStopsAtFirstMissing(t *testing.T) {
	h := newHarness(t, nil)
	h.missing["tag=table"] = true
	all := h.catalog(t)

	start := time.Now()
	results := h.runner.Run(context.Background(), all[2])
	require.Len(t, results, 1)
	res := results[0]

	assert.Equal(t, StatusTimedOut, res.Status)
	assert.ErrorContains(t, res.Err, "checkpoint 4/6")
	assert.ErrorContains(t, res.Err, "packages table")
	assert.GreaterOrEqual(t, time.Since(start), h.cfg.Wait.Timeout)

	var passed []string
	for _, c := range res.Checks {
		passed = append(passed, c.Description)
	}
	assert.Equal(t, []string{"header region", "side navigation", "page heading"}, passed)

	page := h.acquirer.Pages()[0]
	for _, call := range page.Calls() {
		assert.NotContains(t, call, "bg-success-700", "checkpoints after the failure must not be probed")
		assert.NotContains(t, call, "contains(@class,'flex')")
	}
	assert.Empty(t, res.Artifacts)
	assert.Equal(t, 0, page.Screenshots())
	assertReleasedOnce(t, h.acquirer.Pages())
}

func TestRunner_LoginTimesOutWithoutHeader(t *testing.T) {
	h := newHarness(t, nil)
	h.missing["tag=header"] = true
	all := h.catalog(t)

	results := h.runner.Run(context.Background(), all[0])
	require.Len(t, results, 1)

	assert.Equal(t, StatusTimedOut, results[0].Status)
	labels := []string{}
	for _, a := range results[0].Artifacts {
		labels = append(labels, a.Label)
	}
	assert.Equal(t, []string{LabelLoginRejected}, labels, "login_correcto is only captured after the header appears")
	assertReleasedOnce(t, h.acquirer.Pages())
}

func TestRunner_LoginRejectionNotObservedIsOnlyNoted(t *testing.T) {
	h := newHarness(t, nil)
	h.missing[h.cfg.Scenarios.Login.RejectionIndicator] = true
	all := h.catalog(t)

	results := h.runner.Run(context.Background(), all[0])
	require.Len(t, results, 1)

	assert.True(t, results[0].Passed(), "%v", results[0].Err)
	require.Len(t, results[0].Notes, 1)
	assert.Contains(t, results[0].Notes[0], "not observed")
	assert.Contains(t, h.reporter.events, "note login "+results[0].Notes[0])
}

func TestRunner_LoginAssertRejected(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) { cfg.Scenarios.Login.AssertRejected = true })
	// This application signs in whatever is submitted.
	h.acquirer.New = func(int) *mocks.FakePage {
		p := mocks.NewFakePage("lenient")
		p.OnClick = func(p *mocks.FakePage, _ browser.Locator) { p.Show(browser.ByTag("header")) }
		return p
	}
	all := h.catalog(t)

	results := h.runner.Run(context.Background(), all[0])
	require.Len(t, results, 1)

	assert.Equal(t, StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, ErrUnexpectedAuthentication)
	assert.NotContains(t, results[0].Err.Error(), h.cfg.Target.InvalidCredentials.Secret)
	assert.Empty(t, results[0].Artifacts)
}

func TestRunner_AdminPausesWithoutReadyIndicator(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Scenarios.Admin.ReadyIndicator = ""
		cfg.Scenarios.Admin.Settle = 40 * time.Millisecond
	})
	all := h.catalog(t)
	require.True(t, all[1].(*Admin).ReadyIndicator.IsZero())

	start := time.Now()
	results := h.runner.Run(context.Background(), all[1])
	require.Len(t, results, 1)

	assert.True(t, results[0].Passed(), "%v", results[0].Err)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Empty(t, results[0].Checks)
}

func TestRunner_ReleasesOnPanic(t *testing.T) {
	h := newHarness(t, nil)
	h.acquirer.New = func(n int) *mocks.FakePage {
		p := mocks.NewFakePage("panicky")
		h.wireApp(p)
		p.PanicOn = "screenshot"
		return p
	}

	results := h.runner.Run(context.Background(), h.catalog(t)[0])
	require.Len(t, results, 1)

	assert.Equal(t, StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, ErrPanic)
	assertReleasedOnce(t, h.acquirer.Pages())
	assert.Equal(t, "finish login failed", h.reporter.events[len(h.reporter.events)-1])
}

func TestRunner_ReleasesOnStepError(t *testing.T) {
	h := newHarness(t, nil)
	navErr := errors.New("net::ERR_CONNECTION_REFUSED")
	h.acquirer.New = func(int) *mocks.FakePage {
		p := mocks.NewFakePage("offline")
		p.Fail["navigate"] = navErr
		return p
	}
	h.runner.opts.FailFast = false

	results := h.runner.Run(context.Background(), h.catalog(t)...)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, StatusFailed, r.Status)
		assert.ErrorIs(t, r.Err, navErr)
	}
	assertReleasedOnce(t, h.acquirer.Pages())
}

func TestRunner_FailFast(t *testing.T) {
	t.Run("stops after the first failure", func(t *testing.T) {
		h := newHarness(t, nil)
		h.acquirer.Err = fmt.Errorf("%w: exec: \"chrome\": not found", browser.ErrSessionAcquisition)

		results := h.runner.Run(context.Background(), h.catalog(t)...)

		require.Len(t, results, 1)
		assert.Equal(t, StatusFailed, results[0].Status)
		assert.ErrorIs(t, results[0].Err, browser.ErrSessionAcquisition)
		assert.Empty(t, results[0].SessionID)
	})

	t.Run("runs everything when disabled", func(t *testing.T) {
		h := newHarness(t, func(cfg *config.Config) { cfg.Run.FailFast = false })
		h.acquirer.Err = browser.ErrSessionAcquisition

		results := h.runner.Run(context.Background(), h.catalog(t)...)
		require.Len(t, results, 3)
	})
}

func TestRunner_CanceledContextSkipsRemaining(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := h.runner.Run(ctx, h.catalog(t)...)
	assert.Empty(t, results)
	assert.Empty(t, h.acquirer.Pages())
}

func TestRunner_ReporterEventOrder(t *testing.T) {
	h := newHarness(t, nil)
	all := h.catalog(t)

	h.runner.Run(context.Background(), all[1])

	assert.Equal(t, []string{
		"start admin",
		"check admin admin dashboard",
		"evidence admin dashboard_admin",
		"finish admin passed",
	}, h.reporter.events)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, StatusPassed, Classify(nil))
	assert.Equal(t, StatusTimedOut, Classify(fmt.Errorf("sign-in: %w", &wait.TimeoutError{Description: "tag=header"})))
	assert.Equal(t, StatusTimedOut, Classify(fmt.Errorf("click: %w", browser.ErrElementNotFound)))
	assert.Equal(t, StatusFailed, Classify(errors.New("boom")))
	assert.Equal(t, StatusFailed, Classify(context.Canceled))
}

func TestSelect(t *testing.T) {
	all, err := Catalog(testConfig())
	require.NoError(t, err)

	got, err := Select(all, []string{"elements", "LOGIN"})
	require.NoError(t, err)
	assert.Equal(t, []string{"login", "elements"}, names(got), "catalog order is kept")

	got, err = Select(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	_, err = Select(all, []string{"admin", "checkout"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "checkout"))
}

func TestCatalog(t *testing.T) {
	all, err := Catalog(testConfig())
	require.NoError(t, err)
	require.Len(t, all, 3)

	login := all[0].(*Login)
	assert.Equal(t, "prueba_falsa@gmail.com", login.Invalid.Identifier)
	assert.Equal(t, "prueba2@gmail.com", login.Valid.Identifier)

	elements := all[2].(*Elements)
	require.Len(t, elements.Checkpoints, 6)
	assert.Equal(t, browser.ByPartialText("h1", "Gestión de Paquetes"), elements.Checkpoints[2].Locator)

	cfg := testConfig()
	cfg.Scenarios.Elements.Checkpoints[3].Locator = "table"
	_, err = Catalog(cfg)
	assert.ErrorContains(t, err, "checkpoints[3]")
}
