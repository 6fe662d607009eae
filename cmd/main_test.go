// File: cmd/main_test.go
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/mocks"
	"github.com/xkilldash9x/uiprobe/internal/observability"
)

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()
	cfgFile = ""
	observability.ResetForTest()
	prev := newSessionProvider
	t.Cleanup(func() {
		cfgFile = ""
		newSessionProvider = prev
		observability.ResetForTest()
	})
}

// fakeProvider serves fake pages that behave like the application.
type fakeProvider struct {
	*mocks.FakeAcquirer
	shutdowns int
}

func (f *fakeProvider) Shutdown(context.Context) { f.shutdowns++ }

// installFakeBrowser swaps the browser for fake pages. Locators listed in
// missing never render.
func installFakeBrowser(t *testing.T, missing ...string) *fakeProvider {
	t.Helper()
	absent := make(map[string]bool, len(missing))
	for _, m := range missing {
		absent[m] = true
	}

	defaults := config.NewDefaultConfig()
	rejection := browser.MustParseLocator(defaults.Scenarios.Login.RejectionIndicator)
	rendered := []browser.Locator{browser.ByTag("header")}
	for _, cp := range defaults.Scenarios.Elements.Checkpoints {
		rendered = append(rendered, browser.MustParseLocator(cp.Locator))
	}

	provider := &fakeProvider{FakeAcquirer: &mocks.FakeAcquirer{New: func(n int) *mocks.FakePage {
		p := mocks.NewFakePage(fmt.Sprintf("session-%d", n))
		p.OnClick = func(p *mocks.FakePage, _ browser.Locator) {
			valid := p.Typed(browser.ByName("email")) == defaults.Target.Credentials.Identifier &&
				p.Typed(browser.ByName("password")) == defaults.Target.Credentials.Secret
			if !valid {
				p.ShowAfter(rejection, 1)
				return
			}
			for _, loc := range rendered {
				if !absent[loc.String()] {
					p.ShowAfter(loc, 1)
				}
			}
		}
		return p
	}}}
	newSessionProvider = func(config.BrowserConfig, *zap.Logger) sessionProvider { return provider }
	return provider
}

// writeTestConfig writes a config file with short waits and returns its
// path and the evidence directory it points at.
func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	evidenceDir := filepath.Join(dir, "evidence")
	content := fmt.Sprintf(`
logger:
  level: error
wait:
  timeout: 200ms
  poll_interval: 5ms
scenarios:
  login:
    settle: 30ms
  admin:
    settle: 10ms
evidence:
  dir: %s
  manifest: manifest.json
`, evidenceDir)
	path := filepath.Join(dir, "uiprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, evidenceDir
}

// execute runs the command tree with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
