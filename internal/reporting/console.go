// internal/reporting/console.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/uiprobe/internal/evidence"
	"github.com/xkilldash9x/uiprobe/internal/scenario"
)

const rule = "=============================================="

// Console prints human-readable progress lines as scenarios run.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	seq map[string]int
}

var _ scenario.Reporter = (*Console)(nil)

// NewConsole returns a console reporter writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, seq: make(map[string]int)}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

// Banner prints the run header.
func (c *Console) Banner(baseURL string) {
	c.printf("\n=== uiprobe: UI scenarios against %s ===\n\n", baseURL)
}

func (c *Console) ScenarioStarted(name, description string) {
	c.mu.Lock()
	c.seq[name] = 0
	c.mu.Unlock()
	c.printf("\n%s: %s\n%s\n", name, description, rule)
}

func (c *Console) CheckPassed(scenarioName string, check scenario.Check) {
	c.mu.Lock()
	c.seq[scenarioName]++
	n := c.seq[scenarioName]
	c.mu.Unlock()
	c.printf("  [%d] %s present: %s (%s)\n", n, check.Description, check.Locator, check.Elapsed.Round(time.Millisecond))
}

func (c *Console) EvidenceCaptured(_ string, a evidence.Artifact) {
	c.printf("  captured %s -> %s\n", a.Label, a.Path)
}

func (c *Console) Noted(_ string, msg string) {
	c.printf("  note: %s\n", msg)
}

func (c *Console) ScenarioFinished(r scenario.Result) {
	if r.Err != nil {
		c.printf("%s %s after %s: %v\n", strings.ToUpper(string(r.Status)), r.Name, r.Duration.Round(time.Millisecond), r.Err)
		return
	}
	c.printf("PASSED %s in %s\n", r.Name, r.Duration.Round(time.Millisecond))
}

// Summary prints one line per result and the overall verdict.
func (c *Console) Summary(results []scenario.Result, skipped []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "\n%s\n", rule)
	passed := 0
	for _, r := range results {
		if r.Passed() {
			passed++
		}
		fmt.Fprintf(c.w, "  %-10s %-9s %s\n", r.Name, r.Status, r.Duration.Round(time.Millisecond))
	}
	for _, name := range skipped {
		fmt.Fprintf(c.w, "  %-10s %-9s\n", name, "not run")
	}
	if passed == len(results) && len(skipped) == 0 {
		fmt.Fprintf(c.w, "\nAll scenarios completed (%d/%d)\n%s\n", passed, len(results), rule)
		return
	}
	fmt.Fprintf(c.w, "\n%d of %d scenarios passed\n%s\n", passed, len(results)+len(skipped), rule)
}
