package scenario

import (
	"errors"
	"time"

	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/evidence"
	"github.com/xkilldash9x/uiprobe/internal/wait"
)

// Status is the outcome of one scenario.
type Status string

const (
	StatusPassed   Status = "passed"
	StatusTimedOut Status = "timed_out"
	StatusFailed   Status = "failed"
)

var (
	// ErrPanic marks a scenario body that panicked.
	ErrPanic = errors.New("scenario panicked")
	// ErrUnexpectedAuthentication means invalid credentials were accepted.
	ErrUnexpectedAuthentication = errors.New("invalid credentials were accepted")
)

// Check is one wait condition a scenario saw satisfied.
type Check struct {
	Description string
	Locator     string
	Polls       int
	Elapsed     time.Duration
}

// Result is the explicit outcome of one scenario run.
type Result struct {
	Name      string
	SessionID string
	Status    Status
	Err       error
	Started   time.Time
	Duration  time.Duration
	Artifacts []evidence.Artifact
	Checks    []Check
	Notes     []string
}

// Passed reports whether the scenario completed without error.
func (r Result) Passed() bool {
	return r.Status == StatusPassed
}

// Classify maps a scenario error to its status. A missing element is a wait
// that ran out of time, so it counts as a timeout too.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusPassed
	case errors.Is(err, wait.ErrTimeout), errors.Is(err, browser.ErrElementNotFound):
		return StatusTimedOut
	default:
		return StatusFailed
	}
}
