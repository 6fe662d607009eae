// internal/reporting/reporter.go
package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/uiprobe/internal/evidence"
	"github.com/xkilldash9x/uiprobe/internal/scenario"
)

// Writer persists the report of a finished run.
type Writer interface {
	// Write encodes the run report.
	Write(report *RunReport) error
	// Close finalizes the report and closes any underlying file.
	Close() error
}

// CheckReport is a satisfied wait as it appears in a report.
type CheckReport struct {
	Description string `json:"description"`
	Locator     string `json:"locator"`
	Polls       int    `json:"polls"`
	ElapsedMS   int64  `json:"elapsed_ms"`
}

// ScenarioReport is one scenario result as it appears in a report.
type ScenarioReport struct {
	Name       string              `json:"name"`
	SessionID  string              `json:"session_id,omitempty"`
	Status     scenario.Status     `json:"status"`
	Error      string              `json:"error,omitempty"`
	Started    time.Time           `json:"started"`
	DurationMS int64               `json:"duration_ms"`
	Checks     []CheckReport       `json:"checks"`
	Artifacts  []evidence.Artifact `json:"artifacts"`
	Notes      []string            `json:"notes,omitempty"`
}

// RunReport covers one invocation.
type RunReport struct {
	RunID    string           `json:"run_id"`
	Version  string           `json:"version"`
	BaseURL  string           `json:"base_url"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Passed   bool             `json:"passed"`
	Results  []ScenarioReport `json:"results"`
	Skipped  []string         `json:"skipped,omitempty"`
}

// NewRunReport converts runner results into a report.
func NewRunReport(runID, version, baseURL string, started time.Time, results []scenario.Result, skipped []string) *RunReport {
	rep := &RunReport{
		RunID:    runID,
		Version:  version,
		BaseURL:  baseURL,
		Started:  started.UTC(),
		Finished: time.Now().UTC(),
		Passed:   len(skipped) == 0,
		Results:  make([]ScenarioReport, 0, len(results)),
		Skipped:  skipped,
	}
	for _, r := range results {
		if !r.Passed() {
			rep.Passed = false
		}
		sr := ScenarioReport{
			Name:       r.Name,
			SessionID:  r.SessionID,
			Status:     r.Status,
			Started:    r.Started.UTC(),
			DurationMS: r.Duration.Milliseconds(),
			Checks:     make([]CheckReport, 0, len(r.Checks)),
			Artifacts:  r.Artifacts,
			Notes:      r.Notes,
		}
		if sr.Artifacts == nil {
			sr.Artifacts = []evidence.Artifact{}
		}
		if r.Err != nil {
			sr.Error = r.Err.Error()
		}
		for _, c := range r.Checks {
			sr.Checks = append(sr.Checks, CheckReport{
				Description: c.Description,
				Locator:     c.Locator,
				Polls:       c.Polls,
				ElapsedMS:   c.Elapsed.Milliseconds(),
			})
		}
		rep.Results = append(rep.Results, sr)
	}
	return rep
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a report writer for format ("json" or "text") writing to
// outputPath, or to stdout when the path is empty or "stdout".
func New(format, outputPath string) (Writer, error) {
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		path, err := homedir.Expand(outputPath)
		if err != nil {
			return nil, fmt.Errorf("could not resolve output path '%s': %w", outputPath, err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		writer = f
	}

	if format == "text" {
		return &textWriter{w: writer}, nil
	}
	return &jsonWriter{w: writer}, nil
}

type jsonWriter struct {
	w io.WriteCloser
}

func (j *jsonWriter) Write(report *RunReport) error {
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}
	return nil
}

func (j *jsonWriter) Close() error { return j.w.Close() }

type textWriter struct {
	w io.WriteCloser
}

func (t *textWriter) Write(report *RunReport) error {
	verdict := "PASSED"
	if !report.Passed {
		verdict = "FAILED"
	}
	if _, err := fmt.Fprintf(t.w, "run %s against %s: %s\n", report.RunID, report.BaseURL, verdict); err != nil {
		return err
	}
	for _, r := range report.Results {
		line := fmt.Sprintf("%s\t%s\t%dms", r.Name, r.Status, r.DurationMS)
		if r.Error != "" {
			line += "\t" + r.Error
		}
		if _, err := fmt.Fprintln(t.w, line); err != nil {
			return err
		}
	}
	for _, name := range report.Skipped {
		if _, err := fmt.Fprintf(t.w, "%s\tnot run\n", name); err != nil {
			return err
		}
	}
	return nil
}

func (t *textWriter) Close() error { return t.w.Close() }
