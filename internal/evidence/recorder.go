// Package evidence persists labeled screenshots of the page under test.
package evidence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
)

// Shooter captures the current viewport as a PNG image.
type Shooter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// Artifact is one image written by Capture.
type Artifact struct {
	Label      string    `json:"label"`
	Path       string    `json:"path"`
	Scenario   string    `json:"scenario"`
	CapturedAt time.Time `json:"captured_at"`
	Bytes      int       `json:"bytes"`
}

// Recorder writes screenshots to a directory, one file per label. A second
// capture under the same label overwrites the first.
type Recorder struct {
	dir    string
	logger *zap.Logger

	mu        sync.Mutex
	artifacts []Artifact
}

// NewRecorder prepares dir (expanding a leading ~) and returns a recorder
// writing into it.
func NewRecorder(dir string, logger *zap.Logger) (*Recorder, error) {
	if dir == "" {
		dir = "."
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, fmt.Errorf("could not resolve evidence directory '%s': %w", dir, err)
	}
	if err := os.MkdirAll(expanded, 0o755); err != nil {
		return nil, fmt.Errorf("could not create evidence directory '%s': %w", expanded, err)
	}
	return &Recorder{dir: expanded, logger: logger.Named("evidence")}, nil
}

// Dir returns the resolved evidence directory.
func (r *Recorder) Dir() string {
	return r.dir
}

// ValidateLabel rejects labels that would not map to a single file in the
// evidence directory.
func ValidateLabel(label string) error {
	switch {
	case strings.TrimSpace(label) == "":
		return fmt.Errorf("evidence label is empty")
	case strings.ContainsAny(label, `/\`) || label == "." || label == "..":
		return fmt.Errorf("evidence label %q must not contain path elements", label)
	}
	return nil
}

// Capture screenshots the page and writes it to <dir>/<label>.png.
func (r *Recorder) Capture(ctx context.Context, scenario string, shooter Shooter, label string) (Artifact, error) {
	if err := ValidateLabel(label); err != nil {
		return Artifact{}, err
	}
	img, err := shooter.Screenshot(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("capture %s: %w", label, err)
	}

	path := filepath.Join(r.dir, label+".png")
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write %s: %w", path, err)
	}

	a := Artifact{
		Label:      label,
		Path:       path,
		Scenario:   scenario,
		CapturedAt: time.Now().UTC(),
		Bytes:      len(img),
	}
	r.mu.Lock()
	r.artifacts = append(r.artifacts, a)
	r.mu.Unlock()

	r.logger.Info("Evidence captured.", zap.String("label", label), zap.String("path", path), zap.String("scenario", scenario))
	return a, nil
}

// Artifacts returns every artifact captured so far, in capture order.
func (r *Recorder) Artifacts() []Artifact {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Artifact, len(r.artifacts))
	copy(out, r.artifacts)
	return out
}

type manifest struct {
	Dir       string     `json:"dir"`
	Artifacts []Artifact `json:"artifacts"`
}

// WriteManifest writes the artifact list as JSON to path. A relative path is
// resolved against the evidence directory.
func (r *Recorder) WriteManifest(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("could not resolve manifest path '%s': %w", path, err)
	}
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(r.dir, expanded)
	}

	data, err := json.MarshalIndent(manifest{Dir: r.dir, Artifacts: r.Artifacts()}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode evidence manifest: %w", err)
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return "", fmt.Errorf("write evidence manifest: %w", err)
	}
	return expanded, nil
}
