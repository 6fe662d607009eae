package scenario

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
)

// Checkpoint is one element the page must show, in sequence.
type Checkpoint struct {
	Description string
	Locator     browser.Locator
}

// Elements signs in, opens a page and waits for each checkpoint in order.
// A checkpoint is only looked for once the one before it was found.
type Elements struct {
	Credentials auth.Credentials
	Path        string
	Checkpoints []Checkpoint
}

func (*Elements) Name() string        { return "elements" }
func (*Elements) Description() string { return "ordered element presence" }

func (e *Elements) Run(ctx context.Context, env *Env) error {
	if err := env.Auth.Login(ctx, env.Page, e.Credentials); err != nil {
		return err
	}
	if err := env.Open(ctx, e.Path); err != nil {
		return err
	}
	for i, cp := range e.Checkpoints {
		if _, err := env.WaitFor(ctx, cp.Description, cp.Locator); err != nil {
			return fmt.Errorf("checkpoint %d/%d: %w", i+1, len(e.Checkpoints), err)
		}
	}
	return env.Capture(ctx, LabelElements)
}
