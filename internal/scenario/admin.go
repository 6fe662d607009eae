package scenario

import (
	"context"
	"time"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
)

// Admin signs in and opens the admin dashboard.
type Admin struct {
	Credentials auth.Credentials
	Path        string
	// ReadyIndicator marks a rendered dashboard. When zero, the scenario
	// pauses for Settle instead.
	ReadyIndicator browser.Locator
	Settle         time.Duration
}

func (*Admin) Name() string        { return "admin" }
func (*Admin) Description() string { return "authenticated admin navigation" }

func (a *Admin) Run(ctx context.Context, env *Env) error {
	if err := env.Auth.Login(ctx, env.Page, a.Credentials); err != nil {
		return err
	}
	if err := env.Open(ctx, a.Path); err != nil {
		return err
	}
	if a.ReadyIndicator.IsZero() {
		if err := env.Pause(ctx, a.Settle); err != nil {
			return err
		}
	} else if _, err := env.WaitFor(ctx, "admin dashboard", a.ReadyIndicator); err != nil {
		return err
	}
	return env.Capture(ctx, LabelAdminDashboard)
}
