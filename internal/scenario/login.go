package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/uiprobe/internal/auth"
	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/wait"
)

// Evidence labels. Each capture point writes <label>.png.
const (
	LabelLoginRejected  = "login_incorrecto"
	LabelLoginAccepted  = "login_correcto"
	LabelAdminDashboard = "dashboard_admin"
	LabelElements       = "espera_6_elementos"
)

// Login submits invalid credentials, then valid ones, and expects to end up
// signed in.
type Login struct {
	Invalid auth.Credentials
	Valid   auth.Credentials
	// RejectionIndicator is the error message the form shows for bad
	// credentials. When zero, the scenario pauses for Settle instead.
	RejectionIndicator browser.Locator
	// Settle bounds how long to look for the rejection.
	Settle time.Duration
	// AssertRejected fails the scenario if the invalid attempt signs in.
	AssertRejected bool
}

func (*Login) Name() string        { return "login" }
func (*Login) Description() string { return "invalid then valid sign-in" }

func (l *Login) Run(ctx context.Context, env *Env) error {
	if err := env.Auth.Open(ctx, env.Page); err != nil {
		return err
	}
	if err := env.Auth.Submit(ctx, env.Page, l.Invalid); err != nil {
		return fmt.Errorf("invalid attempt: %w", err)
	}
	if err := l.settle(ctx, env); err != nil {
		return err
	}
	if l.AssertRejected {
		signedIn, err := env.Auth.SignedIn(ctx, env.Page)
		if err != nil {
			return fmt.Errorf("check sign-in state: %w", err)
		}
		if signedIn {
			return fmt.Errorf("%w: %s", ErrUnexpectedAuthentication, l.Invalid)
		}
	}
	if err := env.Capture(ctx, LabelLoginRejected); err != nil {
		return err
	}

	if err := env.Auth.ClearFields(ctx, env.Page); err != nil {
		return err
	}
	if err := env.Auth.Submit(ctx, env.Page, l.Valid); err != nil {
		return fmt.Errorf("valid attempt: %w", err)
	}
	if _, err := env.WaitFor(ctx, "signed in", env.Auth.Locators.Success); err != nil {
		return fmt.Errorf("valid attempt: %w", err)
	}
	return env.Capture(ctx, LabelLoginAccepted)
}

// settle gives the form time to react to the invalid attempt. Not seeing the
// rejection message is noted but does not fail the scenario.
func (l *Login) settle(ctx context.Context, env *Env) error {
	if l.RejectionIndicator.IsZero() {
		return env.Pause(ctx, l.Settle)
	}
	_, err := env.WaitForWithin(ctx, "rejection message", l.RejectionIndicator, l.Settle)
	if errors.Is(err, wait.ErrTimeout) {
		env.Note(fmt.Sprintf("rejection message %s not observed within %s", l.RejectionIndicator, l.Settle))
		return nil
	}
	return err
}
