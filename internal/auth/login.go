// Package auth drives the sign-in form of the application under test.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/browser"
	"github.com/xkilldash9x/uiprobe/internal/config"
	"github.com/xkilldash9x/uiprobe/internal/wait"
)

// Credentials is an identifier/secret pair used for one sign-in attempt.
type Credentials struct {
	Identifier string
	Secret     string
}

// FromConfig converts configured credentials.
func FromConfig(c config.CredentialsConfig) Credentials {
	return Credentials{Identifier: c.Identifier, Secret: c.Secret}
}

// Validate reports whether both halves are present.
func (c Credentials) Validate() error {
	if c.Identifier == "" || c.Secret == "" {
		return errors.New("credentials require both an identifier and a secret")
	}
	return nil
}

// String masks the secret so credentials are safe to log.
func (c Credentials) String() string {
	return fmt.Sprintf("%s:****", c.Identifier)
}

// Locators names the sign-in form elements and the element that appears once
// the user is signed in.
type Locators struct {
	Identifier browser.Locator
	Secret     browser.Locator
	Submit     browser.Locator
	Success    browser.Locator
}

// DefaultLocators matches the stock sign-in form.
func DefaultLocators() Locators {
	return Locators{
		Identifier: browser.ByName("email"),
		Secret:     browser.ByName("password"),
		Submit:     browser.ByPartialText("button", "Iniciar sesión"),
		Success:    browser.ByTag("header"),
	}
}

// Flow signs in through the application's sign-in page.
type Flow struct {
	BaseURL      string
	SignInPath   string
	Locators     Locators
	Timeout      time.Duration
	PollInterval time.Duration

	logger *zap.Logger
}

// NewFlow builds a Flow from configuration.
func NewFlow(target config.TargetConfig, waitCfg config.WaitConfig, logger *zap.Logger) (*Flow, error) {
	var (
		locs Locators
		err  error
	)
	parse := func(field, raw string, dst *browser.Locator) {
		if err != nil {
			return
		}
		if *dst, err = browser.ParseLocator(raw); err != nil {
			err = fmt.Errorf("target.locators.%s: %w", field, err)
		}
	}
	parse("identifier", target.Locators.Identifier, &locs.Identifier)
	parse("secret", target.Locators.Secret, &locs.Secret)
	parse("submit", target.Locators.Submit, &locs.Submit)
	parse("success", target.Locators.Success, &locs.Success)
	if err != nil {
		return nil, err
	}

	return &Flow{
		BaseURL:      target.BaseURL,
		SignInPath:   target.SignInPath,
		Locators:     locs,
		Timeout:      waitCfg.Timeout,
		PollInterval: waitCfg.PollInterval,
		logger:       logger.Named("auth"),
	}, nil
}

func (f *Flow) log() *zap.Logger {
	if f.logger == nil {
		return zap.NewNop()
	}
	return f.logger
}

// SignInURL joins the base URL and the sign-in path.
func (f *Flow) SignInURL() (string, error) {
	path := f.SignInPath
	if path == "" {
		path = "/signin"
	}
	u, err := url.JoinPath(f.BaseURL, path)
	if err != nil {
		return "", fmt.Errorf("build sign-in URL from %q: %w", f.BaseURL, err)
	}
	return u, nil
}

// Open navigates page to the sign-in form.
func (f *Flow) Open(ctx context.Context, page browser.Page) error {
	u, err := f.SignInURL()
	if err != nil {
		return err
	}
	return page.Navigate(ctx, u)
}

// Submit fills the form with creds and activates the submit control. It does
// not wait for the outcome.
func (f *Flow) Submit(ctx context.Context, page browser.Page, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	f.log().Debug("Submitting sign-in form.", zap.Stringer("credentials", creds))

	if err := page.SendKeys(ctx, f.Locators.Identifier, creds.Identifier); err != nil {
		return fmt.Errorf("enter identifier: %w", err)
	}
	if err := page.SendKeys(ctx, f.Locators.Secret, creds.Secret); err != nil {
		return fmt.Errorf("enter secret: %w", err)
	}
	if err := page.Click(ctx, f.Locators.Submit); err != nil {
		return fmt.Errorf("submit sign-in form: %w", err)
	}
	return nil
}

// ClearFields empties the identifier and secret inputs.
func (f *Flow) ClearFields(ctx context.Context, page browser.Page) error {
	if err := page.Clear(ctx, f.Locators.Identifier); err != nil {
		return fmt.Errorf("clear identifier: %w", err)
	}
	if err := page.Clear(ctx, f.Locators.Secret); err != nil {
		return fmt.Errorf("clear secret: %w", err)
	}
	return nil
}

// SignedIn reports whether the success indicator is on the page right now.
func (f *Flow) SignedIn(ctx context.Context, page browser.Page) (bool, error) {
	return page.Present(ctx, f.Locators.Success)
}

// AwaitSuccess blocks until the success indicator appears or the timeout
// passes, in which case the error matches wait.ErrTimeout.
func (f *Flow) AwaitSuccess(ctx context.Context, page browser.Page) error {
	out, err := wait.Until(ctx, wait.Condition{
		Description: f.Locators.Success.String(),
		Check: func(ctx context.Context) (bool, error) {
			return f.SignedIn(ctx, page)
		},
		Timeout:  f.Timeout,
		Interval: f.PollInterval,
	})
	if err != nil {
		return fmt.Errorf("sign-in did not complete: %w", err)
	}
	f.log().Info("Signed in.", zap.Int("polls", out.Polls), zap.Duration("elapsed", out.Elapsed))
	return nil
}

// Login opens the sign-in page, submits creds and waits until signed in.
func (f *Flow) Login(ctx context.Context, page browser.Page, creds Credentials) error {
	if err := f.Open(ctx, page); err != nil {
		return err
	}
	if err := f.Submit(ctx, page, creds); err != nil {
		return err
	}
	return f.AwaitSuccess(ctx, page)
}
