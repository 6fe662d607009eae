package browser

import "context"

// Page is the set of operations scenarios perform against the current page.
// Every element lookup goes through a Locator.
type Page interface {
	Navigate(ctx context.Context, url string) error
	SendKeys(ctx context.Context, loc Locator, text string) error
	Clear(ctx context.Context, loc Locator) error
	Click(ctx context.Context, loc Locator) error
	// Present performs a single, non-blocking lookup.
	Present(ctx context.Context, loc Locator) (bool, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Handle is a Page owned by exactly one scenario. Release must be safe to
// call more than once and must never fail.
type Handle interface {
	Page
	ID() string
	Release(ctx context.Context)
}
