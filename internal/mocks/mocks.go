// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/uiprobe/internal/browser"
)

// -- Session Mock --

// MockSession mocks browser.Handle with testify expectations.
type MockSession struct {
	mock.Mock
}

var _ browser.Handle = (*MockSession)(nil)

func (m *MockSession) ID() string { return m.Called().String(0) }

func (m *MockSession) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockSession) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	return m.Called(ctx, loc, text).Error(0)
}

func (m *MockSession) Clear(ctx context.Context, loc browser.Locator) error {
	return m.Called(ctx, loc).Error(0)
}

func (m *MockSession) Click(ctx context.Context, loc browser.Locator) error {
	return m.Called(ctx, loc).Error(0)
}

func (m *MockSession) Present(ctx context.Context, loc browser.Locator) (bool, error) {
	args := m.Called(ctx, loc)
	return args.Bool(0), args.Error(1)
}

func (m *MockSession) Screenshot(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	var img []byte
	if v := args.Get(0); v != nil {
		img = v.([]byte)
	}
	return img, args.Error(1)
}

func (m *MockSession) Release(ctx context.Context) {
	m.Called(ctx)
}

// -- Fake Page --

// FakePage is a scriptable in-memory page. Elements become present according
// to Rules, which are re-evaluated on every probe, so tests can model pages
// that render after a delay or react to a click.
type FakePage struct {
	mu sync.Mutex

	id      string
	url     string
	typed   map[string]string
	present map[string]int // locator -> probes remaining before it appears; 0 means present
	calls   []string

	// OnClick runs after a successful click, with the page unlocked.
	OnClick func(p *FakePage, loc browser.Locator)
	// Fail makes the named operation ("navigate", "click", ...) return the error.
	Fail map[string]error
	// PanicOn makes the named operation panic.
	PanicOn string

	releases atomic.Int32
	shots    atomic.Int32
}

var _ browser.Handle = (*FakePage)(nil)

// NewFakePage returns an empty page.
func NewFakePage(id string) *FakePage {
	return &FakePage{
		id:      id,
		typed:   make(map[string]string),
		present: make(map[string]int),
		Fail:    make(map[string]error),
	}
}

// Show makes loc present immediately.
func (p *FakePage) Show(loc browser.Locator) { p.ShowAfter(loc, 0) }

// ShowAfter makes loc present once it has been probed n times.
func (p *FakePage) ShowAfter(loc browser.Locator, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.present[loc.String()] = n
}

// Hide removes loc from the page.
func (p *FakePage) Hide(loc browser.Locator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.present, loc.String())
}

// Typed returns what was last typed into loc.
func (p *FakePage) Typed(loc browser.Locator) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[loc.String()]
}

// URL returns the last navigated URL.
func (p *FakePage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Calls returns the recorded operations, in order.
func (p *FakePage) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}

// Releases counts Release calls.
func (p *FakePage) Releases() int { return int(p.releases.Load()) }

// Screenshots counts Screenshot calls.
func (p *FakePage) Screenshots() int { return int(p.shots.Load()) }

func (p *FakePage) record(op, detail string) error {
	if p.PanicOn == op {
		panic(fmt.Sprintf("fake page: %s %s", op, detail))
	}
	p.calls = append(p.calls, op+" "+detail)
	return p.Fail[op]
}

func (p *FakePage) ID() string { return p.id }

func (p *FakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("navigate", url); err != nil {
		return err
	}
	p.url = url
	return nil
}

func (p *FakePage) SendKeys(_ context.Context, loc browser.Locator, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("type", loc.String()); err != nil {
		return err
	}
	p.typed[loc.String()] += text
	return nil
}

func (p *FakePage) Clear(_ context.Context, loc browser.Locator) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("clear", loc.String()); err != nil {
		return err
	}
	p.typed[loc.String()] = ""
	return nil
}

func (p *FakePage) Click(_ context.Context, loc browser.Locator) error {
	hook, err := func() (func(*FakePage, browser.Locator), error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.OnClick, p.record("click", loc.String())
	}()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(p, loc)
	}
	return nil
}

func (p *FakePage) Present(ctx context.Context, loc browser.Locator) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("probe", loc.String()); err != nil {
		return false, err
	}
	remaining, ok := p.present[loc.String()]
	if !ok {
		return false, nil
	}
	if remaining > 0 {
		p.present[loc.String()] = remaining - 1
		return false, nil
	}
	return true, nil
}

func (p *FakePage) Screenshot(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("screenshot", ""); err != nil {
		return nil, err
	}
	p.shots.Add(1)
	return []byte("\x89PNG fake " + p.url), nil
}

func (p *FakePage) Release(context.Context) {
	p.releases.Add(1)
}

// -- Acquirer --

// FakeAcquirer hands out FakePages built by New, or fails with Err.
type FakeAcquirer struct {
	mu    sync.Mutex
	New   func(n int) *FakePage
	Err   error
	pages []*FakePage
}

// Lease returns the next page.
func (a *FakeAcquirer) Lease(ctx context.Context) (browser.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return nil, a.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", browser.ErrSessionAcquisition, err)
	}
	n := len(a.pages)
	var p *FakePage
	if a.New != nil {
		p = a.New(n)
	} else {
		p = NewFakePage(fmt.Sprintf("fake-%d", n))
	}
	a.pages = append(a.pages, p)
	return p, nil
}

// Pages returns every page handed out, in order.
func (a *FakeAcquirer) Pages() []*FakePage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*FakePage, len(a.pages))
	copy(out, a.pages)
	return out
}
