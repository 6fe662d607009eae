// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiprobe/internal/config"
)

// Manager launches one fresh browser per Acquire and tracks the sessions it
// handed out so Shutdown can release any left behind.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a browser manager. No process is started until Acquire.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	m := &Manager{
		cfg:      cfg,
		logger:   logger.Named("browser_manager"),
		sessions: make(map[string]*Session),
	}
	m.logger.Debug("Browser manager created.", zap.Bool("headless", cfg.Headless))
	return m
}

// Acquire starts a browser, opens a tab and, for headful runs, maximizes the
// window. The caller owns the returned session and must Release it.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionAcquisition, err)
	}

	id := uuid.New().String()
	logger := m.logger.With(zap.String("session_id", id))
	logger.Info("Launching browser.")

	// The browser outlives the acquiring call, so it must not inherit ctx's
	// cancellation. Release is the only thing that ends it.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(Detach(ctx), DefaultAllocatorOptions(m.cfg)...)

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(logger.Sugar().Infof),
		chromedp.WithErrorf(logger.Sugar().Errorf),
	}
	if m.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(logger.Sugar().Debugf))
	}
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, ctxOpts...)

	// The first Run starts the process and must use the tab context itself;
	// a derived context with a deadline would tear the browser down when it
	// expires.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	var err error
	select {
	case err = <-started:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		cancelTab()
		cancelAlloc()
		logger.Error("Failed to start browser.", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSessionAcquisition, err)
	}

	s := &Session{
		id:          id,
		cfg:         m.cfg,
		logger:      logger.Named("session"),
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}
	s.onRelease = func() { m.forget(id) }

	if !m.cfg.Headless {
		if err := s.maximize(ctx); err != nil {
			logger.Warn("Could not maximize browser window.", zap.Error(err))
		}
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.Info("Browser session acquired.")
	return s, nil
}

// Lease is Acquire returning the Handle interface.
func (m *Manager) Lease(ctx context.Context) (Handle, error) {
	s, err := m.Acquire(ctx)
	if err != nil {
		// Avoid returning a typed nil inside the interface.
		return nil, err
	}
	return s, nil
}

// Active returns the number of sessions not yet released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown releases every session that is still open.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	if len(open) > 0 {
		m.logger.Warn("Releasing sessions left open at shutdown.", zap.Int("count", len(open)))
	}
	for _, s := range open {
		s.Release(ctx)
	}
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// maximize sets the window containing the tab to the maximized state.
func (s *Session) maximize(ctx context.Context) error {
	return s.run(ctx, s.cfg.ActionTimeout, chromedp.ActionFunc(func(c context.Context) error {
		windowID, _, err := cdpbrowser.GetWindowForTarget().Do(c)
		if err != nil {
			return fmt.Errorf("get window for target: %w", err)
		}
		return cdpbrowser.SetWindowBounds(windowID, &cdpbrowser.Bounds{
			WindowState: cdpbrowser.WindowStateMaximized,
		}).Do(c)
	}))
}

// allocatorFlag is one command line switch for the browser process.
type allocatorFlag struct {
	Name  string
	Value interface{}
}

// allocatorFlags lists the switches layered on top of chromedp's defaults.
func allocatorFlags(cfg config.BrowserConfig) []allocatorFlag {
	flags := []allocatorFlag{
		{"headless", cfg.Headless},
		{"hide-scrollbars", cfg.Headless},
		{"mute-audio", true},
		{"disable-extensions", true},
		{"no-first-run", true},
		{"no-default-browser-check", true},
	}
	if !cfg.Headless {
		flags = append(flags, allocatorFlag{"start-maximized", true})
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		flags = append(flags, allocatorFlag{"window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)})
	}
	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			allocatorFlag{"ignore-certificate-errors", true},
			allocatorFlag{"allow-insecure-localhost", true},
		)
	}
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(strings.TrimSpace(arg), "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			flags = append(flags, allocatorFlag{name, value})
		} else {
			flags = append(flags, allocatorFlag{name, true})
		}
	}
	return flags
}

// DefaultAllocatorOptions builds the exec allocator options for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+16)
	opts = append(opts, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range allocatorFlags(cfg) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	return opts
}
