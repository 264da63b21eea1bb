// Package browser owns the Chrome process lifecycle and exposes pages that
// implement the automation surface the executors drive.
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/veracity-cli/api/schemas"
	"github.com/xkilldash9x/veracity-cli/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager launches a single Chrome instance and hands out isolated tabs.
// Launch is deferred until the first page is requested.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu    sync.Mutex
	pages []*Page

	initOnce sync.Once
	initErr  error
}

// NewManager creates a browser manager. No browser process is started here.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
	}
}

// initialize builds the exec allocator that owns the Chrome process.
func (m *Manager) initialize() error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser",
			zap.Bool("headless", m.cfg.Headless),
			zap.Int("viewport_width", m.cfg.ViewportWidth),
			zap.Int("viewport_height", m.cfg.ViewportHeight))

		// The allocator lives on the background context so that a cancelled
		// run context cannot tear the process down mid-teardown.
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(context.Background(), allocatorOptions(m.cfg)...)
	})
	return m.initErr
}

// allocatorOptions maps the browser configuration onto Chrome launch flags.
// The explicit defaults keep launches stable in containers.
func allocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.IgnoreCertErrors)
	}
	for _, arg := range cfg.Args {
		name := strings.TrimLeft(arg, "-")
		// key=value flags carry their value through; bare flags are booleans.
		if key, value, found := strings.Cut(name, "="); found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// NewPage opens a fresh tab and prepares it for automation.
func (m *Manager) NewPage(ctx context.Context) (schemas.Page, error) {
	if err := m.initialize(); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)

	page, err := newPage(ctx, tabCtx, tabCancel, m.cfg, m.logger)
	if err != nil {
		tabCancel()
		return nil, fmt.Errorf("opening browser page: %w", err)
	}

	m.mu.Lock()
	m.pages = append(m.pages, page)
	m.mu.Unlock()

	m.logger.Debug("Browser page opened")
	return page, nil
}

// Shutdown closes all pages and terminates the browser process, waiting up
// to the grace period for Chrome to exit cleanly.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	pages := m.pages
	m.pages = nil
	m.mu.Unlock()

	for _, p := range pages {
		if err := p.Close(); err != nil {
			m.logger.Warn("Page close failed during shutdown", zap.Error(err))
		}
	}

	if m.allocCtx == nil {
		return nil
	}

	m.logger.Info("Shutting down browser")
	done := make(chan error, 1)
	go func() {
		// chromedp.Cancel blocks until the browser process exits.
		done <- chromedp.Cancel(m.allocCtx)
	}()

	graceCtx, cancel := context.WithTimeout(ctx, shutdownGracePeriod)
	defer cancel()

	select {
	case err := <-done:
		m.allocCancel()
		if err != nil && err != context.Canceled {
			return fmt.Errorf("browser shutdown: %w", err)
		}
		return nil
	case <-graceCtx.Done():
		m.allocCancel()
		m.logger.Warn("Browser shutdown grace period elapsed, killing process")
		return nil
	}
}
