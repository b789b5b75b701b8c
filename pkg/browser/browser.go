package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const stabilizeWindow = 300 * time.Millisecond

// Manager handles the Chrome browser lifecycle and tracks the active tab.
type Manager struct {
	mu       sync.Mutex
	browser  *rod.Browser
	active   *rod.Page
	headless bool
	maxWidth int
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithHeadless sets headless mode (default false).
func WithHeadless(h bool) Option {
	return func(m *Manager) { m.headless = h }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithScreenshotMaxWidth caps screenshot width in pixels; wider captures
// are downscaled before encoding. Zero disables scaling.
func WithScreenshotMaxWidth(w int) Option {
	return func(m *Manager) { m.maxWidth = w }
}

// New creates a Manager with options.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start launches a Chrome browser.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return fmt.Errorf("browser already running")
	}

	l := launcher.New().
		Headless(m.headless).
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check")

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch Chrome: %w", err)
	}

	m.logger.Info("Chrome launched", "cdp", controlURL, "headless", m.headless)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to Chrome: %w", err)
	}

	m.browser = b
	return nil
}

// Stop closes the Chrome browser.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil
	}

	err := m.browser.Close()
	m.browser = nil
	m.active = nil
	return err
}

// Open creates a new tab for the URL and makes it the active tab.
func (m *Manager) Open(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return fmt.Errorf("browser not running")
	}

	page, err := m.browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	if err := page.WaitStable(stabilizeWindow); err != nil {
		m.logger.Warn("page did not stabilize", "url", url, "error", err)
	}
	if _, err := page.Activate(); err != nil {
		m.logger.Warn("activate tab", "error", err)
	}

	m.active = page
	return nil
}

// Active reports whether there is a tab to act on.
func (m *Manager) Active(ctx context.Context) error {
	_, err := m.page()
	return err
}

// Status returns current browser status.
func (m *Manager) Status() *StatusInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return &StatusInfo{Running: false}
	}

	pages, _ := m.browser.Pages()
	info := &StatusInfo{
		Running: true,
		Tabs:    len(pages),
	}
	if m.active != nil {
		if pageInfo, err := m.active.Info(); err == nil {
			info.URL = pageInfo.URL
		}
	}
	return info
}

// StatusInfo describes the running browser.
type StatusInfo struct {
	Running bool   `json:"running"`
	Tabs    int    `json:"tabs"`
	URL     string `json:"url,omitempty"`
}

// Close shuts down the browser if running.
func (m *Manager) Close() error {
	return m.Stop(context.Background())
}

// page returns the active tab, falling back to the first open page.
func (m *Manager) page() (*rod.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser == nil {
		return nil, fmt.Errorf("no active tab")
	}
	if m.active != nil {
		return m.active, nil
	}

	pages, err := m.browser.Pages()
	if err != nil || len(pages) == 0 {
		return nil, fmt.Errorf("no active tab")
	}
	m.active = pages[0]
	return m.active, nil
}
