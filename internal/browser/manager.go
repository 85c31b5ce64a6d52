package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"stealth-automation/internal/config"
	"stealth-automation/pkg/logger"
)

// Manager owns the browser process for one automation session. Fingerprint
// evasion is delegated to the stealth library plus the patches in
// stealth.go; the Manager only wires them in.
type Manager struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	config   *config.BrowserConfig
	logger   logger.Logger
}

func NewManager(cfg *config.BrowserConfig, log logger.Logger) (*Manager, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Leakless(false).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.UserDataDir != "" {
		l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.ProxyURL != "" {
		l.Proxy(cfg.ProxyURL)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &Manager{
		browser:  b,
		launcher: l,
		config:   cfg,
		logger:   log,
	}, nil
}

// NewPage opens a fresh page with all stealth patches applied.
func (m *Manager) NewPage() (*rod.Page, error) {
	page, err := m.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		return nil, fmt.Errorf("failed to inject stealth script: %w", err)
	}
	if err := m.applyStealth(page); err != nil {
		return nil, fmt.Errorf("failed to apply stealth patches: %w", err)
	}

	if m.config.Viewport.Width > 0 && m.config.Viewport.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             m.config.Viewport.Width,
			Height:            m.config.Viewport.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	} else if err := m.setRandomViewport(page); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if m.config.UserAgentRotation {
		ua := m.rotateUserAgent()
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
		m.logger.Debug("rotated user agent", "user_agent", ua)
	}

	return page, nil
}

func (m *Manager) Close() error {
	return m.browser.Close()
}
