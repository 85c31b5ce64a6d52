package browser

import (
	"math/rand"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// applyStealth layers a few extra patches on top of the stealth library's
// injected script: consistent navigator identity, WebGL vendor strings, and
// a chrome runtime shim. These are glue around well-known techniques, not
// techniques of their own.
func (m *Manager) applyStealth(page *rod.Page) error {
	// Navigator identity: webdriver off, consistent platform/language set.
	_, err := page.EvalOnNewDocument(`() => {
        Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
        Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
        Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
        Object.defineProperty(navigator, 'vendor', { get: () => 'Google Inc.' });
        Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
        Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
    }`)
	if err != nil {
		return err
	}

	// WebGL vendor/renderer strings.
	_, err = page.EvalOnNewDocument(`() => {
        const getParameter = WebGLRenderingContext.prototype.getParameter;
        WebGLRenderingContext.prototype.getParameter = function(parameter) {
            if (parameter === 37445) {
                return 'Intel Inc.';
            }
            if (parameter === 37446) {
                return 'Intel Iris OpenGL Engine';
            }
            return getParameter.call(this, parameter);
        };
    }`)
	if err != nil {
		return err
	}

	// Plausible plugin list.
	_, err = page.EvalOnNewDocument(`() => {
        Object.defineProperty(navigator, 'plugins', {
            get: () => [
                { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
                { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: 'Portable Document Format' },
                { name: 'Native Client', filename: 'internal-nacl-plugin', description: 'Native Client Executable' }
            ]
        });
    }`)
	if err != nil {
		return err
	}

	// Permissions query consistency and chrome runtime shim.
	_, err = page.EvalOnNewDocument(`() => {
        const originalQuery = window.navigator.permissions.query;
        window.navigator.permissions.query = (parameters) => (
            parameters.name === 'notifications' ?
                Promise.resolve({ state: Notification.permission }) :
                originalQuery(parameters)
        );
        window.chrome = window.chrome || { runtime: {} };
    }`)
	return err
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func (m *Manager) rotateUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

var viewports = []struct{ Width, Height int }{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{1440, 900},
}

func (m *Manager) setRandomViewport(page *rod.Page) error {
	vp := viewports[rand.Intn(len(viewports))]
	return page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
	})
}
