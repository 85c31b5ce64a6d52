package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
guard:
  min_request_interval_seconds: 5
  human_delay_min_seconds: 2
  human_delay_max_seconds: 6
  probe_timeout_seconds: 15
  blocking_signatures:
    - captcha
    - unusual activity
browser:
  headless: true
  user_agent_rotation: true
  cookie_persistence: true
  viewport:
    width: 1366
    height: 768
platforms:
  exchange:
    urls:
      login: https://exchange.example.com/login
      dashboard: https://exchange.example.com/dashboard
    blocking_signatures:
      - verify you are human
storage:
  mongodb:
    uri: mongodb://localhost:27017
    database: stealth
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Guard.MinRequestInterval())
	assert.Equal(t, 2*time.Second, cfg.Guard.HumanDelayMin())
	assert.Equal(t, 6*time.Second, cfg.Guard.HumanDelayMax())
	assert.Equal(t, 15*time.Second, cfg.Guard.ProbeTimeout())
	assert.Equal(t, []string{"captcha", "unusual activity"}, cfg.Guard.BlockingSignatures)

	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Browser.CookiePersistence)
	assert.Equal(t, 1366, cfg.Browser.Viewport.Width)

	platform, ok := cfg.Platform("exchange")
	require.True(t, ok)
	assert.Equal(t, "https://exchange.example.com/login", platform.URLs["login"])
	assert.Equal(t, []string{"verify you are human"}, platform.BlockingSignatures)

	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
browser:
  headless: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Guard.MinRequestInterval())
	assert.Equal(t, 5*time.Second, cfg.Guard.HumanDelayMin())
	assert.Equal(t, 12*time.Second, cfg.Guard.HumanDelayMax())
	assert.Equal(t, 10*time.Second, cfg.Guard.ProbeTimeout())
	assert.Nil(t, cfg.Guard.BlockingSignatures, "signature defaults live in the guard package")
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 10, cfg.Storage.MongoDB.TimeoutSeconds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  mongodb:
    uri: mongodb://from-file:27017
    database: from_file
`)

	t.Setenv("MONGODB_URI", "mongodb://from-env:27017")
	t.Setenv("MONGODB_DATABASE", "from_env")
	t.Setenv("PROXY_URL", "socks5://127.0.0.1:9050")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://from-env:27017", cfg.Storage.MongoDB.URI)
	assert.Equal(t, "from_env", cfg.Storage.MongoDB.Database)
	assert.Equal(t, "socks5://127.0.0.1:9050", cfg.Browser.ProxyURL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "guard: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}
