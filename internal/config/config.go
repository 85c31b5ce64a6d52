package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Guard     GuardConfig               `yaml:"guard"`
	Browser   BrowserConfig             `yaml:"browser"`
	Platforms map[string]PlatformConfig `yaml:"platforms"`
	Storage   StorageConfig             `yaml:"storage"`
	Logging   LoggingConfig             `yaml:"logging"`
}

type GuardConfig struct {
	MinRequestIntervalSeconds int      `yaml:"min_request_interval_seconds"`
	HumanDelayMinSeconds      int      `yaml:"human_delay_min_seconds"`
	HumanDelayMaxSeconds      int      `yaml:"human_delay_max_seconds"`
	ProbeTimeoutSeconds       int      `yaml:"probe_timeout_seconds"`
	BlockingSignatures        []string `yaml:"blocking_signatures"`
}

func (g GuardConfig) MinRequestInterval() time.Duration {
	return time.Duration(g.MinRequestIntervalSeconds) * time.Second
}

func (g GuardConfig) HumanDelayMin() time.Duration {
	return time.Duration(g.HumanDelayMinSeconds) * time.Second
}

func (g GuardConfig) HumanDelayMax() time.Duration {
	return time.Duration(g.HumanDelayMaxSeconds) * time.Second
}

func (g GuardConfig) ProbeTimeout() time.Duration {
	return time.Duration(g.ProbeTimeoutSeconds) * time.Second
}

type BrowserConfig struct {
	Headless          bool           `yaml:"headless"`
	UserAgentRotation bool           `yaml:"user_agent_rotation"`
	ProxyURL          string         `yaml:"proxy_url"`
	UserDataDir       string         `yaml:"user_data_dir"`
	Viewport          ViewportConfig `yaml:"viewport"`
	CookiePersistence bool           `yaml:"cookie_persistence"`
}

type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// PlatformConfig describes one target platform: its well-known URLs and any
// platform-specific block-page signatures merged on top of the guard's.
type PlatformConfig struct {
	URLs               map[string]string `yaml:"urls"` // login, dashboard, base
	BlockingSignatures []string          `yaml:"blocking_signatures"`
}

type StorageConfig struct {
	MongoDB MongoDBConfig `yaml:"mongodb"`
}

type MongoDBConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		config.Storage.MongoDB.URI = uri
	}
	if dbName := os.Getenv("MONGODB_DATABASE"); dbName != "" {
		config.Storage.MongoDB.Database = dbName
	}
	if proxy := os.Getenv("PROXY_URL"); proxy != "" {
		config.Browser.ProxyURL = proxy
	}

	config.applyDefaults()

	return config, nil
}

// applyDefaults fills unset fields. A YAML file cannot distinguish an
// explicit zero from an absent field, so a zero human-delay range is only
// reachable by constructing guard.Config directly (test setups do).
func (c *Config) applyDefaults() {
	if c.Guard.MinRequestIntervalSeconds <= 0 {
		c.Guard.MinRequestIntervalSeconds = 3
	}
	if c.Guard.HumanDelayMinSeconds <= 0 && c.Guard.HumanDelayMaxSeconds <= 0 {
		c.Guard.HumanDelayMinSeconds = 5
		c.Guard.HumanDelayMaxSeconds = 12
	}
	if c.Guard.ProbeTimeoutSeconds <= 0 {
		c.Guard.ProbeTimeoutSeconds = 10
	}
	if c.Storage.MongoDB.TimeoutSeconds <= 0 {
		c.Storage.MongoDB.TimeoutSeconds = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Platform returns the named platform section, if configured.
func (c *Config) Platform(name string) (PlatformConfig, bool) {
	p, ok := c.Platforms[name]
	return p, ok
}
