// Package config loads the analyzer configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"link-level-analyzer/internal/analyzer"
	"link-level-analyzer/internal/capture"
)

type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Ranking RankingConfig `yaml:"ranking"`
	Verify  VerifyConfig  `yaml:"verify"`
	Output  OutputConfig  `yaml:"output"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type CaptureConfig struct {
	Mode        string        `yaml:"mode"` // browser | http | auto
	RemoteURL   string        `yaml:"remote_url"`
	ChromePath  string        `yaml:"chrome_path"`
	Headless    *bool         `yaml:"headless"`
	UserAgent   string        `yaml:"user_agent"`
	Timeout     time.Duration `yaml:"timeout"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Screenshot  *bool         `yaml:"screenshot"`
}

type RankingConfig struct {
	SocialPatterns []string `yaml:"social_patterns"`
	Concurrency    int      `yaml:"concurrency"`
}

type VerifyConfig struct {
	Enabled    bool `yaml:"enabled"`
	Workers    int  `yaml:"workers"`
	MaxRetries int  `yaml:"max_retries"`
}

type OutputConfig struct {
	Dir          string `yaml:"dir"`
	WriteReports *bool  `yaml:"write_reports"`
}

type StoreConfig struct {
	Path string `yaml:"path"` // empty disables run history
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML file and fills in defaults for everything left out.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Capture.Mode == "" {
		c.Capture.Mode = string(capture.ModeBrowser)
	}
	if c.Capture.Headless == nil {
		c.Capture.Headless = boolPtr(true)
	}
	if c.Capture.Screenshot == nil {
		c.Capture.Screenshot = boolPtr(true)
	}
	if c.Capture.Timeout <= 0 {
		c.Capture.Timeout = 30 * time.Second
	}
	if c.Capture.IdleTimeout <= 0 {
		c.Capture.IdleTimeout = 5 * time.Second
	}
	if c.Capture.MaxRetries <= 0 {
		c.Capture.MaxRetries = 3
	}
	if len(c.Ranking.SocialPatterns) == 0 {
		c.Ranking.SocialPatterns = analyzer.DefaultSocialPatterns
	}
	if c.Verify.Workers <= 0 {
		c.Verify.Workers = 10
	}
	if c.Verify.MaxRetries <= 0 {
		c.Verify.MaxRetries = 3
	}
	if c.Output.WriteReports == nil {
		c.Output.WriteReports = boolPtr(true)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) validate() error {
	switch capture.Mode(c.Capture.Mode) {
	case capture.ModeBrowser, capture.ModeHTTP, capture.ModeAuto:
	default:
		return fmt.Errorf("config: capture.mode %q: %w", c.Capture.Mode, capture.ErrUnsupportedMode)
	}
	return nil
}

// CaptureSettings converts the capture section into the capture package's config.
func (c *Config) CaptureSettings() capture.Config {
	return capture.Config{
		Mode:        capture.Mode(c.Capture.Mode),
		RemoteURL:   c.Capture.RemoteURL,
		ChromePath:  c.Capture.ChromePath,
		Headless:    *c.Capture.Headless,
		UserAgent:   c.Capture.UserAgent,
		Timeout:     c.Capture.Timeout,
		IdleTimeout: c.Capture.IdleTimeout,
		MaxRetries:  c.Capture.MaxRetries,
		Screenshot:  *c.Capture.Screenshot,
	}
}

func (c *Config) AnalyzerOptions() analyzer.Options {
	rank := []analyzer.RankOption{analyzer.WithSocialPatterns(c.Ranking.SocialPatterns)}
	if c.Ranking.Concurrency > 0 {
		rank = append(rank, analyzer.WithConcurrency(c.Ranking.Concurrency))
	}
	return analyzer.Options{
		Rank:   rank,
		Verify: c.Verify.Enabled,
		VerifyOptions: analyzer.VerifyOptions{
			Workers:    c.Verify.Workers,
			MaxRetries: c.Verify.MaxRetries,
		},
	}
}

func boolPtr(b bool) *bool { return &b }
