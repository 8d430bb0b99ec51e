package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"link-level-analyzer/internal/analyzer"
	"link-level-analyzer/internal/capture"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Capture.Mode != "browser" || !*cfg.Capture.Headless || cfg.Capture.Timeout != 30*time.Second {
		t.Errorf("Capture = %+v", cfg.Capture)
	}
	if !reflect.DeepEqual(cfg.Ranking.SocialPatterns, analyzer.DefaultSocialPatterns) {
		t.Errorf("SocialPatterns = %v", cfg.Ranking.SocialPatterns)
	}
	if cfg.Verify.Enabled || cfg.Verify.Workers != 10 {
		t.Errorf("Verify = %+v", cfg.Verify)
	}
	if !*cfg.Output.WriteReports || cfg.Server.Addr != ":8080" || cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Store.Path != "" {
		t.Errorf("Store.Path = %q, want disabled", cfg.Store.Path)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
capture:
  mode: auto
  headless: false
  timeout: 45s
  remote_url: ws://127.0.0.1:9222/devtools/browser/abc
ranking:
  social_patterns: ["share.example.com"]
  concurrency: 2
verify:
  enabled: true
  workers: 4
store:
  path: runs.db
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	settings := cfg.CaptureSettings()
	want := capture.Config{
		Mode:        capture.ModeAuto,
		RemoteURL:   "ws://127.0.0.1:9222/devtools/browser/abc",
		Headless:    false,
		Timeout:     45 * time.Second,
		IdleTimeout: 5 * time.Second,
		MaxRetries:  3,
		Screenshot:  true,
	}
	if !reflect.DeepEqual(settings, want) {
		t.Errorf("CaptureSettings() = %+v, want %+v", settings, want)
	}

	opts := cfg.AnalyzerOptions()
	if !opts.Verify || opts.VerifyOptions.Workers != 4 || opts.VerifyOptions.MaxRetries != 3 {
		t.Errorf("AnalyzerOptions() = %+v", opts)
	}
	if len(opts.Rank) != 2 {
		t.Errorf("len(Rank) = %d, want 2", len(opts.Rank))
	}
	if cfg.Store.Path != "runs.db" || cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "Missing File",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
			wantErr: os.ErrNotExist,
		},
		{
			name: "Bad YAML",
			path: func(t *testing.T) string { return writeConfig(t, "capture: [unclosed") },
		},
		{
			name:    "Unknown Mode",
			path:    func(t *testing.T) string { return writeConfig(t, "capture:\n  mode: pigeon\n") },
			wantErr: capture.ErrUnsupportedMode,
		},
		{
			name: "Bad Duration",
			path: func(t *testing.T) string { return writeConfig(t, "capture:\n  timeout: soon\n") },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.path(t))
			if err == nil {
				t.Fatal("Load() expected an error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
