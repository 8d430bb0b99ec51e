// Package capture turns a live URL into a serialized DOM snapshot, either
// through a headless Chrome (go-rod) or a plain HTTP GET.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"link-level-analyzer/internal/domtree"
)

type Mode string

const (
	ModeBrowser Mode = "browser"
	ModeHTTP    Mode = "http"
	ModeAuto    Mode = "auto"
)

var ErrUnsupportedMode = errors.New("capture: unsupported mode")

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Snapshot is everything captured for one page.
type Snapshot struct {
	RequestedURL string
	FinalURL     string
	Root         domtree.Node
	RawTree      []byte // snapshot JSON, as written to dom_snapshot.json
	HTML         string
	Text         string
	Screenshot   []byte // PNG, browser mode only
	Mode         Mode
	FetchTime    time.Duration
}

// BaseURL is the URL relative links on the page resolve against.
func (s *Snapshot) BaseURL() string {
	if s.FinalURL != "" {
		return s.FinalURL
	}
	return s.RequestedURL
}

type Capturer interface {
	Capture(ctx context.Context, pageURL string) (*Snapshot, error)
}

type Config struct {
	Mode Mode
	// RemoteURL is the DevTools WebSocket URL of a running Chrome. Empty
	// launches a local one.
	RemoteURL      string
	ChromePath     string
	Headless       bool
	UserAgent      string
	Timeout        time.Duration
	IdleTimeout    time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	Screenshot     bool
}

func (c *Config) defaults() {
	if c.Mode == "" {
		c.Mode = ModeBrowser
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 1 * time.Second
	}
}

// New returns the capturer for cfg.Mode.
func New(cfg Config, logger *slog.Logger) (Capturer, error) {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode {
	case ModeBrowser:
		return NewBrowserCapturer(cfg, logger), nil
	case ModeHTTP:
		return NewHTTPCapturer(cfg, logger), nil
	case ModeAuto:
		return &AutoCapturer{
			HTTP:    NewHTTPCapturer(cfg, logger),
			Browser: NewBrowserCapturer(cfg, logger),
			logger:  logger,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, cfg.Mode)
	}
}

// LoadSnapshotFile reads a dom_snapshot.json written by an earlier run.
func LoadSnapshotFile(path, pageURL string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: read snapshot: %w", err)
	}
	root, err := domtree.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	return &Snapshot{
		RequestedURL: pageURL,
		Root:         root,
		RawTree:      data,
	}, nil
}

// FileCapturer replays a saved snapshot instead of visiting the page. The
// requested URL only serves as the base for relative links.
type FileCapturer struct {
	Path string
}

func (f FileCapturer) Capture(_ context.Context, pageURL string) (*Snapshot, error) {
	return LoadSnapshotFile(f.Path, pageURL)
}

// AutoCapturer tries a plain GET first and falls back to the browser when
// the page looks client-rendered or the GET fails. A client-rendered GET
// result is still returned when the browser cannot load the page.
type AutoCapturer struct {
	HTTP    Capturer
	Browser Capturer
	logger  *slog.Logger
}

func (a *AutoCapturer) Capture(ctx context.Context, pageURL string) (*Snapshot, error) {
	snap, err := a.HTTP.Capture(ctx, pageURL)
	if err == nil && IsSufficient([]byte(snap.HTML)) {
		return snap, nil
	}

	if err != nil {
		a.logger.WarnContext(ctx, "HTTP capture failed, escalating to browser", slog.String("url", pageURL), slog.Any("error", err))
	} else {
		a.logger.InfoContext(ctx, "HTTP capture looks client-rendered, escalating to browser", slog.String("url", pageURL))
	}

	bsnap, berr := a.Browser.Capture(ctx, pageURL)
	if berr != nil {
		if err != nil {
			return nil, errors.Join(err, berr)
		}
		a.logger.WarnContext(ctx, "Browser capture failed, keeping HTTP snapshot", slog.String("url", pageURL), slog.Any("error", berr))
		return snap, nil
	}
	return bsnap, nil
}
