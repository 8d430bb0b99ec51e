package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"link-level-analyzer/internal/domtree"
)

const maxBodyBytes = 10 << 20

// HTTPCapturer fetches the page without running scripts.
type HTTPCapturer struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewHTTPCapturer(cfg Config, logger *slog.Logger) *HTTPCapturer {
	cfg.defaults()
	return &HTTPCapturer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (h *HTTPCapturer) Capture(ctx context.Context, pageURL string) (*Snapshot, error) {
	start := time.Now()

	body, finalURL, err := h.loadWebPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("capture: parse document: %w", err)
	}

	root, err := domtree.FromDocument(doc, finalURL)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	raw, err := domtree.Encode(root)
	if err != nil {
		return nil, fmt.Errorf("capture: encode tree: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()
	text := strings.TrimSpace(doc.Find("body").Text())

	return &Snapshot{
		RequestedURL: pageURL,
		FinalURL:     finalURL,
		Root:         root,
		RawTree:      raw,
		HTML:         string(body),
		Text:         text,
		Mode:         ModeHTTP,
		FetchTime:    time.Since(start),
	}, nil
}

// loadWebPage GETs the page, retrying transport errors and non-2xx answers
// with exponential backoff.
func (h *HTTPCapturer) loadWebPage(ctx context.Context, pageURL string) ([]byte, string, error) {
	logger := h.logger.With(slog.String("page_url", pageURL))
	logger.DebugContext(ctx, "Starting to load web page")

	backoff := h.cfg.InitialBackoff
	var lastErr error

	for i := 0; i < h.cfg.MaxRetries; i++ {
		attempt := i + 1
		logger.DebugContext(ctx, "Attempting to fetch page", slog.Int("attempt", attempt))

		body, finalURL, status, err := h.fetchOnce(ctx, pageURL)
		if err == nil && status >= 200 && status < 300 {
			logger.InfoContext(ctx, "Successfully fetched page",
				slog.Int("status_code", status),
				slog.Int("attempt", attempt),
				slog.Int("bytes", len(body)),
			)
			return body, finalURL, nil
		}

		if err == nil {
			lastErr = fmt.Errorf("capture: unexpected status %d for %s", status, pageURL)
		} else {
			lastErr = err
		}

		if i == h.cfg.MaxRetries-1 {
			break
		}

		logger.WarnContext(ctx, "Fetch attempt failed, retrying...",
			slog.Int("attempt", attempt),
			slog.Any("error", lastErr),
			slog.Duration("backoff_duration", backoff),
		)

		select {
		case <-ctx.Done():
			return nil, "", fmt.Errorf("capture: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	logger.ErrorContext(ctx, "Failed to fetch page after all attempts",
		slog.Int("max_retries", h.cfg.MaxRetries),
		slog.Any("last_error", lastErr),
	)
	return nil, "", lastErr
}

func (h *HTTPCapturer) fetchOnce(ctx context.Context, pageURL string) ([]byte, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", 0, fmt.Errorf("capture: new request: %w", err)
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("capture: do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", resp.StatusCode, fmt.Errorf("capture: read body: %w", err)
	}

	finalURL := pageURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return body, finalURL, resp.StatusCode, nil
}
