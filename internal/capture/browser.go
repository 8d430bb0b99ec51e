package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"link-level-analyzer/internal/domtree"
)

// serializeScript walks document.documentElement and returns the tree as a
// JSON string in the shape domtree.Decode reads.
const serializeScript = `() => {
	function serializeNode(node) {
		if (!node) return null;
		const out = { nodeType: node.nodeType };
		if (node.nodeType === Node.ELEMENT_NODE) {
			out.tagName = node.tagName;
			out.attributes = {};
			for (const attr of node.attributes) {
				out.attributes[attr.name] = attr.value;
			}
			const style = window.getComputedStyle(node);
			if (style.display !== 'none' && style.visibility !== 'hidden') {
				out.displayedText = node.innerText || '';
			}
			if (node.tagName === 'A') {
				out.linkText = node.textContent || '';
				out.linkHref = node.href || '';
			}
			try {
				const before = window.getComputedStyle(node, '::before').content;
				const after = window.getComputedStyle(node, '::after').content;
				if (before && before !== 'none') out.beforeContent = before;
				if (after && after !== 'none') out.afterContent = after;
			} catch (e) {}
		} else if (node.nodeType === Node.TEXT_NODE) {
			out.textContent = node.textContent || '';
		} else if (node.nodeType === Node.COMMENT_NODE) {
			out.comment = node.textContent || '';
		}
		if (node.childNodes.length > 0) {
			out.children = [];
			for (const child of node.childNodes) {
				const c = serializeNode(child);
				if (c) out.children.push(c);
			}
		}
		return out;
	}
	return JSON.stringify(serializeNode(document.documentElement));
}`

const pageTextScript = `() => document.body ? document.body.innerText : ''`

// BrowserCapturer renders the page in Chrome with stealth patches applied.
// Each Capture gets its own browser so runs do not share cookies or state.
type BrowserCapturer struct {
	cfg    Config
	logger *slog.Logger
}

func NewBrowserCapturer(cfg Config, logger *slog.Logger) *BrowserCapturer {
	cfg.defaults()
	return &BrowserCapturer{cfg: cfg, logger: logger}
}

func (b *BrowserCapturer) Capture(ctx context.Context, pageURL string) (*Snapshot, error) {
	logger := b.logger.With(slog.String("page_url", pageURL))
	start := time.Now()

	browser, release, err := b.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("capture: create tab: %w", err)
	}
	defer page.Close()

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
		logger.WarnContext(ctx, "Could not override user agent", slog.Any("error", err))
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	p := page.Context(navCtx)

	logger.InfoContext(ctx, "Navigating")
	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("capture: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		logger.WarnContext(ctx, "Wait for load timed out", slog.Any("error", err))
	}
	if err := p.WaitIdle(b.cfg.IdleTimeout); err != nil {
		logger.DebugContext(ctx, "Page did not go idle", slog.Any("error", err))
	}

	res, err := p.Eval(serializeScript)
	if err != nil {
		return nil, fmt.Errorf("capture: serialize DOM: %w", err)
	}
	raw := []byte(res.Value.Str())
	root, err := domtree.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	snap := &Snapshot{
		RequestedURL: pageURL,
		FinalURL:     pageURL,
		Root:         root,
		RawTree:      raw,
		Mode:         ModeBrowser,
	}

	if info, err := p.Info(); err == nil && info.URL != "" {
		snap.FinalURL = info.URL
	}

	if html, err := p.HTML(); err != nil {
		logger.WarnContext(ctx, "Could not read page HTML", slog.Any("error", err))
	} else {
		snap.HTML = html
	}

	if textRes, err := p.Eval(pageTextScript); err != nil {
		logger.WarnContext(ctx, "Could not read page text", slog.Any("error", err))
	} else {
		snap.Text = textRes.Value.Str()
	}

	if b.cfg.Screenshot {
		shot, err := p.Screenshot(true, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
		if err != nil {
			logger.WarnContext(ctx, "Screenshot failed", slog.Any("error", err))
		} else {
			snap.Screenshot = shot
		}
	}

	snap.FetchTime = time.Since(start)
	logger.InfoContext(ctx, "Browser capture complete",
		slog.String("final_url", snap.FinalURL),
		slog.Int("nodes", domtree.Count(root)),
		slog.Duration("fetch_time", snap.FetchTime),
	)
	return snap, nil
}

// connect launches a local Chrome or attaches to cfg.RemoteURL. The release
// func never closes a remote browser, only the local one it started.
func (b *BrowserCapturer) connect(ctx context.Context) (*rod.Browser, func(), error) {
	if b.cfg.RemoteURL != "" {
		b.logger.DebugContext(ctx, "Connecting to remote browser", slog.String("url", b.cfg.RemoteURL))
		browser := rod.New().ControlURL(b.cfg.RemoteURL).Context(ctx)
		if err := browser.Connect(); err != nil {
			return nil, nil, fmt.Errorf("capture: connect remote: %w", err)
		}
		return browser, func() {}, nil
	}

	l := launcher.New().Context(ctx).Headless(b.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if b.cfg.ChromePath != "" {
		l = l.Bin(b.cfg.ChromePath)
	}

	wsURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("capture: launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(wsURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("capture: connect: %w", err)
	}

	release := func() {
		if err := browser.Close(); err != nil {
			b.logger.DebugContext(ctx, "Browser close failed", slog.Any("error", err))
		}
		l.Cleanup()
	}
	return browser, release, nil
}
