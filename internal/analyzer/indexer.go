package analyzer

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"link-level-analyzer/internal/domtree"
)

const noTextPlaceholder = "[No text]"

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg", ".ico"}

// IndexLevels walks the tree breadth-first and groups every href-bearing
// element by its depth. The tree is not modified.
func IndexLevels(ctx context.Context, logger *slog.Logger, root domtree.Node, baseURL string) LinkLevels {
	logger = logger.With(slog.String("base_url", baseURL))
	logger.DebugContext(ctx, "Starting level indexing")

	base, err := url.Parse(baseURL)
	if err != nil {
		logger.WarnContext(ctx, "Base URL is not parsable, relative links kept as-is", slog.Any("error", err))
		base = nil
	}

	var levels LinkLevels
	skipped := 0

	domtree.Walk(root, func(n domtree.Node, depth int) {
		el, ok := n.(*domtree.Element)
		if !ok {
			return
		}

		href := strings.TrimSpace(el.Attr("href"))
		if href == "" {
			return
		}
		if !isCandidateHref(href) {
			skipped++
			return
		}

		link := RawLink{
			URL:         resolveHref(base, href),
			Text:        linkText(el),
			Tag:         el.TagName,
			Depth:       depth,
			ElementType: elementType(el.TagName),
		}

		// Walk is breadth-first, so a new depth is always the last one.
		if len(levels) == 0 || levels[len(levels)-1].Depth != depth {
			levels = append(levels, LinkLevel{Depth: depth})
		}
		last := &levels[len(levels)-1]
		last.Links = append(last.Links, link)
	})

	logger.InfoContext(ctx, "Finished level indexing",
		slog.Int("levels", len(levels)),
		slog.Int("links", levels.TotalLinks()),
		slog.Int("skipped_hrefs", skipped),
	)

	return levels
}

func isCandidateHref(href string) bool {
	if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return false
	}
	lower := strings.ToLower(href)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}
	return true
}

// resolveHref keeps absolute and protocol-relative hrefs untouched and joins
// everything else onto base. Unparsable input is returned raw so the ranker
// can report it.
func resolveHref(base *url.URL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") || strings.HasPrefix(href, "//") {
		return href
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func linkText(el *domtree.Element) string {
	if el.Link != nil {
		if text := collapseSpace(el.Link.Text); text != "" {
			return text
		}
	}
	if el.DisplayedText != nil {
		if text := collapseSpace(*el.DisplayedText); text != "" {
			return text
		}
	}
	if text := collapseSpace(el.Attr("title")); text != "" {
		return text
	}
	return noTextPlaceholder
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func elementType(tag string) string {
	if strings.EqualFold(tag, "a") {
		return "anchor"
	}
	return "element_with_href"
}
