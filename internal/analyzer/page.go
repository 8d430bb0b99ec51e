package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// PageSummary describes the captured page in report headers.
type PageSummary struct {
	Title       string
	HTMLVersion string
	Headings    map[string]int
}

// HeadingCounts lists the heading tags found, h1 first, as "h1: 1, h2: 4".
func (p PageSummary) HeadingCounts() string {
	var parts []string
	for _, tag := range headingTags {
		if n := p.Headings[tag]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", tag, n))
		}
	}
	return strings.Join(parts, ", ")
}

func summarizePage(ctx context.Context, logger *slog.Logger, pageHTML string) PageSummary {
	summary := PageSummary{Headings: map[string]int{}}
	if strings.TrimSpace(pageHTML) == "" {
		logger.DebugContext(ctx, "No page HTML captured, skipping summary")
		return summary
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		logger.WarnContext(ctx, "Failed to parse page HTML for summary", slog.Any("error", err))
		return summary
	}

	summary.Title = strings.TrimSpace(doc.Find("title").First().Text())
	summary.HTMLVersion = findHTMLVersion(ctx, logger, doc)
	summary.Headings = countHeadings(ctx, logger, doc)
	return summary
}

func findHTMLVersion(ctx context.Context, logger *slog.Logger, doc *goquery.Document) string {
	logger.DebugContext(ctx, "Starting to determine HTML version")

	var version string
	for _, node := range doc.Nodes {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.DoctypeNode {
				continue
			}
			logger.DebugContext(ctx, "Found doctype node", slog.String("data", c.Data))

			if strings.EqualFold(c.Data, "html") && len(c.Attr) == 0 {
				version = "HTML5"
				break
			}
			version = "Unknown (Pre-HTML5)"
			for _, attr := range c.Attr {
				if attr.Key != "public" {
					continue
				}
				val := strings.ToLower(attr.Val)
				switch {
				case strings.Contains(val, "xhtml 1.0"):
					version = "XHTML 1.0"
				case strings.Contains(val, "html 4.01"):
					version = "HTML 4.01"
				}
			}
			break
		}
	}

	if version == "" {
		version = "Unknown or No Doctype"
		logger.DebugContext(ctx, "Could not determine HTML version", slog.String("result", version))
	}
	return version
}

func countHeadings(ctx context.Context, logger *slog.Logger, doc *goquery.Document) map[string]int {
	headings := make(map[string]int)
	for _, tag := range headingTags {
		if count := doc.Find(tag).Length(); count > 0 {
			headings[tag] = count
		}
	}
	logger.DebugContext(ctx, "Counted headings", slog.Any("heading_counts", headings))
	return headings
}
