// Package report renders link levels and keyword rankings as text and HTML
// files, and lays out the output directory of a run.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"link-level-analyzer/internal/analyzer"
)

const (
	maxTextWidth      = 80
	maxTextAnchorRows = 5
	rule              = "----------------------------------------"
	doubleRule        = "============================================================"
)

var rankingRules = []string{
	"Only unique URLs after removing query parameters and anchors",
	"Only counting URLs with keyword in their path",
	"Excluding URLs where the keyword is the entire path",
	"Each URL counted only once",
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxTextWidth {
		return s
	}
	r := []rune(s)
	return string(r[:maxTextWidth-3]) + "..."
}

func percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// WriteLevelsText writes every level with its numbered links.
func WriteLevelsText(w io.Writer, baseURL string, levels analyzer.LinkLevels) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "BFS Traversal Results - hrefs by level for %s\n%s\n\n", baseURL, doubleRule)

	if len(levels) == 0 {
		fmt.Fprintln(bw, "No href elements were identified.")
	}
	for _, lvl := range levels {
		fmt.Fprintf(bw, "Level %d - %d hrefs found\n%s\n", lvl.Depth, len(lvl.Links), rule)
		for i, link := range lvl.Links {
			fmt.Fprintf(bw, "%d. [%s] %s\n", i+1, link.Tag, truncate(strings.TrimSpace(link.Text)))
			fmt.Fprintf(bw, "   URL: %s\n\n", truncate(link.URL))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteKeywordText writes the selected level, its matches and the per-level
// statistics. A nil result means the page had no candidate links at all.
func WriteKeywordText(w io.Writer, result *analyzer.RankingResult, page analyzer.PageSummary, keyword, baseURL string) error {
	bw := bufio.NewWriter(w)

	if result == nil {
		fmt.Fprintf(bw, "No matching links found for keyword '%s'\n", keyword)
		fmt.Fprintf(bw, "No candidate links were found on %s\n", baseURL)
		writePageText(bw, page)
		return bw.Flush()
	}

	selected := result.Stats(result.SelectedLevel)
	fmt.Fprintf(bw, "Keyword Search Results for '%s'\n%s\n", keyword, doubleRule)
	fmt.Fprintf(bw, "Page: %s\n", baseURL)
	writePageText(bw, page)
	fmt.Fprintf(bw, "Level %d - Level with highest keyword match ratio (%s)\n", result.SelectedLevel, percent(result.BestRatio))
	fmt.Fprintf(bw, "Matches: %d / Total unique URLs at this level: %d\n\n", selected.MatchCount, selected.TotalCandidates)

	fmt.Fprintln(bw, "Ranking applied with the following rules:")
	for i, r := range rankingRules {
		fmt.Fprintf(bw, "%d. %s\n", i+1, r)
	}
	fmt.Fprintln(bw)

	anchors := fragmentExclusions(result.ExclusionsAt(result.SelectedLevel))
	if len(anchors) > 0 {
		fmt.Fprintf(bw, "URLs with anchors skipped at this level:\n%s\n", rule)
		for i, ex := range anchors[:min(len(anchors), maxTextAnchorRows)] {
			fmt.Fprintf(bw, "%d. %s\n   Reason: %s\n\n", i+1, ex.URL, ex.Detail)
		}
		if len(anchors) > maxTextAnchorRows {
			fmt.Fprintf(bw, "...and %d more URLs with anchors were skipped.\n", len(anchors)-maxTextAnchorRows)
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintf(bw, "Level Statistics:\n%s\n", rule)
	for _, lvl := range result.Levels {
		if lvl.Stats == nil {
			continue
		}
		fmt.Fprintf(bw, "Level %d: %d/%d = %s\n", lvl.Depth, lvl.Stats.MatchCount, lvl.Stats.TotalCandidates, percent(lvl.Stats.KeywordRatio))
	}
	fmt.Fprintln(bw)

	fmt.Fprintf(bw, "Best Matches:\n%s\n", rule)
	if !result.Found() {
		fmt.Fprintf(bw, "No URL path at any level contains '%s'.\n", keyword)
	}
	for i, m := range result.Matches {
		fmt.Fprintf(bw, "%d. %s\n", i+1, strings.TrimSpace(m.Text))
		fmt.Fprintf(bw, "   URL: %s\n", m.URL)
		fmt.Fprintf(bw, "   Normalized URL: %s\n", m.NormalizedURL)
		fmt.Fprintf(bw, "   Path: %s\n", m.Path)
		fmt.Fprintf(bw, "   Tag: %s\n\n", m.Tag)
	}

	return bw.Flush()
}

func writePageText(w io.Writer, page analyzer.PageSummary) {
	if page.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", page.Title)
	}
	if page.HTMLVersion != "" {
		fmt.Fprintf(w, "HTML version: %s\n", page.HTMLVersion)
	}
	if headings := page.HeadingCounts(); headings != "" {
		fmt.Fprintf(w, "Headings: %s\n", headings)
	}
}

func fragmentExclusions(exclusions []analyzer.Exclusion) []analyzer.Exclusion {
	var out []analyzer.Exclusion
	for _, ex := range exclusions {
		if ex.IsFragment() {
			out = append(out, ex)
		}
	}
	return out
}
