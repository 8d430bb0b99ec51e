package report

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"link-level-analyzer/internal/analyzer"
)

const (
	URLFile        = "url.txt"
	SnapshotFile   = "dom_snapshot.json"
	PageSourceFile = "page_source.html"
	PageTextFile   = "page_text.txt"
	ScreenshotFile = "screenshot.png"
	LevelsBase     = "bfs_hrefs_by_level"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DefaultDir names a run directory after the page host and the start time.
func DefaultDir(pageURL string, now time.Time) string {
	host := "page"
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = u.Host
	}
	return fmt.Sprintf("%s_%s", unsafeFileChars.ReplaceAllString(host, "_"), now.Format("20060102_150405"))
}

// KeywordBase is the file name, without extension, of the keyword reports.
func KeywordBase(keyword string) string {
	safe := unsafeFileChars.ReplaceAllString(keyword, "_")
	if safe == "" || safe == "_" {
		safe = "keyword"
	}
	return "keyword_search_" + safe
}

// WriteRun writes every artifact of an analysis into dir and returns the
// paths written, in order. The directory is created if needed.
func WriteRun(dir string, a *analyzer.Analysis) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create %s: %w", dir, err)
	}

	var written []string
	put := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("report: write %s: %w", path, err)
		}
		written = append(written, path)
		return nil
	}
	render := func(name string, fn func(io.Writer) error) error {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			return fmt.Errorf("report: render %s: %w", name, err)
		}
		return put(name, buf.Bytes())
	}

	if err := put(URLFile, []byte(a.PageURL)); err != nil {
		return written, err
	}

	baseURL := a.PageURL
	if snap := a.Snapshot; snap != nil {
		baseURL = snap.BaseURL()
		if len(snap.RawTree) > 0 {
			if err := put(SnapshotFile, snap.RawTree); err != nil {
				return written, err
			}
		}
		if snap.HTML != "" {
			if err := put(PageSourceFile, []byte(snap.HTML)); err != nil {
				return written, err
			}
		}
		if snap.Text != "" {
			if err := put(PageTextFile, []byte(snap.Text)); err != nil {
				return written, err
			}
		}
		if len(snap.Screenshot) > 0 {
			if err := put(ScreenshotFile, snap.Screenshot); err != nil {
				return written, err
			}
		}
	}

	keywordBase := KeywordBase(a.Keyword)
	steps := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{LevelsBase + ".txt", func(w io.Writer) error { return WriteLevelsText(w, baseURL, a.Levels) }},
		{LevelsBase + ".html", func(w io.Writer) error { return WriteLevelsHTML(w, baseURL, a.Levels) }},
		{keywordBase + ".txt", func(w io.Writer) error { return WriteKeywordText(w, a.Result, a.Page, a.Keyword, baseURL) }},
		{keywordBase + ".html", func(w io.Writer) error { return WriteKeywordHTML(w, a.Result, a.Page, a.Keyword, baseURL) }},
	}
	for _, s := range steps {
		if err := render(s.name, s.fn); err != nil {
			return written, err
		}
	}

	return written, nil
}
