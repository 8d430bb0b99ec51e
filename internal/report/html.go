package report

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"link-level-analyzer/internal/analyzer"
)

const maxHTMLExclusionRows = 20

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"add1":    func(i int) int { return i + 1 },
	"percent": percent,
	"trim":    strings.TrimSpace,
}).ParseFS(templateFS, "templates/*.html"))

type levelsPage struct {
	BaseURL string
	Levels  analyzer.LinkLevels
}

// WriteLevelsHTML renders the levels as a page with one collapsible section
// per depth and a text filter.
func WriteLevelsHTML(w io.Writer, baseURL string, levels analyzer.LinkLevels) error {
	return templates.ExecuteTemplate(w, "levels.html", levelsPage{BaseURL: baseURL, Levels: levels})
}

type matchView struct {
	Text          template.HTML
	URL           string
	HighlightURL  template.HTML
	NormalizedURL string
	Path          template.HTML
	Tag           string
}

type exclusionView struct {
	analyzer.Exclusion
	Fragment bool
}

type levelView struct {
	Stats    *analyzer.LevelStats
	Selected bool
}

type keywordPage struct {
	Keyword       string
	BaseURL       string
	Page          analyzer.PageSummary
	Absent        bool
	Found         bool
	SelectedLevel int
	BestRatio     float64
	Selected      *analyzer.LevelStats
	Rules         []string
	Levels        []levelView
	Matches       []matchView
	Exclusions    []exclusionView
	MoreExcluded  int
}

// WriteKeywordHTML renders the ranking result. Fragment exclusions of the
// selected level are flagged so the page can highlight them.
func WriteKeywordHTML(w io.Writer, result *analyzer.RankingResult, summary analyzer.PageSummary, keyword, baseURL string) error {
	page := keywordPage{Keyword: keyword, BaseURL: baseURL, Page: summary, Rules: rankingRules}
	if result == nil {
		page.Absent = true
		return templates.ExecuteTemplate(w, "keyword.html", page)
	}

	page.Found = result.Found()
	page.SelectedLevel = result.SelectedLevel
	page.BestRatio = result.BestRatio
	page.Selected = result.Stats(result.SelectedLevel)

	for _, lvl := range result.Levels {
		if lvl.Stats != nil {
			page.Levels = append(page.Levels, levelView{Stats: lvl.Stats, Selected: lvl.Depth == result.SelectedLevel})
		}
	}

	pattern := highlightPattern(keyword)
	for _, m := range result.Matches {
		page.Matches = append(page.Matches, matchView{
			Text:          highlight(pattern, strings.TrimSpace(m.Text)),
			URL:           m.URL,
			HighlightURL:  highlight(pattern, m.URL),
			NormalizedURL: m.NormalizedURL,
			Path:          highlight(pattern, m.Path),
			Tag:           m.Tag,
		})
	}

	exclusions := result.ExclusionsAt(result.SelectedLevel)
	for _, ex := range exclusions[:min(len(exclusions), maxHTMLExclusionRows)] {
		page.Exclusions = append(page.Exclusions, exclusionView{Exclusion: ex, Fragment: ex.IsFragment()})
	}
	page.MoreExcluded = max(len(exclusions)-maxHTMLExclusionRows, 0)

	return templates.ExecuteTemplate(w, "keyword.html", page)
}

func highlightPattern(keyword string) *analyzer.KeywordMatcher {
	if keyword == "" {
		return nil
	}
	return analyzer.NewKeywordMatcher(keyword)
}

// highlight escapes s and wraps every whole-word keyword hit in a span.
func highlight(pattern *analyzer.KeywordMatcher, s string) template.HTML {
	if pattern == nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	var sb strings.Builder
	last := 0
	for _, loc := range pattern.FindAllIndex(s) {
		sb.WriteString(template.HTMLEscapeString(s[last:loc[0]]))
		sb.WriteString(`<span class="highlight">`)
		sb.WriteString(template.HTMLEscapeString(s[loc[0]:loc[1]]))
		sb.WriteString(`</span>`)
		last = loc[1]
	}
	sb.WriteString(template.HTMLEscapeString(s[last:]))
	return template.HTML(sb.String())
}
