package analyzer

import (
	"context"
	"log/slog"
	"net/url"
	"runtime"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// DefaultSocialPatterns are share/send endpoints that carry no page content.
var DefaultSocialPatterns = []string{
	"facebook.com/sharer",
	"twitter.com/intent/tweet",
	"x.com/intent/tweet",
	"whatsapp.com/send",
	"telegram.me/share",
	"t.me/share",
	"linkedin.com/sharing/share-offsite",
	"pinterest.com/pin/create",
	"reddit.com/submit",
}

type rankConfig struct {
	socialPatterns []string
	concurrency    int
}

type RankOption func(*rankConfig)

// WithSocialPatterns replaces the social-share substrings. Matching is
// case-insensitive.
func WithSocialPatterns(patterns []string) RankOption {
	return func(c *rankConfig) {
		c.socialPatterns = patterns
	}
}

// WithConcurrency bounds how many levels are ranked at once.
func WithConcurrency(n int) RankOption {
	return func(c *rankConfig) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// RankLevels scores every level by the share of its candidate URLs whose path
// carries the keyword as a whole word, and selects the best one (shallowest
// on ties). It returns nil when no level has a single candidate.
func RankLevels(ctx context.Context, logger *slog.Logger, levels LinkLevels, keyword string, opts ...RankOption) *RankingResult {
	cfg := rankConfig{
		socialPatterns: DefaultSocialPatterns,
		concurrency:    runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(&cfg)
	}

	logger = logger.With(slog.String("keyword", keyword))
	logger.DebugContext(ctx, "Starting keyword ranking", slog.Int("levels", len(levels)))

	social := make([]string, len(cfg.socialPatterns))
	for i, p := range cfg.socialPatterns {
		social[i] = strings.ToLower(p)
	}
	matcher := NewKeywordMatcher(keyword)

	reports := make([]LevelReport, len(levels))
	var g errgroup.Group
	g.SetLimit(cfg.concurrency)
	for i, lvl := range levels {
		i, lvl := i, lvl
		g.Go(func() error {
			reports[i] = rankLevel(lvl, keyword, matcher, social)
			return nil
		})
	}
	_ = g.Wait()

	var best *LevelStats
	for i := range reports {
		stats := reports[i].Stats
		if stats == nil {
			logger.DebugContext(ctx, "Level has no candidates", slog.Int("depth", reports[i].Depth))
			continue
		}
		logger.DebugContext(ctx, "Level scored",
			slog.Int("depth", stats.Depth),
			slog.Int("candidates", stats.TotalCandidates),
			slog.Int("matches", stats.MatchCount),
			slog.Float64("ratio", stats.KeywordRatio),
		)
		// Reports are in ascending depth, so a strict comparison keeps the
		// shallowest level on ties.
		if best == nil || stats.KeywordRatio > best.KeywordRatio {
			best = stats
		}
	}

	if best == nil {
		logger.InfoContext(ctx, "No level produced candidates")
		return nil
	}

	result := &RankingResult{
		Keyword:       keyword,
		SelectedLevel: best.Depth,
		BestRatio:     best.KeywordRatio,
		Levels:        reports,
	}
	result.Matches = result.MatchesAt(best.Depth)

	logger.InfoContext(ctx, "Keyword ranking complete",
		slog.Int("selected_level", result.SelectedLevel),
		slog.Float64("best_ratio", result.BestRatio),
		slog.Int("matches", len(result.Matches)),
	)

	return result
}

func rankLevel(level LinkLevel, keyword string, matcher *KeywordMatcher, social []string) LevelReport {
	report := LevelReport{Depth: level.Depth}

	excluded := make(map[string]bool)
	exclude := func(u string, reason ReasonCode, detail string) {
		if excluded[u] {
			return
		}
		excluded[u] = true
		report.Exclusions = append(report.Exclusions, Exclusion{URL: u, Reason: reason, Detail: detail})
	}

	var pool []Candidate
	index := make(map[string]int)

	for _, link := range level.Links {
		if isSocialShare(link.URL, social) {
			exclude(link.URL, ReasonSocialShare, "social sharing link")
			continue
		}

		u, err := url.Parse(link.URL)
		if err != nil {
			exclude(link.URL, ReasonUnparsable, "unparsable URL")
			continue
		}

		if reason, detail, ambiguous := pageAmbiguity(u); ambiguous {
			exclude(link.URL, reason, detail)
			continue
		}

		candidate := Candidate{
			URL:           link.URL,
			NormalizedURL: normalizedKey(u),
			Text:          link.Text,
			Tag:           link.Tag,
			Path:          decodedPath(u),
		}

		if i, seen := index[candidate.NormalizedURL]; seen {
			if utf8.RuneCountInString(candidate.Text) > utf8.RuneCountInString(pool[i].Text) {
				pool[i] = candidate
			}
			continue
		}
		index[candidate.NormalizedURL] = len(pool)
		pool = append(pool, candidate)
	}

	for _, c := range pool {
		if !matcher.MatchString(c.Path) {
			exclude(c.NormalizedURL, ReasonKeywordAbsent, "keyword not in URL path")
			continue
		}
		if isWholePath(c.Path, keyword) {
			exclude(c.NormalizedURL, ReasonKeywordIsPath, "keyword is the entire path")
			continue
		}
		report.Matches = append(report.Matches, c)
	}

	if len(pool) > 0 {
		report.Stats = &LevelStats{
			Depth:           level.Depth,
			TotalLinks:      len(level.Links),
			TotalCandidates: len(pool),
			MatchCount:      len(report.Matches),
			KeywordRatio:    float64(len(report.Matches)) / float64(len(pool)),
		}
	}

	return report
}

func isSocialShare(rawURL string, patterns []string) bool {
	lower := strings.ToLower(rawURL)
	for _, p := range patterns {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// pageAmbiguity reports links that point into a page (fragment) or at a
// parameterised variant of it (query).
func pageAmbiguity(u *url.URL) (ReasonCode, string, bool) {
	hasFragment := u.Fragment != ""
	hasQuery := u.RawQuery != ""

	switch {
	case hasFragment && hasQuery:
		return ReasonFragmentQuery, "has anchor (#" + u.Fragment + "), has query parameters", true
	case hasFragment:
		return ReasonFragment, "has anchor (#" + u.Fragment + ")", true
	case hasQuery:
		return ReasonQuery, "has query parameters", true
	}
	return "", "", false
}

// normalizedKey is scheme://[userinfo@]host/path without query or fragment.
func normalizedKey(u *url.URL) string {
	var sb strings.Builder
	sb.WriteString(u.Scheme)
	sb.WriteString("://")
	if u.User != nil {
		sb.WriteString(u.User.String())
		sb.WriteString("@")
	}
	sb.WriteString(u.Host)
	sb.WriteString(rawPath(u))
	return sb.String()
}

// rawPath treats the opaque part of mailto:/tel: style URLs as the path.
func rawPath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.EscapedPath()
}

// decodedPath is the path keywords are matched against, so percent-encoded
// letters compare as the characters they stand for.
func decodedPath(u *url.URL) string {
	if u.Opaque != "" {
		if p, err := url.PathUnescape(u.Opaque); err == nil {
			return p
		}
		return u.Opaque
	}
	return u.Path
}

// NormalizeURL strips query and fragment. Already-normalized URLs come back
// unchanged.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return normalizedKey(u), nil
}

func isWholePath(path, keyword string) bool {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return len(segments) == 1 && strings.EqualFold(segments[0], keyword)
}
