package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"link-level-analyzer/internal/capture"
)

// Capturer produces the DOM snapshot of a page.
type Capturer interface {
	Capture(ctx context.Context, pageURL string) (*capture.Snapshot, error)
}

type Options struct {
	Rank   []RankOption
	Verify bool
	// VerifyOptions is used when Verify is set.
	VerifyOptions VerifyOptions
}

// Analysis is the outcome of one capture, index and rank pass.
type Analysis struct {
	PageURL     string
	Keyword     string
	Snapshot    *capture.Snapshot
	Page        PageSummary
	Levels      LinkLevels
	Result      *RankingResult
	Unreachable []string
	Duration    time.Duration
}

func AnalyzePage(ctx context.Context, logger *slog.Logger, capturer Capturer, pageURL, keyword string, opts Options) (*Analysis, error) {
	logger = logger.With(slog.String("page_url", pageURL))
	logger.DebugContext(ctx, "Starting page analysis")
	start := time.Now()

	// --- 1. Capture ---
	snap, err := capturer.Capture(ctx, pageURL)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to capture page", slog.Any("error", err))
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}

	analysis := AnalyzeSnapshot(ctx, logger, snap, keyword, opts)
	analysis.PageURL = pageURL

	// --- 4. Reachability ---
	if opts.Verify && analysis.Result.Found() {
		urls := make([]string, len(analysis.Result.Matches))
		for i, m := range analysis.Result.Matches {
			urls[i] = m.URL
		}
		analysis.Unreachable = VerifyLinks(ctx, logger, urls, opts.VerifyOptions)
	}

	analysis.Duration = time.Since(start)

	logger.InfoContext(ctx, "Page analysis complete",
		slog.Group("results",
			slog.String("title", analysis.Page.Title),
			slog.Int("levels", len(analysis.Levels)),
			slog.Int("links", analysis.Levels.TotalLinks()),
			slog.Bool("found", analysis.Result.Found()),
			slog.Int("unreachable_links", len(analysis.Unreachable)),
			slog.Duration("duration", analysis.Duration),
		),
	)

	return analysis, nil
}

// AnalyzeSnapshot runs indexing and ranking on an already captured page.
func AnalyzeSnapshot(ctx context.Context, logger *slog.Logger, snap *capture.Snapshot, keyword string, opts Options) *Analysis {
	// --- 2. Index ---
	levels := IndexLevels(ctx, logger, snap.Root, snap.BaseURL())

	// --- 3. Rank ---
	result := RankLevels(ctx, logger, levels, keyword, opts.Rank...)

	return &Analysis{
		PageURL:  snap.RequestedURL,
		Keyword:  keyword,
		Snapshot: snap,
		Page:     summarizePage(ctx, logger, snap.HTML),
		Levels:   levels,
		Result:   result,
	}
}
