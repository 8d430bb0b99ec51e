package analyzer

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const (
	defaultVerifyRetries = 3
	initialBackoff       = 1 * time.Second
	defaultVerifyWorkers = 10
)

var client = &http.Client{
	Timeout: 10 * time.Second,
}

// VerifyOptions tunes VerifyLinks. Zero values pick the defaults.
type VerifyOptions struct {
	Workers        int
	MaxRetries     int
	InitialBackoff time.Duration
}

func (o *VerifyOptions) defaults() {
	if o.Workers <= 0 {
		o.Workers = defaultVerifyWorkers
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultVerifyRetries
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = initialBackoff
	}
}

func linkReachabilityChecker(ctx context.Context, logger *slog.Logger, opts VerifyOptions, url string, unreachable chan<- string) {
	logger = logger.With(slog.String("url", url))
	logger.DebugContext(ctx, "Starting link check")

	backoff := opts.InitialBackoff
	for i := 0; i < opts.MaxRetries; i++ {
		attempt := i + 1
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			logger.ErrorContext(ctx, "Could not create HTTP request", slog.Any("error", err))
			unreachable <- url
			return
		}

		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				logger.DebugContext(ctx, "Link is reachable", slog.Int("status_code", resp.StatusCode))
				return
			}
			logger.WarnContext(ctx, "Received non-success status, retrying...",
				slog.Int("attempt", attempt),
				slog.Int("status_code", resp.StatusCode),
				slog.Duration("backoff_duration", backoff),
			)
		} else {
			logger.WarnContext(ctx, "Connection error on attempt, retrying...",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
				slog.Duration("backoff_duration", backoff),
			)
		}

		if attempt == opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			logger.WarnContext(ctx, "Link check cancelled", slog.Any("error", ctx.Err()))
			unreachable <- url
			return
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	logger.ErrorContext(ctx, "Link is unreachable after all retries", slog.Int("max_retries", opts.MaxRetries))
	unreachable <- url
}

func linkReachabilityWorker(ctx context.Context, logger *slog.Logger, opts VerifyOptions, wg *sync.WaitGroup, jobs <-chan string, unreachable chan<- string) {
	defer wg.Done()
	for url := range jobs {
		linkReachabilityChecker(ctx, logger, opts, url, unreachable)
	}
}

// VerifyLinks checks the URLs with a bounded worker pool and returns the ones
// that never answered 2xx. Order of the result is not defined.
func VerifyLinks(ctx context.Context, logger *slog.Logger, urls []string, opts VerifyOptions) []string {
	opts.defaults()
	logger.DebugContext(ctx, "Setting up link check process")

	if len(urls) == 0 {
		logger.InfoContext(ctx, "No links to check, skipping process.")
		return nil
	}

	jobs := make(chan string, len(urls))
	unreachable := make(chan string, len(urls))

	var wg sync.WaitGroup
	for w := 0; w < min(opts.Workers, len(urls)); w++ {
		wg.Add(1)
		go linkReachabilityWorker(ctx, logger, opts, &wg, jobs, unreachable)
	}

	for _, u := range urls {
		jobs <- u
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(unreachable)
	}()

	var failed []string
	for u := range unreachable {
		failed = append(failed, u)
	}

	logger.InfoContext(ctx, "Finished checking links",
		slog.Int("total_links_checked", len(urls)),
		slog.Int("unreachable_links_found", len(failed)),
	)

	return failed
}
