package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"link-level-analyzer/internal/analyzer"
	"link-level-analyzer/internal/capture"
	"link-level-analyzer/internal/config"
	"link-level-analyzer/internal/logging"
	"link-level-analyzer/internal/report"
	"link-level-analyzer/internal/store"
)

const usage = `Usage: link-level-analyzer [flags] <URL> <keyword> [output_dir]

Captures the page, groups its links by DOM depth and reports the level whose
URL paths best match the keyword.

Flags:
`

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	mode       string
	snapshot   string
	verify     bool
	dbPath     string
	logLevel   string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var f cliFlags
	fs := flag.NewFlagSet("link-level-analyzer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.mode, "mode", "", "capture mode: browser, http or auto")
	fs.StringVar(&f.snapshot, "snapshot", "", "rank an existing dom_snapshot.json instead of capturing; URL is the base URL")
	fs.BoolVar(&f.verify, "verify", false, "check that the matching links answer 2xx")
	fs.StringVar(&f.dbPath, "db", "", "SQLite file to record the run in")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 2 || fs.NArg() > 3 {
		fs.Usage()
		return errUsage
	}
	pageURL, keyword := fs.Arg(0), fs.Arg(1)

	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	applyFlags(fs, &f, cfg)

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.New(level, cfg.Log.Format, stderr)

	var capturer analyzer.Capturer
	if f.snapshot != "" {
		capturer = capture.FileCapturer{Path: f.snapshot}
	} else {
		c, err := capture.New(cfg.CaptureSettings(), logger)
		if err != nil {
			return err
		}
		capturer = c
	}

	analysis, err := analyzer.AnalyzePage(ctx, logger, capturer, pageURL, keyword, cfg.AnalyzerOptions())
	if err != nil {
		return err
	}

	outputDir := ""
	if *cfg.Output.WriteReports {
		outputDir = fs.Arg(2)
		if outputDir == "" {
			outputDir = filepath.Join(cfg.Output.Dir, report.DefaultDir(pageURL, time.Now()))
		}
		written, err := report.WriteRun(outputDir, analysis)
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Reports written", slog.String("dir", outputDir), slog.Int("files", len(written)))
	}

	if cfg.Store.Path != "" {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer s.Close()
		id, err := s.SaveRun(ctx, store.RunFromAnalysis(analysis, outputDir))
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "Run recorded", slog.String("run_id", id), slog.String("db", cfg.Store.Path))
	}

	printSummary(stdout, analysis, outputDir)
	return nil
}

// applyFlags lets explicitly set flags win over the file configuration.
func applyFlags(fs *flag.FlagSet, f *cliFlags, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "mode":
			cfg.Capture.Mode = f.mode
		case "verify":
			cfg.Verify.Enabled = f.verify
		case "db":
			cfg.Store.Path = f.dbPath
		case "log-level":
			cfg.Log.Level = f.logLevel
		}
	})
}

func printSummary(w io.Writer, a *analyzer.Analysis, outputDir string) {
	fmt.Fprintf(w, "Page: %s\n", a.PageURL)
	fmt.Fprintf(w, "Links: %d across %d levels\n", a.Levels.TotalLinks(), len(a.Levels))

	switch r := a.Result; {
	case r == nil:
		fmt.Fprintf(w, "No candidate links found, nothing to rank for '%s'\n", a.Keyword)
	case !r.Found():
		fmt.Fprintf(w, "No URL path contains '%s'\n", a.Keyword)
	default:
		fmt.Fprintf(w, "Best level for '%s': %d (%.2f%%, %d matches)\n", a.Keyword, r.SelectedLevel, r.BestRatio*100, len(r.Matches))
		for i, m := range r.Matches {
			fmt.Fprintf(w, "  %d. %s\n", i+1, m.URL)
		}
	}
	if len(a.Unreachable) > 0 {
		fmt.Fprintf(w, "Unreachable matches: %d\n", len(a.Unreachable))
	}
	if outputDir != "" {
		fmt.Fprintf(w, "Process complete! Results saved to %s\n", outputDir)
	}
}
