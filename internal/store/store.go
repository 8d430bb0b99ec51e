// Package store keeps a history of analysis runs in SQLite.
//
// Usage:
//
//	s, err := store.Open("runs.db")
//	id, err := s.SaveRun(ctx, store.RunFromAnalysis(analysis, dir))
//
// Tests use storetest.New(t) for an in-memory store.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"link-level-analyzer/internal/analyzer"
)

var ErrNotFound = errors.New("store: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	keyword        TEXT NOT NULL,
	selected_level INTEGER,
	best_ratio     REAL NOT NULL DEFAULT 0,
	found          INTEGER NOT NULL DEFAULT 0,
	output_dir     TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

CREATE TABLE IF NOT EXISTS level_stats (
	run_id           TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	depth            INTEGER NOT NULL,
	total_links      INTEGER NOT NULL,
	total_candidates INTEGER NOT NULL,
	match_count      INTEGER NOT NULL,
	keyword_ratio    REAL NOT NULL,
	PRIMARY KEY (run_id, depth)
);

CREATE TABLE IF NOT EXISTS matches (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	url            TEXT NOT NULL,
	normalized_url TEXT NOT NULL,
	text           TEXT NOT NULL,
	tag            TEXT NOT NULL,
	path           TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Run is one stored analysis. Ranked is false when the page had no
// candidate links, in which case SelectedLevel is meaningless.
type Run struct {
	ID            string                `json:"id"`
	URL           string                `json:"url"`
	Keyword       string                `json:"keyword"`
	Ranked        bool                  `json:"ranked"`
	SelectedLevel int                   `json:"selected_level,omitempty"`
	BestRatio     float64               `json:"best_ratio"`
	Found         bool                  `json:"found"`
	OutputDir     string                `json:"output_dir,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
	Levels        []analyzer.LevelStats `json:"levels,omitempty"`
	Matches       []analyzer.Candidate  `json:"matches,omitempty"`
}

// RunFromAnalysis flattens an analysis into a storable run.
func RunFromAnalysis(a *analyzer.Analysis, outputDir string) Run {
	run := Run{URL: a.PageURL, Keyword: a.Keyword, OutputDir: outputDir}
	if r := a.Result; r != nil {
		run.Ranked = true
		run.SelectedLevel = r.SelectedLevel
		run.BestRatio = r.BestRatio
		run.Found = r.Found()
		run.Matches = r.Matches
		for _, lvl := range r.Levels {
			if lvl.Stats != nil {
				run.Levels = append(run.Levels, *lvl.Stats)
			}
		}
	}
	return run
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: exec schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory store. A single connection keeps every query
// on the same database.
func OpenMemory() (*Store, error) {
	s, err := Open(":memory:")
	if err != nil {
		return nil, err
	}
	s.db.SetMaxOpenConns(1)
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores the run with its level statistics and matches in one
// transaction and returns the new id.
func (s *Store) SaveRun(ctx context.Context, run Run) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("store: new id: %w", err)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var selected sql.NullInt64
	if run.Ranked {
		selected = sql.NullInt64{Int64: int64(run.SelectedLevel), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, url, keyword, selected_level, best_ratio, found, output_dir, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), run.URL, run.Keyword, selected, run.BestRatio, run.Found, run.OutputDir, run.CreatedAt.UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("store: insert run: %w", err)
	}

	for _, lvl := range run.Levels {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO level_stats (run_id, depth, total_links, total_candidates, match_count, keyword_ratio)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id.String(), lvl.Depth, lvl.TotalLinks, lvl.TotalCandidates, lvl.MatchCount, lvl.KeywordRatio,
		); err != nil {
			return "", fmt.Errorf("store: insert level %d: %w", lvl.Depth, err)
		}
	}

	for i, m := range run.Matches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO matches (run_id, position, url, normalized_url, text, tag, path)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id.String(), i, m.URL, m.NormalizedURL, m.Text, m.Tag, m.Path,
		); err != nil {
			return "", fmt.Errorf("store: insert match %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit: %w", err)
	}
	return id.String(), nil
}

const runColumns = `id, url, keyword, selected_level, best_ratio, found, output_dir, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		selected sql.NullInt64
		created  int64
	)
	if err := row.Scan(&run.ID, &run.URL, &run.Keyword, &selected, &run.BestRatio, &run.Found, &run.OutputDir, &created); err != nil {
		return Run{}, err
	}
	run.Ranked = selected.Valid
	run.SelectedLevel = int(selected.Int64)
	run.CreatedAt = time.UnixMilli(created)
	return run, nil
}

// GetRun loads a run with its levels (ascending depth) and matches (in
// ranking order).
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT depth, total_links, total_candidates, match_count, keyword_ratio
		 FROM level_stats WHERE run_id = ? ORDER BY depth`, id)
	if err != nil {
		return nil, fmt.Errorf("store: query levels: %w", err)
	}
	for rows.Next() {
		var lvl analyzer.LevelStats
		if err := rows.Scan(&lvl.Depth, &lvl.TotalLinks, &lvl.TotalCandidates, &lvl.MatchCount, &lvl.KeywordRatio); err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan level: %w", err)
		}
		run.Levels = append(run.Levels, lvl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: levels: %w", err)
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT url, normalized_url, text, tag, path
		 FROM matches WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("store: query matches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m analyzer.Candidate
		if err := rows.Scan(&m.URL, &m.NormalizedURL, &m.Text, &m.Tag, &m.Path); err != nil {
			return nil, fmt.Errorf("store: scan match: %w", err)
		}
		run.Matches = append(run.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: matches: %w", err)
	}

	return &run, nil
}

// ListRuns returns the newest runs first, without levels or matches.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
