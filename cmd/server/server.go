package main

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"link-level-analyzer/internal/analyzer"
	"link-level-analyzer/internal/report"
	"link-level-analyzer/internal/store"
)

//go:embed templates/index.html
var templateFS embed.FS

var tmpl = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"percent": func(r float64) string { return strconv.FormatFloat(r*100, 'f', 2, 64) + "%" },
	"add1":    func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/index.html"))

type TemplateData struct {
	URL       string
	Keyword   string
	Error     string
	Results   *analyzer.Analysis
	RunID     string
	OutputDir string
}

type server struct {
	logger    *slog.Logger
	capturer  analyzer.Capturer
	opts      analyzer.Options
	runs      *store.Store // nil disables history
	outputDir string       // empty disables report files
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/", s.handleIndex)
	r.Post("/", s.handleAnalyze)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	return r
}

func clientError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}

func (s *server) serverError(w http.ResponseWriter, err error) {
	trace := string(debug.Stack())
	s.logger.Error("Internal Server Error", slog.Any("error", err), slog.String("trace", trace))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) render(w http.ResponseWriter, data TemplateData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.serverError(w, err)
	}
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, TemplateData{})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := TemplateData{
		URL:     strings.TrimSpace(r.FormValue("url")),
		Keyword: strings.TrimSpace(r.FormValue("keyword")),
	}
	logger := s.logger.With(
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("url", data.URL),
		slog.String("keyword", data.Keyword),
	)

	if data.URL == "" || data.Keyword == "" {
		w.WriteHeader(http.StatusBadRequest)
		data.Error = "Both a URL and a keyword are required."
		s.render(w, data)
		return
	}

	analysis, err := analyzer.AnalyzePage(ctx, logger, s.capturer, data.URL, data.Keyword, s.opts)
	if err != nil {
		logger.WarnContext(ctx, "Analysis failed for URL", slog.Any("error", err))
		w.WriteHeader(http.StatusBadGateway)
		data.Error = "Failed to analyze the page. The URL might be unreachable or the content invalid."
		s.render(w, data)
		return
	}
	logger.InfoContext(ctx, "Analysis successful")
	data.Results = analysis

	if s.outputDir != "" {
		dir := filepath.Join(s.outputDir, report.DefaultDir(data.URL, time.Now()))
		if _, err := report.WriteRun(dir, analysis); err != nil {
			logger.ErrorContext(ctx, "Failed to write reports", slog.Any("error", err))
		} else {
			data.OutputDir = dir
		}
	}

	if s.runs != nil {
		id, err := s.runs.SaveRun(ctx, store.RunFromAnalysis(analysis, data.OutputDir))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to record run", slog.Any("error", err))
		} else {
			data.RunID = id
		}
	}

	s.render(w, data)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		clientError(w, http.StatusNotFound, "Run history is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		clientError(w, http.StatusNotFound, "Run history is disabled")
		return
	}
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		clientError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
