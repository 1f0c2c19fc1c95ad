package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/metawrite/metawrite/internal/metrics"
	"github.com/metawrite/metawrite/internal/pipeline"
	"github.com/metawrite/metawrite/internal/search"
)

// Generator runs the full article-generation flow for a query.
type Generator interface {
	Generate(ctx context.Context, query string) (*pipeline.Result, error)
}

// Config configures the API server.
type Config struct {
	Addr       string
	TargetSite string
	Logger     *slog.Logger
}

// Server exposes the minimal HTTP surface: a hello root, a raw search
// passthrough, and the article generation endpoint.
type Server struct {
	cfg       Config
	generator Generator
	searcher  search.Provider
}

// New creates the API server.
func New(cfg Config, generator Generator, searcher search.Provider) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.TargetSite == "" {
		cfg.TargetSite = pipeline.DefaultTargetSite
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg, generator: generator, searcher: searcher}
}

// Handler builds the routing table wrapped with CORS and metrics
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /generate_article", s.handleGenerate)
	return cors(instrument(mux))
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.cfg.Logger.Info("api server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.cfg.Logger.Info("root endpoint accessed")
	writeJSON(w, http.StatusOK, map[string]string{"message": "metawrite API"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if strings.TrimSpace(query) == "" {
		s.cfg.Logger.Warn("empty query received on /search")
		writeDetail(w, http.StatusBadRequest, "La query di ricerca non può essere vuota.")
		return
	}

	s.cfg.Logger.Info("search requested", "query", query)

	siteQuery := fmt.Sprintf("site:%s %s", s.cfg.TargetSite, query)
	resp, err := s.searcher.Search(r.Context(), siteQuery)
	if err != nil {
		s.cfg.Logger.Error("search failed", "query", query, "err", err)
		writeDetail(w, http.StatusInternalServerError, "Errore durante la ricerca")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "Corpo della richiesta non valido.")
		return
	}

	result, err := s.generator.Generate(r.Context(), payload.Query)
	if err != nil {
		s.writeGenerateError(w, payload.Query, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeGenerateError maps pipeline failures onto the HTTP contract:
// blank query 400, empty filtered results 404, everything else 500.
func (s *Server) writeGenerateError(w http.ResponseWriter, query string, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		s.cfg.Logger.Warn("empty query received on /generate_article")
		writeDetail(w, http.StatusBadRequest, "La query di ricerca non può essere vuota.")
	case errors.Is(err, pipeline.ErrNoResults):
		s.cfg.Logger.Warn("no results for query", "query", query)
		writeDetail(w, http.StatusNotFound, "Nessun risultato trovato per la query.")
	case errors.Is(err, pipeline.ErrNoContent):
		s.cfg.Logger.Error("no content could be produced", "query", query)
		writeDetail(w, http.StatusInternalServerError, "Non è stato possibile estrarre contenuti rilevanti.")
	default:
		s.cfg.Logger.Error("generation failed", "query", query, "err", err)
		writeDetail(w, http.StatusInternalServerError, "Errore durante la ricerca")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDetail writes the {"detail": ...} error body the frontend
// expects.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// cors allows any origin, mirroring the permissive policy the frontend
// relies on.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}
