// Package server provides the HTTP status daemon: job control endpoints
// and a websocket progress stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/raphaelgruber/vecsync-go/internal/metrics"
	"github.com/raphaelgruber/vecsync-go/internal/models"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// SyncController is the orchestrator surface the server drives.
type SyncController interface {
	StartJob(ctx context.Context, sel vsync.Selector, mode models.JobMode, collectionID string) (*models.SyncJob, error)
	ProcessNextBatch(ctx context.Context) (*vsync.BatchResult, error)
	Run(ctx context.Context, onBatch func(*vsync.BatchResult)) (*models.SyncJob, error)
	CancelAll(ctx context.Context) error
	Status(ctx context.Context) (*models.SyncJob, error)
}

// JobHistory lists archived finished jobs.
type JobHistory interface {
	History(ctx context.Context, limit int) ([]models.JobHistoryEntry, error)
}

// RecordLister lists training records for a collection.
type RecordLister interface {
	ListByCollection(ctx context.Context, collectionID string, limit int) ([]models.TrainingRecord, error)
}

// Server wraps the HTTP server with dependencies and lifecycle management.
type Server struct {
	sync    SyncController
	history JobHistory
	records RecordLister
	stats   *metrics.Collector
	logger  *slog.Logger
	http    *http.Server
}

// New creates the status server. history, records and stats are optional;
// their endpoints return 404 when absent.
func New(addr string, ctl SyncController, history JobHistory, records RecordLister, stats *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		sync:    ctl,
		history: history,
		records: records,
		stats:   stats,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /job", s.handleJob)
	mux.HandleFunc("GET /job/watch", s.handleWatch)
	mux.HandleFunc("GET /job/history", s.handleHistory)
	mux.HandleFunc("GET /records", s.handleRecords)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /sync", s.handleSync)
	mux.HandleFunc("POST /cancel", s.handleCancel)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the configured handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run starts the server and blocks until the context is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down status server")
	return s.http.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.sync.Status(r.Context())
	if err != nil {
		if errors.Is(err, vsync.ErrNoJob) {
			writeError(w, http.StatusNotFound, "no sync job exists")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "history not available")
		return
	}
	entries, err := s.history.History(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotFound, "records not available")
		return
	}
	collection := r.URL.Query().Get("collection")
	if collection == "" {
		writeError(w, http.StatusBadRequest, "collection query parameter required")
		return
	}
	recs, err := s.records.ListByCollection(r.Context(), collection, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, "metrics not available")
		return
	}
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// syncRequest is the POST /sync payload.
type syncRequest struct {
	Collection string   `json:"collection"`
	Mode       string   `json:"mode"`     // "direct" (default) or "cron"
	Selector   string   `json:"selector"` // "all" (default), "ids" or "retry"
	IDs        []string `json:"ids,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Collection == "" {
		writeError(w, http.StatusBadRequest, "collection required")
		return
	}

	mode := models.ModeDirect
	if req.Mode == string(models.ModeCron) {
		mode = models.ModeCron
	}
	sel := vsync.Selector{Mode: vsync.SelectAll}
	switch vsync.SelectorMode(req.Selector) {
	case vsync.SelectIDs:
		sel = vsync.Selector{Mode: vsync.SelectIDs, IDs: req.IDs}
	case vsync.SelectRetry:
		sel = vsync.Selector{Mode: vsync.SelectRetry}
	}

	job, err := s.sync.StartJob(r.Context(), sel, mode, req.Collection)
	if err != nil {
		switch {
		case errors.Is(err, vsync.ErrJobAlreadyActive):
			writeError(w, http.StatusConflict, "a sync job is already active")
		case errors.Is(err, vsync.ErrNoItemsFound):
			writeError(w, http.StatusUnprocessableEntity, "no items matched the selector")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// batches run detached from the request; clients follow progress via
	// GET /job or the websocket stream
	go func() {
		ctx := context.Background()
		if mode == models.ModeDirect {
			if _, err := s.sync.Run(ctx, nil); err != nil {
				s.logger.Error("sync run failed", "error", err)
			}
			return
		}
		if _, err := s.sync.ProcessNextBatch(ctx); err != nil {
			s.logger.Error("first batch failed", "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.CancelAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancel requested"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
