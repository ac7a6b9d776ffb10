// Package api serves stored run results over a read-only HTTP interface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/jcqlabs/futrun/internal/metrics"
	"github.com/jcqlabs/futrun/internal/persistence"
)

// Server exposes health, run results and metrics. It never mutates state;
// runs are written by the pipeline commands, not over HTTP.
type Server struct {
	router    *mux.Router
	store     persistence.Store
	collector *metrics.Collector
}

// NewServer wires the routes. The store may be nil, in which case the run
// endpoints answer 503.
func NewServer(store persistence.Store, collector *metrics.Collector) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		store:     store,
		collector: collector,
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	s.router.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	if collector != nil {
		s.router.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until the context ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string) error {
	srv := &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("listen", listen).Msg("api server started")
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	records, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("list runs failed")
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence disabled")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "run id must be a UUID")
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, persistence.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("run_id", id.String()).Msg("get run failed")
		writeError(w, http.StatusInternalServerError, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("response encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
