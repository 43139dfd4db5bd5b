// Package httpapi serves the daemon's battery status over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

// defaultWindow is the history span returned when from is omitted.
const defaultWindow = 24 * time.Hour

// Latest supplies the most recent reports in battery index order.
type Latest interface {
	Reports() ([]battery.Report, time.Time)
	Report(i int) (battery.Report, bool)
}

// Store is the history the API reads.
type Store interface {
	SnapshotsInRange(from, to int64) ([]storage.Snapshot, error)
	SleepEventsInRange(from, to int64) ([]storage.SleepEvent, error)
}

// Server is the HTTP status API.
type Server struct {
	latest  Latest
	store   Store
	metrics http.Handler
	log     *slog.Logger
	now     func() time.Time
}

// NewServer wires the API. A nil metrics handler disables /metrics.
func NewServer(latest Latest, store Store, metrics http.Handler, logger *slog.Logger) *Server {
	return &Server{latest: latest, store: store, metrics: metrics, log: logger, now: time.Now}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/batteries", s.handleBatteries)
		r.Get("/batteries/{index}", s.handleBattery)
		r.Get("/history", s.handleHistory)
		r.Get("/sleep", s.handleSleep)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reports, updated := s.latest.Reports()
	resp := map[string]any{
		"status":    "ok",
		"batteries": len(reports),
	}
	if !updated.IsZero() {
		resp["updated"] = updated.Unix()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatteries(w http.ResponseWriter, r *http.Request) {
	reports, _ := s.latest.Reports()
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleBattery(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 {
		writeError(w, http.StatusBadRequest, "battery index must be a non-negative integer")
		return
	}
	report, ok := s.latest.Report(idx)
	if !ok {
		writeError(w, http.StatusNotFound, battery.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.timeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snaps, err := s.store.SnapshotsInRange(from, to)
	if err != nil {
		s.log.Error("read history", "err", err)
		writeError(w, http.StatusInternalServerError, "read history failed")
		return
	}
	if snaps == nil {
		snaps = []storage.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleSleep(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.timeRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events, err := s.store.SleepEventsInRange(from, to)
	if err != nil {
		s.log.Error("read sleep events", "err", err)
		writeError(w, http.StatusInternalServerError, "read sleep events failed")
		return
	}
	if events == nil {
		events = []storage.SleepEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// timeRange reads the from/to unix-second query parameters. to defaults to
// now and from to one day before to.
func (s *Server) timeRange(r *http.Request) (int64, int64, error) {
	q := r.URL.Query()
	to := s.now().Unix()
	if v := q.Get("to"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, errors.New("to must be a unix timestamp")
		}
		to = n
	}
	from := to - int64(defaultWindow/time.Second)
	if v := q.Get("from"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, 0, errors.New("from must be a unix timestamp")
		}
		from = n
	}
	if from < 0 && q.Get("from") == "" {
		from = 0
	}
	if err := storage.ValidateRange(from, to); err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    http.StatusText(status),
		},
	})
}
