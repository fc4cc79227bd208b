// Package server serves stored events over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pfrederiksen/show-scraper/internal/event"
	"github.com/pfrederiksen/show-scraper/internal/filter"
	"github.com/pfrederiksen/show-scraper/internal/logger"
	"github.com/pfrederiksen/show-scraper/internal/storage"
	"github.com/pfrederiksen/show-scraper/internal/venue"
)

// Store is the read side of storage.Store.
type Store interface {
	ListVenues(ctx context.Context) ([]storage.VenueRow, error)
	ListEvents(ctx context.Context, q storage.Query) ([]storage.EventRow, error)
	Ping(ctx context.Context) error
}

// Server is the HTTP API.
type Server struct {
	store   Store
	metrics http.Handler
	now     func() time.Time
	router  *chi.Mux
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithClock sets the clock year-less days are resolved against.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds the router.
func New(store Store, opts ...Option) *Server {
	s := &Server{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealthz)
	router.Get("/venues", s.handleVenues)
	router.Get("/events", s.handleEvents)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router = router
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving API", logger.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, errors.New("database unavailable"))
		return
	}
	respondJSON(w, map[string]string{"status": "ok", "time": s.now().UTC().Format(time.RFC3339)})
}

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := s.store.ListVenues(r.Context())
	if err != nil {
		logger.Error("Listing venues failed", nil, err)
		respondError(w, http.StatusInternalServerError, errors.New("could not list venues"))
		return
	}
	respondJSON(w, venues)
}

// handleEvents serves GET /events?from&to&dates&region&venue&q&upcoming.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	params := r.URL.Query()

	q := storage.Query{Venue: strings.TrimSpace(params.Get("venue"))}
	f := filter.NewFilter()

	if region := strings.TrimSpace(params.Get("region")); region != "" {
		parsed, err := venue.ParseRegion(region)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		q.Region = parsed
	}

	for _, p := range []struct {
		name string
		dst  **time.Time
		end  bool
	}{
		{"from", &f.DateFrom, false},
		{"to", &f.DateTo, true},
	} {
		v := params.Get(p.name)
		if v == "" {
			continue
		}
		d, err := filter.ParseDay(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("%s: %w", p.name, err))
			return
		}
		t := d.Resolve(now)
		if p.end {
			t = t.Add(24*time.Hour - time.Second)
		}
		*p.dst = &t
	}

	if dates := params.Get("dates"); dates != "" {
		from, to, err := filter.ParseDateRange(dates, now)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("dates: %w", err))
			return
		}
		f.DateFrom, f.DateTo = from, to
	}

	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		respondError(w, http.StatusBadRequest, errors.New("from must not be after to"))
		return
	}
	if f.DateFrom != nil {
		q.From = event.DayOf(*f.DateFrom)
	}
	if f.DateTo != nil {
		q.To = event.DayOf(*f.DateTo)
	}
	if term := strings.TrimSpace(params.Get("q")); term != "" {
		f.Titles = []string{term}
	}
	if v := params.Get("upcoming"); v != "" {
		upcoming, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Errorf("upcoming: %w", err))
			return
		}
		f.UpcomingOnly = upcoming
	}

	rows, err := s.store.ListEvents(r.Context(), q)
	if err != nil {
		logger.Error("Listing events failed", nil, err)
		respondError(w, http.StatusInternalServerError, errors.New("could not list events"))
		return
	}

	out := make([]storage.EventRow, 0, len(rows))
	for _, row := range rows {
		if f.Matches(toEvent(row), now) {
			out = append(out, row)
		}
	}
	respondJSON(w, out)
}

func toEvent(row storage.EventRow) event.Event {
	return event.Event{
		Date:    row.Date,
		Title:   row.Title,
		URL:     row.URL,
		Img:     row.Img,
		Details: row.Details,
		Source: venue.Venue{
			Name:       row.Venue.Name,
			CommonName: row.Venue.CommonName,
			Region:     row.Venue.Region,
			Location:   row.Venue.Location,
		},
	}
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  err.Error(),
		Status: status,
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Debug("HTTP request", logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		})
	})
}
