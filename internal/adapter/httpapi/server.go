// Package httpapi exposes the vibe-check JSON API plus health, readiness,
// and metrics endpoints.
package httpapi

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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elbaradei1993/vibe-check-webapp/internal/domain"
	"github.com/elbaradei1993/vibe-check-webapp/internal/store"
)

// Geocoder resolves free-text place names and reverse-resolves coordinates.
// Nil when geocoding is disabled by configuration.
type Geocoder interface {
	ResolveCoordinates(ctx context.Context, placeName string) (domain.Coordinates, error)
	ResolveAreaName(ctx context.Context, lat, lon float64) string
}

// HazardFetcher fetches the enabled hazard sources for one map cycle.
type HazardFetcher interface {
	FetchAll(ctx context.Context, enabled []domain.SourceKind) domain.AggregateResult
}

// LayerComposer merges reports and hazards into renderable layers.
type LayerComposer interface {
	Compose(reports []domain.Report, hazards domain.AggregateResult, marker *domain.SearchMarker) domain.LayerSet
}

// ReportPublisher emits report-submitted events. Nil when publishing is
// disabled by configuration.
type ReportPublisher interface {
	PublishReport(ctx context.Context, report domain.Report) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the domain interfaces into HTTP routes.
type Server struct {
	httpServer *http.Server
	store      store.Store
	geocoder   Geocoder
	hazards    HazardFetcher
	composer   LayerComposer
	publisher  ReportPublisher
	pinger     Pinger
	sources    []domain.SourceKind
	logger     *slog.Logger
}

// NewServer creates the API server. geocoder and publisher may be nil when
// the corresponding integrations are disabled; their routes then answer 503.
func NewServer(
	addr string,
	st store.Store,
	geocoder Geocoder,
	hazards HazardFetcher,
	composer LayerComposer,
	publisher ReportPublisher,
	pinger Pinger,
	sources []domain.SourceKind,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:     st,
		geocoder:  geocoder,
		hazards:   hazards,
		composer:  composer,
		publisher: publisher,
		pinger:    pinger,
		sources:   sources,
		logger:    logger,
	}

	mux.HandleFunc("POST /api/reports", s.handleSubmitReport)
	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("POST /api/reports/{id}/vote", s.handleVote)
	mux.HandleFunc("GET /api/users/{id}/reputation", s.handleReputation)
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)
	mux.HandleFunc("GET /api/hazards", s.handleHazards)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type submitReportRequest struct {
	UserID   int64   `json:"user_id"`
	Category string  `json:"category"`
	Context  string  `json:"context"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	report, err := s.store.SubmitReport(r.Context(), req.UserID, category, req.Context, req.Lat, req.Lon)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReport(r.Context(), report); err != nil {
			// The report is already durable; the event stream is best-effort.
			s.logger.Warn("report event publish failed", "report_id", report.ID, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, map[string]int64{"id": report.ID})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := s.store.ListReports(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	writeJSON(w, http.StatusOK, reports)
}

type voteRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	kind, err := domain.ParseVoteKind(req.Kind)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if err := s.store.Vote(r.Context(), id, kind); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	reputation, err := s.store.ReputationOf(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"user_id": id, "reputation": reputation})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	if s.geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "geocoding is disabled")
		return
	}
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	coords, err := s.geocoder.ResolveCoordinates(r.Context(), query)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	area := s.geocoder.ResolveAreaName(r.Context(), coords.Lat, coords.Lon)
	writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"lat":   coords.Lat,
		"lon":   coords.Lon,
		"area":  area,
	})
}

func (s *Server) handleHazards(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.parseSources(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result := s.hazards.FetchAll(r.Context(), enabled)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	enabled, err := s.parseSources(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var marker *domain.SearchMarker
	if query := strings.TrimSpace(r.URL.Query().Get("q")); query != "" {
		if s.geocoder == nil {
			writeError(w, http.StatusServiceUnavailable, "geocoding is disabled")
			return
		}
		coords, err := s.geocoder.ResolveCoordinates(r.Context(), query)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		marker = &domain.SearchMarker{
			Lat:   coords.Lat,
			Lon:   coords.Lon,
			Label: s.geocoder.ResolveAreaName(r.Context(), coords.Lat, coords.Lon),
		}
	}

	reports, err := s.store.ListReports(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	hazards := s.hazards.FetchAll(r.Context(), enabled)

	writeJSON(w, http.StatusOK, s.composer.Compose(reports, hazards, marker))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// parseSources reads the optional sources query parameter, falling back to
// the configured default set.
func (s *Server) parseSources(r *http.Request) ([]domain.SourceKind, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("sources"))
	if raw == "" {
		return s.sources, nil
	}
	var kinds []domain.SourceKind
	for _, part := range strings.Split(raw, ",") {
		kind, err := domain.ParseSourceKind(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid sources parameter: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

func parseReportFilter(r *http.Request) (domain.ReportFilter, error) {
	var filter domain.ReportFilter
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, err := domain.ParseCategory(raw)
		if err != nil {
			return domain.ReportFilter{}, fmt.Errorf("invalid category parameter: %w", err)
		}
		filter.Category = &category
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.ReportFilter{}, fmt.Errorf("invalid since parameter: must be RFC 3339")
		}
		filter.Since = &since
	}
	return filter, nil
}

// writeDomainError maps domain error types onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var verr domain.ValidationError
	var serr domain.StorageError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrProviderTimeout):
		writeError(w, http.StatusGatewayTimeout, "geocoding provider timed out")
	case errors.Is(err, domain.ErrProviderUnreachable):
		writeError(w, http.StatusBadGateway, "geocoding provider unreachable")
	case errors.As(err, &serr):
		s.logger.Error("storage failure", "op", serr.Op, "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
	default:
		s.logger.Error("unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
