// Package chi is the HTTP transport: venue search, reindex trigger, search
// status, and health endpoints.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mandapcloud/venuesearch/internal/domain"
	"github.com/mandapcloud/venuesearch/internal/domain/reindex"
	"github.com/mandapcloud/venuesearch/internal/domain/search/query"
	"github.com/mandapcloud/venuesearch/internal/logger"
	healthuc "github.com/mandapcloud/venuesearch/internal/usecase/health"
	reindexuc "github.com/mandapcloud/venuesearch/internal/usecase/reindex"
	searchuc "github.com/mandapcloud/venuesearch/internal/usecase/search"
)

// Error codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeUnauthorized     = "unauthorized"
	codeUnknownTarget    = "unknown_target"
	codeEngineDisabled   = "engine_disabled"
	codeInternalError    = "internal_error"
)

// ErrorResponse is the JSON error body. Fields is present only for
// validation failures and lists every offending parameter.
type ErrorResponse struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Fields  []query.FieldError `json:"fields,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server wires the search, reindex, and health services to HTTP.
type Server struct {
	normalizer    *query.Normalizer
	search        *searchuc.Service
	runner        reindexuc.Runner
	health        *healthuc.Service
	logger        *zap.Logger
	adminKeys     []string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	normalizer *query.Normalizer,
	search *searchuc.Service,
	runner reindexuc.Runner,
	health *healthuc.Service,
	adminKeys []string,
	logger *zap.Logger,
) *Server {
	s := &Server{
		normalizer: normalizer,
		search:     search,
		runner:     runner,
		health:     health,
		adminKeys:  adminKeys,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnknownTarget, http.StatusBadRequest, codeUnknownTarget),
		sentinelHandler(domain.ErrEngineDisabled, http.StatusConflict, codeEngineDisabled),
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
	}
	return s
}

// Routes mounts all endpoints onto the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search/venues", s.SearchVenues)
	r.Get("/search/status", s.SearchStatus)
	r.With(AdminAuthMiddleware(s.adminKeys)).Post("/search/reindex", s.TriggerReindex)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// SearchVenues handles GET /search/venues.
func (s *Server) SearchVenues(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	q, err := s.normalizer.Normalize(query.Params{
		Text:      params.Get("q"),
		City:      params.Get("city"),
		Guests:    params.Get("guests"),
		MinPrice:  params.Get("minPrice"),
		MaxPrice:  params.Get("maxPrice"),
		Date:      params.Get("date"),
		Amenities: params["amenities"],
		SortBy:    params.Get("sortBy"),
		SortDir:   params.Get("sortDir"),
		Page:      params.Get("page"),
		Limit:     params.Get("limit"),
	})
	if err != nil {
		var fieldErrs query.FieldErrors
		if errors.As(err, &fieldErrs) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Code:    codeValidationFailed,
				Message: "invalid search parameters",
				Fields:  fieldErrs,
			})
			return
		}
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid search parameters")
		return
	}

	res, err := s.search.Search(r.Context(), &q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// reindexRequest is the POST /search/reindex body. Target defaults to venues.
type reindexRequest struct {
	Target string `json:"target"`
}

// reindexResponse reports a queued acknowledgment or an inline outcome.
// Indexed/Failed are present only for inline runs.
type reindexResponse struct {
	Status  string `json:"status"`
	Target  string `json:"target"`
	Indexed *int   `json:"indexed,omitempty"`
	Failed  *int   `json:"failed,omitempty"`
}

// TriggerReindex handles POST /search/reindex. The response shape depends on
// the runner mode: 202 with a queued acknowledgment when a broker is
// configured, 200 with the completed summary when the run happened inline.
func (s *Server) TriggerReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Target == "" {
		req.Target = reindex.TargetVenues
	}

	outcome, err := s.runner.Run(r.Context(), req.Target)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if outcome.Queued {
		writeJSON(w, http.StatusAccepted, reindexResponse{Status: "queued", Target: outcome.Target})
		return
	}

	writeJSON(w, http.StatusOK, reindexResponse{
		Status:  "done",
		Target:  outcome.Target,
		Indexed: &outcome.Summary.Indexed,
		Failed:  &outcome.Summary.Failed,
	})
}

// SearchStatus handles GET /search/status.
func (s *Server) SearchStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.search.Enabled()})
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status       string `json:"status"`
	DB           string `json:"db"`
	CacheBroker  string `json:"cacheBroker"`
	SearchEngine string `json:"searchEngine"`
	Timestamp    string `json:"timestamp"`
	LatencyMs    int64  `json:"latencyMs"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:       string(report.Status),
		DB:           string(report.DB.Status),
		CacheBroker:  string(report.Broker.Status),
		SearchEngine: string(report.Engine.Status),
		Timestamp:    report.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		LatencyMs:    report.LatencyMs,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
