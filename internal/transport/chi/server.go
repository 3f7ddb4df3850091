// Package chi implements the aggregator's HTTP transport.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/retrievex/internal/config"
	"github.com/kailas-cloud/retrievex/internal/domain"
	logpkg "github.com/kailas-cloud/retrievex/internal/logger"
	healthuc "github.com/kailas-cloud/retrievex/internal/usecase/health"
	"github.com/kailas-cloud/retrievex/internal/usecase/retrieve"
)

// Defaults holds the call-wide retrieval defaults a request can override.
type Defaults struct {
	Grading       bool
	Decomposition bool
	Rerank        config.RerankConfig
	Timeout       time.Duration
}

// Server handles the aggregation API. Each search request derives its own
// effective configuration from the configured defaults plus request
// overrides; shared dependencies are read-only.
type Server struct {
	registry   retrieve.Registry
	searcher   retrieve.SourceSearcher
	decomposer retrieve.Decomposer
	reranker   retrieve.Reranker
	sources    config.SourcesConfig
	defaults   Defaults
	health     *healthuc.Service
	logger     *zap.Logger
}

// NewServer creates the HTTP transport. decomposer and reranker may be nil
// when the corresponding capability is not wired.
func NewServer(
	registry retrieve.Registry,
	searcher retrieve.SourceSearcher,
	decomposer retrieve.Decomposer,
	reranker retrieve.Reranker,
	sources config.SourcesConfig,
	defaults Defaults,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		registry:   registry,
		searcher:   searcher,
		decomposer: decomposer,
		reranker:   reranker,
		sources:    sources,
		defaults:   defaults,
		health:     health,
		logger:     logger,
	}
}

// Routes registers the API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.handleSearch)
	r.Post("/v1/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query is required")
		return
	}

	set, selector, err := mergeSources(s.sources, req.Services)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	svc := retrieve.New(s.registry, s.searcher, set, logpkg.FromContext(r.Context())).
		WithSelector(selector).
		WithTimeout(s.defaults.Timeout)

	grading := s.defaults.Grading
	if req.Grading != nil {
		grading = *req.Grading
	}
	svc.WithGrading(grading)

	decomposition := s.defaults.Decomposition
	if req.Decomposition != nil {
		decomposition = *req.Decomposition
	}
	if decomposition && s.decomposer != nil {
		svc.WithDecomposition(s.decomposer)
	}

	if rerank, ok := s.rerankSettings(req.Rerank); ok && s.reranker != nil {
		svc.WithRerank(s.reranker, rerank.MaxDocuments, rerank.MinConfidence)
	}

	resp, err := svc.Retrieve(r.Context(), req.Query, req.User)
	if err != nil {
		s.writeRetrieveError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Documents: toDocumentDTOs(resp.Documents),
		Warnings:  resp.Warnings,
		Grading:   resp.Grading,
	})
}

// rerankSettings merges the request rerank block over the configured
// defaults. Rerank runs when enabled in config or requested explicitly.
func (s *Server) rerankSettings(params *rerankParams) (config.RerankConfig, bool) {
	settings := s.defaults.Rerank
	if params == nil {
		return settings, settings.Enabled
	}
	if params.MaxDocuments != nil {
		settings.MaxDocuments = *params.MaxDocuments
	}
	if params.ConfidenceThreshold != nil {
		settings.MinConfidence = *params.ConfidenceThreshold
	}
	return settings, true
}

func (s *Server) writeRetrieveError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())

	switch {
	case errors.Is(err, domain.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "unknown_source", err.Error())
	case errors.Is(err, domain.ErrAllSourcesFailed), errors.Is(err, domain.ErrNoSources):
		logger.Error("retrieval failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "sources_unavailable", err.Error())
	default:
		logger.Error("retrieval failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
