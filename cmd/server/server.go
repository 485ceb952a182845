// cmd/server/server.go
package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/valpere/CellarScrapexter/internal/monitoring"
	"github.com/valpere/CellarScrapexter/internal/pipeline"
	"github.com/valpere/CellarScrapexter/internal/utils"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// server exposes health, metrics and single-wine resolution to operators.
type server struct {
	resolver pipeline.ImageResolver
	health   *monitoring.HealthManager
	metrics  *monitoring.Metrics
	logger   utils.Logger

	// apiKey guards /api when non-empty
	apiKey string
	// limiter bounds /api requests; nil disables limiting
	limiter *rate.Limiter
}

type resolveResponse struct {
	Wine     types.WineKey  `json:"wine"`
	URL      string         `json:"url"`
	Strategy types.Strategy `json:"strategy"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/health", s.health.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimit, s.authenticate)
	api.HandleFunc("/resolve", s.handleResolve).Methods(http.MethodGet)

	return r
}

// handleResolve runs the cascade for the wine described by the query string:
// name (required), producer, vintage and varietal.
func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	key := types.WineKey{
		Name:     strings.TrimSpace(q.Get("name")),
		Producer: strings.TrimSpace(q.Get("producer")),
		Varietal: strings.TrimSpace(q.Get("varietal")),
	}
	if key.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "name is required"})
		return
	}
	if raw := q.Get("vintage"); raw != "" && !strings.EqualFold(raw, "NV") {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1800 || year > 2200 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "vintage must be a year or NV"})
			return
		}
		key.Vintage = types.IntPtr(year)
	}
	if key.Producer == "" {
		key.Producer = types.UnknownProducer
	}
	if key.Varietal == "" {
		key.Varietal = types.DefaultVarietal
	}

	candidate := s.resolver.Resolve(r.Context(), key)
	writeJSON(w, http.StatusOK, resolveResponse{Wine: key, URL: candidate.URL, Strategy: candidate.Strategy})
}

func (s *server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
			return
		}
		if strings.TrimPrefix(authHeader, "Bearer ") != s.apiKey {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
