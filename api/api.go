// Package api serves the read-only faucet status endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/satoshifaucet/faucetd/database"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRecentLimit = 20
	requestTimeout     = 10 * time.Second
)

type Server struct {
	repository database.ReportRepository
}

func NewServer(repository database.ReportRepository) *Server {
	return &Server{repository: repository}
}

// NewHTTPServer wraps the status routes in an http.Server listening on addr.
func NewHTTPServer(addr string, repository database.ReportRepository) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewServer(repository).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/balance", s.handleBalance)
		r.Get("/summary", s.handleSummary)
		r.Route("/claims", func(r chi.Router) {
			r.Get("/", s.handleClaimsByDestination)
			r.Get("/recent", s.handleRecentClaims)
			r.Get("/{id}", s.handleClaim)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("api request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeInternalError logs err and answers with a generic message.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).WithField("path", r.URL.Path).Error("api request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}
