package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/iskanderovv/filemaster/internal/config"
	"github.com/iskanderovv/filemaster/internal/logging"
	"github.com/iskanderovv/filemaster/internal/uploads"
)

type Server struct {
	uploadSvc *uploads.Service
	cfg       config.ServerConfig
	logger    *logging.Logger
	server    *http.Server
}

func New(uploadSvc *uploads.Service, cfg config.ServerConfig, logger *logging.Logger) *Server {
	return &Server{
		uploadSvc: uploadSvc,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	// File routes
	fileAPI := NewFileAPI(s.uploadSvc, s.logger)
	fileAPI.RegisterRoutes(mux, s.corsMiddleware)

	// Progress routes
	progressAPI := NewProgressAPI(s.uploadSvc.Tracker(), s.logger)
	progressAPI.RegisterRoutes(mux, s.corsMiddleware)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	origin := "*"
	if len(s.cfg.CORSOrigins) > 0 {
		origin = strings.Join(s.cfg.CORSOrigins, ", ")
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
