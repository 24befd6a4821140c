// Package web provides the HTTP API and the upload page for picking imports.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/pickimport/internal/config"
	"github.com/JonMunkholm/pickimport/internal/core"
	"github.com/JonMunkholm/pickimport/internal/web/middleware"
)

// ImportService is the part of core.Service the handlers use.
type ImportService interface {
	ImportFile(ctx context.Context, pickingID int64, file core.UploadedFile, opts core.ImportOptions) (*core.ImportResult, error)
	LoadPicking(ctx context.Context, pickingID int64) (core.Picking, error)
	ImportHistory(ctx context.Context, pickingID int64, limit int) ([]core.ImportRecord, error)
	Template() ([]byte, error)
	Ping(ctx context.Context) error
	LimiterStatus() core.LimiterStatus
}

var _ ImportService = (*core.Service)(nil)

// Server is the HTTP server for picking imports.
type Server struct {
	service ImportService
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server with all middleware and routes installed.
func NewServer(service ImportService, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Upload page. The form post writes moves, so it sits behind the same key
	// check as the API; a fronting proxy adds X-API-Key for browsers.
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/pickings/{pickingID}/import", s.handleImportPage)
		r.Post("/pickings/{pickingID}/import", s.handleImportForm)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/import-template", s.handleDownloadTemplate)
		r.Post("/pickings/{pickingID}/import", s.handleImport)
		r.Get("/pickings/{pickingID}/imports", s.handleImportHistory)
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("http server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
