package v1

import (
	"context"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/semenovpa/csv_importer/internal/config"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(cfg config.HTTP, imports *ImportHandler, webhooks *WebhookHandler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/upload", imports.Upload)
	r.Get("/export", imports.ExportCSV)
	r.Get("/export/pdf", imports.ExportPDF)
	r.Get("/sample", imports.Sample)
	r.Get("/health", imports.Health)
	r.Post("/obs-event", webhooks.HandleEvent)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/records", imports.ListRecords)
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			Handler:      r,
		},
	}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
