package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nadavlev/hebscribe/internal/api/handlers"
	"github.com/nadavlev/hebscribe/internal/config"
	"github.com/nadavlev/hebscribe/internal/core"
	"github.com/nadavlev/hebscribe/internal/core/batch_engine"
	"github.com/nadavlev/hebscribe/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, svc *batch_engine.Service, obj core.ObjectClient, history *services.History) *Server {
	queueHandler := handlers.NewQueueHandler(svc, obj, cfg)
	batchHandler := handlers.NewBatchHandler(svc)
	historyHandler := handlers.NewHistoryHandler(history)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Uploads of large scanned PDFs can be slow; keep the window generous.
	r.Use(middleware.Timeout(10 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// Serve the single-screen client from the web directory
	fileServer := http.FileServer(http.Dir("./web"))
	r.Handle("/*", fileServer)

	// API routes
	r.Route("/api", func(api chi.Router) {
		api.Post("/files", queueHandler.UploadFiles)
		api.Get("/files", queueHandler.ListFiles)
		api.Delete("/files/{id}", queueHandler.RemoveFile)
		api.Get("/files/{id}/result", queueHandler.GetResult)

		api.Post("/batch", batchHandler.Start)
		api.Get("/batch", batchHandler.Status)

		api.Get("/export", queueHandler.Export)

		api.Get("/history", historyHandler.List)
		api.Delete("/history", historyHandler.Clear)

		api.Post("/reset", queueHandler.Reset)
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
