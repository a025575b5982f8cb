package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/snapwatch/worker/internal/adapters/http/handlers"
	"github.com/snapwatch/worker/internal/adapters/http/middleware"
	"github.com/snapwatch/worker/internal/application/usecases"
	"github.com/snapwatch/worker/internal/config"
	"github.com/snapwatch/worker/internal/ports"
)

// Server is the worker's HTTP surface: health, metrics and the
// browser-backed editor endpoints. It serves a trusted internal
// network and carries no authentication.
type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
	engine     ports.CaptureEngine

	generateScript     *usecases.GenerateScript
	testScript         *usecases.TestScript
	discoverPages      *usecases.DiscoverPages
	compareScreenshots *usecases.CompareScreenshots
}

func NewServer(
	cfg *config.Config,
	engine ports.CaptureEngine,
	generateScript *usecases.GenerateScript,
	testScript *usecases.TestScript,
	discoverPages *usecases.DiscoverPages,
	compareScreenshots *usecases.CompareScreenshots,
) *Server {
	s := &Server{
		config:             cfg,
		engine:             engine,
		generateScript:     generateScript,
		testScript:         testScript,
		discoverPages:      discoverPages,
		compareScreenshots: compareScreenshots,
	}

	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)

	healthHandler := handlers.NewHealthHandler(s.engine)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	scriptsHandler := handlers.NewScriptsHandler(s.generateScript, s.testScript)
	r.Post("/generate-script", scriptsHandler.GenerateScript)
	r.Post("/generate-test", scriptsHandler.GenerateTest)
	r.Post("/generate-action-script", scriptsHandler.GenerateActionScript)
	r.Post("/generate-action-test", scriptsHandler.GenerateActionTest)
	r.Post("/test-script", scriptsHandler.TestScript)

	discoverHandler := handlers.NewDiscoverHandler(s.discoverPages)
	r.Post("/discover-pages", discoverHandler.Discover)

	compareHandler := handlers.NewCompareHandler(s.compareScreenshots)
	r.Post("/compare-screenshots", compareHandler.Compare)

	s.router = r
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Generation and trial runs hold a response open while a
		// browser is acquired and driven, so no write timeout.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the chi router for tests
func (s *Server) Router() *chi.Mux {
	return s.router
}
