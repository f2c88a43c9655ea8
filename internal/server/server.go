// Package server provides the reference station accessibility API: a JSON
// HTTP server over a SQL station database, with CSV import and Prometheus
// metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/huangsam/barriernavi/internal/contract"
)

// Server timeouts.
const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server wires the repository, service, handlers and metrics together.
type Server struct {
	cfg     *contract.Config
	repo    Repository
	service *StationService
	metrics *Collector
	router  *mux.Router
}

// New creates a server over repo using the address, threshold and import
// settings in cfg.
func New(cfg *contract.Config, repo Repository) *Server {
	s := &Server{
		cfg:     cfg,
		repo:    repo,
		service: NewStationService(repo, cfg.Thresholds),
		metrics: NewCollector(),
		router:  mux.NewRouter(),
	}

	handler := NewStationHandler(s.service, repo, s.metrics)
	handler.RegisterRoutes(s.router)
	s.router.Use(handler.instrument)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Service returns the station service, which implements contract.StationAPI.
func (s *Server) Service() *StationService {
	return s.service
}

// Import replaces the station table with a CSV file and updates metrics.
func (s *Server) Import(ctx context.Context, path string) (ImportResult, error) {
	start := time.Now()
	result, err := ImportFile(ctx, s.repo, path)
	s.metrics.RecordImport(result.Imported, err)
	if err != nil {
		return result, err
	}
	contract.LogInfo("Imported %d stations from %s (%d skipped) in %s",
		result.Imported, path, result.Skipped, time.Since(start).Round(time.Millisecond))
	return result, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully. When an
// import file is configured it is loaded first, and re-loaded on the reload
// schedule if one is set.
func (s *Server) Run(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("station database unavailable: %w", err)
	}

	if s.cfg.ImportFile != "" {
		if _, err := s.Import(ctx, s.cfg.ImportFile); err != nil {
			return fmt.Errorf("initial import failed: %w", err)
		}
	} else if count, err := s.repo.CountStations(ctx); err == nil {
		s.metrics.StationsLoaded.Set(float64(count))
	}

	if s.cfg.ReloadSchedule != "" {
		scheduler, err := NewReloadScheduler(s.cfg.ReloadSchedule, func() {
			if _, err := s.Import(ctx, s.cfg.ImportFile); err != nil {
				contract.LogWarn("scheduled import failed", err)
			}
		})
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
		contract.LogInfo("Reloading %s on schedule %q, next at %s", s.cfg.ImportFile, s.cfg.ReloadSchedule, scheduler.Next())
	}

	listener, err := net.Listen("tcp", s.cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ServerAddr, err)
	}
	return s.serve(ctx, listener)
}

// serve runs the HTTP server on listener until ctx is done.
func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		contract.LogInfo("Barrier Navi API listening on %s", listener.Addr())
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	contract.LogInfo("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	contract.LogInfo("Server stopped")
	return nil
}
