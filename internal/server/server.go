package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/assembly"
	"github.com/jackzampolin/binder/internal/config"
	"github.com/jackzampolin/binder/internal/convert"
	"github.com/jackzampolin/binder/internal/dropbox"
	"github.com/jackzampolin/binder/internal/home"
	"github.com/jackzampolin/binder/internal/jobs"
	"github.com/jackzampolin/binder/internal/ocr"
	"github.com/jackzampolin/binder/internal/packet"
	"github.com/jackzampolin/binder/internal/pdf"
	"github.com/jackzampolin/binder/internal/report"
	"github.com/jackzampolin/binder/internal/server/endpoints"
	"github.com/jackzampolin/binder/internal/svcctx"
)

// Server is the main Binder HTTP server.
// When the Gotenberg container is managed it owns the container lifecycle,
// starting it on server start and stopping it on server shutdown.
type Server struct {
	httpServer *http.Server
	gotenberg  *convert.DockerManager // nil when the container is unmanaged
	converter  *convert.Gotenberg
	jobManager *jobs.Manager
	scheduler  *jobs.Scheduler
	packets    *packet.Service
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	// stopWorkers cancels the worker pool on shutdown
	stopWorkers context.CancelFunc

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the binder home directory holding work and output files
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// GotenbergLabels are extra labels for a managed container (used by
	// tests for cleanup)
	GotenbergLabels map[string]string
	// SwaggerSpecPath overrides the swagger.json location
	SwaggerSpecPath string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}

	binderCfg := config.DefaultConfig()
	if cfg.ConfigManager != nil {
		binderCfg = cfg.ConfigManager.Get()
	}

	var gotenberg *convert.DockerManager
	if binderCfg.Gotenberg.Managed {
		var err error
		gotenberg, err = convert.NewDockerManager(convert.DockerConfig{
			ContainerName: binderCfg.Gotenberg.ContainerName,
			Image:         binderCfg.Gotenberg.Image,
			HostPort:      binderCfg.Gotenberg.Port,
			Labels:        cfg.GotenbergLabels,
			Logger:        cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gotenberg manager: %w", err)
		}
	}

	converter := convert.NewGotenberg(convert.GotenbergConfig{
		BaseURL: binderCfg.GotenbergBaseURL(),
		Retries: binderCfg.Gotenberg.Retries,
		Timeout: time.Duration(binderCfg.Gotenberg.TimeoutSeconds) * time.Second,
		Logger:  cfg.Logger,
	})

	s := &Server{
		gotenberg: gotenberg,
		converter: converter,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{SwaggerSpecPath: cfg.SwaggerSpecPath}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the server and, when managed, the Gotenberg container.
// It blocks until the context is cancelled or an error occurs.
// If an existing Gotenberg container exists, it validates the configuration
// matches.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	binderCfg := s.binderConfig()

	if s.gotenberg != nil {
		// Validate any existing container matches our config
		if err := s.gotenberg.ValidateExisting(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("existing Gotenberg container incompatible: %w", err)
		}

		s.logger.Info("starting Gotenberg")
		if err := s.gotenberg.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start Gotenberg: %w", err)
		}
	}

	// Verify the converter is reachable
	if err := s.converter.Healthy(ctx); err != nil {
		_ = s.shutdown() // Clean up Gotenberg on failure
		return fmt.Errorf("gotenberg health check failed: %w", err)
	}
	s.logger.Info("gotenberg is ready", "url", binderCfg.GotenbergBaseURL())

	// Create job manager and scheduler
	s.jobManager = jobs.NewManager(s.logger)
	s.scheduler = jobs.NewScheduler(jobs.SchedulerConfig{
		Manager: s.jobManager,
		Logger:  s.logger,
	})

	// Build the packet assembly service
	var reporter report.StatusReporter = report.NewSlog(s.logger)
	if binderCfg.Status.WebhookURL != "" {
		reporter = report.Multi(reporter,
			report.NewWebhook(binderCfg.Status.WebhookURL, binderCfg.Status.Retries, s.logger))
	}

	engine := assembly.New(assembly.Config{
		Converter: s.converter,
		Separators: &pdf.SeparatorFactory{
			FontName: binderCfg.Assembly.SeparatorFont,
			FontSize: binderCfg.Assembly.SeparatorFontSize,
			Paper:    binderCfg.Assembly.SeparatorPaper,
		},
		Logger: s.logger,
	})

	s.packets = packet.NewService(packet.Config{
		Engine:     engine,
		Reporter:   reporter,
		WorkRoot:   s.home.WorkPath(),
		OutputRoot: s.home.OutputPath(),
		Logger:     s.logger,
	})

	// Dropbox client, only when credentials are configured
	var dbx *dropbox.Client
	if binderCfg.DropboxConfigured() {
		resolved := binderCfg.ResolvedDropbox()
		dcfg := dropbox.Config{Token: resolved.Token, Logger: s.logger}
		if resolved.TokenServiceURL != "" {
			dcfg.Tokens = dropbox.NewTokenService(resolved.TokenServiceURL,
				resolved.TokenServiceSignature, resolved.TokenServiceName, s.logger)
		}
		dbx = dropbox.New(dcfg)
		s.logger.Info("dropbox source enabled")
	}

	// OCR service for extraction jobs
	ocrSvc, err := ocr.NewService(ocr.Config{
		DPI:    binderCfg.OCR.DPI,
		Lang:   binderCfg.OCR.Lang,
		Logger: s.logger,
	})
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to create ocr service: %w", err)
	}

	// Start the worker pool. Workers outlive the request contexts, so they
	// run on their own context that shutdown cancels.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	s.stopWorkers = stopWorkers
	depsCtx := jobs.ContextWithDeps(workerCtx, jobs.Dependencies{
		Packets: s.packets,
		OCR:     ocrSvc,
		Logger:  s.logger,
	})
	workers := binderCfg.Jobs.Workers
	if workers <= 0 {
		workers = 1
	}
	s.scheduler.RunWorkers(depsCtx, workers)

	// Create services struct for context enrichment
	s.services = &svcctx.Services{
		JobManager: s.jobManager,
		Scheduler:  s.scheduler,
		Packets:    s.packets,
		Dropbox:    dbx,
		Config:     s.configMgr,
		Home:       s.home,
		Logger:     s.logger,
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown() // Clean up Gotenberg on HTTP error
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server, the worker pool,
// and the Gotenberg container when managed.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Stop workers
	if s.stopWorkers != nil {
		s.stopWorkers()
	}

	// Stop Gotenberg
	if s.gotenberg != nil {
		s.logger.Info("stopping Gotenberg")
		if err := s.gotenberg.Stop(shutdownCtx); err != nil {
			s.logger.Error("Gotenberg stop error", "error", err)
		}

		// Close Docker client
		if err := s.gotenberg.Close(); err != nil {
			s.logger.Error("Gotenberg manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// binderConfig returns the live configuration, falling back to defaults
// when no config manager is wired.
func (s *Server) binderConfig() *config.Config {
	if s.configMgr != nil {
		return s.configMgr.Get()
	}
	return config.DefaultConfig()
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// JobManager returns the job manager.
// Returns nil if the server hasn't started yet.
func (s *Server) JobManager() *jobs.Manager {
	return s.jobManager
}

// Scheduler returns the job scheduler.
// Returns nil if the server hasn't started yet.
func (s *Server) Scheduler() *jobs.Scheduler {
	return s.scheduler
}

// Packets returns the packet assembly service.
// Returns nil if the server hasn't started yet.
func (s *Server) Packets() *packet.Service {
	return s.packets
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the job system or packet service
// aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.packets == nil || s.scheduler == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
