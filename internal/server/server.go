package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/services"
	httphandlers "streamqa/internal/handlers/http"
	"streamqa/internal/infrastructure/monitoring"
	repositories "streamqa/internal/infrastructure/repositories"
	"streamqa/internal/infrastructure/streaming"
	"streamqa/pkg/config"
	"streamqa/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// Server is one mock streaming server instance. All state it serves is
// owned by the instance; several servers can run in one process.
type Server struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	repos    *repositories.RepositoryFactory
	network  *services.NetworkService
	tracer   *tracing.TracerProvider
	registry *prometheus.Registry
	router   *gin.Engine
	http     *http.Server

	mu       sync.Mutex
	listener net.Listener
	serveErr chan error
}

// Option customises a Server.
type Option func(*options)

type options struct {
	sleep services.Sleeper
}

// WithSleeper replaces the real sleep used for simulated delays.
func WithSleeper(sleep services.Sleeper) Option {
	return func(o *options) { o.sleep = sleep }
}

// New builds the server from configuration. Nothing listens until Start or Serve.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := logger.Sugar()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tracer, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	repos, err := repositories.NewRepositoryFactory(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository factory: %w", err)
	}

	initial := domain.InitialServerState(domain.NetworkCondition(cfg.Network.InitialCondition))
	repo, err := repos.CreateStateRepository(ctx, initial)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("failed to create state repository: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := monitoring.NewPrometheusCollector(registry)
	collector.SetCondition("", initial.Condition.String(), initial.Bitrate)

	network := services.NewNetworkService(repo, services.NetworkServiceOptions{
		SimulateDelay: cfg.Network.SimulateDelay,
		Seed:          cfg.Network.Seed,
		Sleep:         o.sleep,
		Metrics:       collector,
		Logger:        log,
	})

	health := monitoring.NewHealthChecker()
	health.AddRepositoryCheck(repo, 2*time.Second)
	if repos.UsesRedis() {
		health.AddPingCheck("redis", repos.HealthCheck, 2*time.Second)
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httphandlers.NewRouter(httphandlers.RouterDeps{
		Config:    cfg,
		Logger:    logger,
		Network:   network,
		Assets:    streaming.NewSegmenter(cfg.Segments.Count, cfg.Segments.SizeBytes, cfg.Segments.Duration, log),
		Collector: collector,
		Gatherer:  registry,
		Health:    health,
	})

	return &Server{
		cfg:      cfg,
		log:      log,
		repos:    repos,
		network:  network,
		tracer:   tracer,
		registry: registry,
		router:   router,
		http: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		serveErr: make(chan error, 1),
	}, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// State returns the current server state.
func (s *Server) State(ctx context.Context) (domain.ServerState, error) {
	return s.network.State(ctx)
}

// Serve accepts connections on l until Shutdown. It always returns a non-nil
// error; http.ErrServerClosed after a clean shutdown.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.log.Infow("mock streaming server listening",
		"address", l.Addr().String(),
		"condition", s.cfg.Network.InitialCondition,
		"simulate_delay", s.cfg.Network.SimulateDelay,
	)
	return s.http.Serve(l)
}

// Start listens on the configured address and serves in the background.
// Errors after startup are reported on Err.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Address, err)
	}
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	go func() {
		if err := s.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.serveErr <- err
		}
	}()
	return nil
}

// Err reports a serve failure after Start.
func (s *Server) Err() <-chan error {
	return s.serveErr
}

// URL is the base URL clients should use, valid once listening.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	addr := s.listener.Addr().(*net.TCPAddr)
	host := addr.IP.String()
	if addr.IP == nil || addr.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(addr.Port)))
}

// Shutdown stops accepting requests, waits for in-flight ones and releases
// the state store and tracer.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Errorw("error during server shutdown", "error", err)
		if closeErr := s.http.Close(); closeErr != nil {
			s.log.Errorw("error force closing server", "error", closeErr)
		}
		errs = append(errs, err)
	}
	if err := s.repos.Close(); err != nil {
		s.log.Errorw("error closing repository factory", "error", err)
		errs = append(errs, err)
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.log.Errorw("error shutting down tracer", "error", err)
		errs = append(errs, err)
	}

	s.log.Info("mock streaming server stopped")
	return errors.Join(errs...)
}

// Run starts the server and blocks until ctx is cancelled or serving fails,
// then shuts down within the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	var serveErr error
	select {
	case serveErr = <-s.serveErr:
		s.log.Errorw("server failed", "error", serveErr)
	case <-ctx.Done():
		s.log.Infow("shutting down", "reason", context.Cause(ctx))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return errors.Join(serveErr, s.Shutdown(shutdownCtx))
}
