package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"roomwatch.dev/roomwatch/pkg/metrics"
	"roomwatch.dev/roomwatch/pkg/mq"
)

// Server represents the roomwatch API server that manages the database,
// the HTTP gateway, the optional tag-read consumer, and the optional
// alert publisher.
type Server struct {
	logger      *slog.Logger
	db          *gorm.DB
	store       *Store
	mode        *ModeState
	consumer    *Consumer
	alertClient *mq.Client
	httpServer  *http.Server
	config      *ServerConfig
}

// ServerConfig holds the configuration for the Server.
type ServerConfig struct {
	Logger *slog.Logger

	// Database configuration
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// RabbitMQ configuration. An empty URL disables the AMQP ingest
	// path and the alert queue; the HTTP surface still works.
	RabbitMQURL string
	IngestQueue string
	AlertQueue  string

	// HTTP configuration
	HTTPPort int

	// Metrics is the optional Prometheus metrics collector
	Metrics *metrics.ServerMetrics

	// Database port
	DBPort int
}

// NewServer creates a new Server instance.
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.DBHost == "" {
		return nil, errors.New("database host cannot be empty")
	}

	if cfg.DBPort <= 0 {
		return nil, errors.New("database port must be positive")
	}

	if cfg.DBUser == "" {
		return nil, errors.New("database user cannot be empty")
	}

	if cfg.DBName == "" {
		return nil, errors.New("database name cannot be empty")
	}

	if cfg.HTTPPort <= 0 {
		return nil, errors.New("HTTP port must be positive")
	}

	if cfg.RabbitMQURL != "" {
		if cfg.IngestQueue == "" {
			return nil, errors.New("ingest queue name cannot be empty")
		}
		if cfg.AlertQueue == "" {
			return nil, errors.New("alert queue name cannot be empty")
		}
	}

	return &Server{
		logger: cfg.Logger,
		config: cfg,
	}, nil
}

// Run starts the API server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting roomwatch server")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Initialize database
	dbCfg := &DBConfig{
		Host:     s.config.DBHost,
		Port:     s.config.DBPort,
		User:     s.config.DBUser,
		Password: s.config.DBPassword,
		DBName:   s.config.DBName,
		SSLMode:  s.config.DBSSLMode,
		Logger:   s.logger,
	}

	db, err := NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	store, err := NewStore(s.logger, s.db)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if s.config.Metrics != nil {
		store.SetMetrics(s.config.Metrics)
	}
	s.store = store

	s.mode = NewModeState()

	s.logger.Info("storage initialized successfully")

	// Optional AMQP wiring: alert publisher and tag-read consumer.
	var alertPublisher mq.ClientInterface
	if s.config.RabbitMQURL != "" {
		s.alertClient = mq.New(s.config.AlertQueue, s.config.RabbitMQURL, s.logger.With(
			slog.String("component", "alert-mq-client"),
		))
		alertPublisher = s.alertClient

		consumer, err := NewConsumer(&ConsumerConfig{
			Logger:      s.logger.With(slog.String("component", "tag-read-consumer")),
			Store:       s.store,
			RabbitMQURL: s.config.RabbitMQURL,
			QueueName:   s.config.IngestQueue,
			Metrics:     s.config.Metrics,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize consumer: %w", err)
		}
		s.consumer = consumer

		if err := s.consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start consumer: %w", err)
		}
	} else {
		s.logger.Warn("no rabbitmq URL configured, alerts are log-only and AMQP ingest is disabled")
	}

	alerter := NewAlerter(s.logger, alertPublisher)
	if s.config.Metrics != nil {
		alerter.SetMetrics(s.config.Metrics)
	}

	// Initialize the ingestion gateway
	gateway, err := NewGateway(&GatewayConfig{
		Logger:  s.logger,
		Store:   s.store,
		Mode:    s.mode,
		Alerter: alerter,
		Metrics: s.config.Metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:           gateway.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("starting HTTP server", "address", s.httpServer.Addr)

	httpErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- fmt.Errorf("HTTP server error: %w", err)
		}
		close(httpErr)
	}()

	s.logger.Info("roomwatch server started successfully")

	// Wait for shutdown signal or HTTP error
	select {
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case <-ctx.Done():
		s.logger.Info("context canceled")
	case err := <-httpErr:
		if err != nil {
			s.logger.Error("HTTP server error", "error", err)
			cancel()
			return err
		}
	}

	return s.Shutdown()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down roomwatch server")

	var shutdownErr error

	// Stop HTTP server
	if s.httpServer != nil {
		s.logger.Info("stopping HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown HTTP server", "error", err)
			shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
		}
		s.logger.Info("HTTP server stopped")
	}

	// Stop consumer
	if s.consumer != nil {
		s.logger.Info("stopping consumer")
		if err := s.consumer.Stop(); err != nil {
			s.logger.Error("failed to stop consumer", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("consumer shutdown error: %w", err))
		}
	}

	// Close alert publisher
	if s.alertClient != nil {
		s.logger.Info("closing alert MQ client")
		if err := s.alertClient.Close(); err != nil {
			s.logger.Error("failed to close alert MQ client", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("alert client close error: %w", err))
		}
	}

	// Close database
	if s.db != nil {
		if err := CloseDB(s.db, s.logger); err != nil {
			s.logger.Error("failed to close database", "error", err)
			shutdownErr = joinShutdownErr(shutdownErr, fmt.Errorf("database close error: %w", err))
		}
	}

	if shutdownErr != nil {
		s.logger.Error("roomwatch server shutdown completed with errors", "error", shutdownErr)
		return shutdownErr
	}

	s.logger.Info("roomwatch server shutdown completed successfully")
	return nil
}

// joinShutdownErr chains shutdown errors so none are dropped.
func joinShutdownErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%w; %w", existing, next)
}
