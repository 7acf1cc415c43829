package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"access-coordinator/src/config"
	"access-coordinator/src/db"
	"access-coordinator/src/events"
	"access-coordinator/src/middleware"
	"access-coordinator/src/rabbitmq"
	"access-coordinator/src/repository"
	"access-coordinator/src/router"
	"access-coordinator/src/service"
)

// Server represents the HTTP server
type Server struct {
	config          *config.GlobalConfig
	database        *db.DB
	publisher       *rabbitmq.AMQPPublisher
	scheduler       *service.ExpiryScheduler
	http            *http.Server
	shutdownHandler ShutdownHandlerInterface
}

// NewServer creates a new server instance with every component wired:
// database, repositories, change bus, RabbitMQ publisher, services and the
// expiry scheduler.
func NewServer(cfg *config.GlobalConfig) (*Server, error) {
	// Initialize database connection
	database, err := db.NewDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	publisher, err := rabbitmq.NewAMQPPublisher(cfg.AMQPURL())
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	hierarchy := cfg.Hierarchy()
	bus := events.NewBus()

	sessions := repository.NewSessionRepository(database)
	queue := repository.NewQueueRepository(database, hierarchy)
	extensions := repository.NewExtensionRepository(database)
	notifications := repository.NewNotificationRepository(database)
	logs := repository.NewLogRepository(database)
	resources := repository.NewResourceRepository(database)

	notifier := service.NewNotifier(notifications, publisher, bus)
	lifecycle := service.NewLifecycleService(sessions, queue, logs, notifier, bus, hierarchy,
		time.Duration(cfg.GuestSessionSeconds)*time.Second)
	extensionService := service.NewExtensionService(extensions, sessions, notifier, bus, hierarchy)
	admission := service.NewAdmissionService(resources, sessions, queue, lifecycle, notifier, bus, hierarchy)

	// The scheduler fires back into the lifecycle, so the timer wiring
	// happens after construction.
	scheduler := service.NewExpiryScheduler(lifecycle)
	lifecycle.SetTimers(scheduler)
	extensionService.SetTimers(scheduler)

	// Rebuild deadline timers for sessions that were active before a
	// restart. Overdue ones expire immediately.
	if err := scheduler.Resync(context.Background(), sessions); err != nil {
		publisher.Close()
		database.Close()
		return nil, fmt.Errorf("failed to resync expiry timers: %w", err)
	}

	r := router.NewRouter(router.Dependencies{
		Middleware: middleware.NewMiddleware(hierarchy),
		Admission:  admission,
		Lifecycle:  lifecycle,
		Extensions: extensionService,
		Notifier:   notifier,
		Logs:       logs,
		Bus:        bus,
	})

	server := &Server{
		config:    cfg,
		database:  database,
		publisher: publisher,
		scheduler: scheduler,
		http: &http.Server{
			Addr:    fmt.Sprintf("%s:%s", cfg.GetHost(), cfg.GetPort()),
			Handler: r,
		},
	}

	// Create and assign shutdown handler
	server.shutdownHandler = NewShutdownHandler(server)

	return server, nil
}

// Run starts the server with graceful shutdown using ShutdownHandler
func (s *Server) Run() error {
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, syscall.SIGINT, syscall.SIGTERM)

	serverDone := s.startServerGoroutine()

	return s.shutdownHandler.HandleShutdown(serverDone, osSignals)
}

// startServerGoroutine starts the HTTP server in a goroutine and returns a channel for errors
func (s *Server) startServerGoroutine() chan error {
	serverDone := make(chan error, 1)

	go func() {
		slog.Info("Starting access coordinator",
			"host", s.config.GetHost(),
			"port", s.config.GetPort())

		serverDone <- s.startServer()
	}()

	return serverDone
}

// startServer starts the HTTP server and handles errors
func (s *Server) startServer() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
