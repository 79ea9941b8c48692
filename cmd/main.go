package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tableside/internal/cart"
	"tableside/internal/checkout"
	"tableside/internal/config"
	"tableside/internal/database"
	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/services/admin"
	"tableside/internal/services/customer"
	"tableside/internal/services/kitchen"
	"tableside/internal/services/notification"
)

func main() {
	var (
		mode     = flag.String("mode", "", "Service mode (customer-service, admin-service, kitchen-service, notification-subscriber)")
		port     = flag.Int("port", 3000, "HTTP port")
		interval = flag.Duration("interval", kitchen.DefaultInterval, "Kitchen progression interval")
		prefetch = flag.Int("prefetch", 1, "RabbitMQ prefetch count")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", requestID, fmt.Sprintf("Starting %s", *mode),
		map[string]any{"mode": *mode, "port": *port})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch *mode {
	case "customer-service":
		err = runCustomerService(ctx, cfg, log, *port)
	case "admin-service":
		err = runAdminService(ctx, cfg, log, *port)
	case "kitchen-service":
		err = runKitchenService(ctx, cfg, log, *interval)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, log, *prefetch)
	default:
		log.Error("validation_failed", requestID, fmt.Sprintf("Unknown mode: %s", *mode), nil, nil)
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("service_failed", requestID, fmt.Sprintf("%s failed", *mode), err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", requestID, "Service stopped gracefully", nil)
}

func runCustomerService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", requestID, "Connected to PostgreSQL database", nil)

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", requestID, "Connected to RabbitMQ", nil)

	publisher := messaging.NewPublisher(conn, log)
	orders := checkout.NewPostgresStore(db)

	service := customer.NewService(db, cart.NewStore(), orders, publisher, log)
	handler := customer.NewHandler(service, log)

	return serveHTTP(ctx, log, port, "Customer service", handler.SetupRoutes())
}

func runAdminService(ctx context.Context, cfg *config.Config, log *logger.Logger, port int) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", requestID, "Connected to PostgreSQL database", nil)

	if err := db.RunMigrations(ctx, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", requestID, "Connected to RabbitMQ", nil)

	publisher := messaging.NewPublisher(conn, log)

	service := admin.NewService(db, publisher, log)
	handler := admin.NewHandler(service, log)

	return serveHTTP(ctx, log, port, "Admin service", handler.SetupRoutes())
}

func runKitchenService(ctx context.Context, cfg *config.Config, log *logger.Logger, interval time.Duration) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", requestID, "Connected to PostgreSQL database", nil)

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", requestID, "Connected to RabbitMQ", nil)

	publisher := messaging.NewPublisher(conn, log)

	return kitchen.New(db, publisher, log, interval).Run(ctx)
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	requestID := logger.GenerateRequestID()

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}
	defer conn.Close()

	log.Info("rabbitmq_connected", requestID, "Connected to RabbitMQ", nil)

	consumer := messaging.NewConsumer(conn, log, messaging.NotificationQueue, "notification-subscriber", prefetch)
	subscriber := notification.NewSubscriber(consumer, log)
	defer subscriber.Close()

	return subscriber.Start(ctx)
}

func serveHTTP(ctx context.Context, log *logger.Logger, port int, name string, handler http.Handler) error {
	requestID := logger.GenerateRequestID()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		log.Info("http_listening", requestID, fmt.Sprintf("%s listening on port %d", name, port),
			map[string]any{"port": port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_failed", requestID, "HTTP server failed", err, nil)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
