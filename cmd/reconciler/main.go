package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commercekit/globalpay-reconciler/internal/application"
	"github.com/commercekit/globalpay-reconciler/internal/application/services"
	"github.com/commercekit/globalpay-reconciler/internal/config"
	"github.com/commercekit/globalpay-reconciler/internal/infrastructure/events"
	"github.com/commercekit/globalpay-reconciler/internal/infrastructure/gateway"
	"github.com/commercekit/globalpay-reconciler/internal/infrastructure/metrics"
	"github.com/commercekit/globalpay-reconciler/internal/infrastructure/persistence/postgres"
	"github.com/commercekit/globalpay-reconciler/internal/interfaces/rest/handlers"
	"github.com/commercekit/globalpay-reconciler/internal/interfaces/rest/middleware"
	"github.com/commercekit/globalpay-reconciler/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting reconciler service",
		"port", cfg.Server.Port,
		"live_mode", cfg.Merchant.Live,
		"log_level", cfg.Logger.Level,
	)

	ctx := context.Background()
	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	orderRepo := postgres.NewOrderRepository(db)

	gatewayClient := gateway.NewGatewayClient(cfg.Gateway, cfg.Merchant)
	retryGatewayClient := gateway.NewRetryGatewayClient(gatewayClient, cfg.Gateway)

	var publisher application.EventPublisher = events.NoopPublisher{}
	if cfg.Events.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Events)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	appKey := cfg.Merchant.AppKey()
	mapper := services.NewStatusMapper(logger)
	engine := services.NewEngine(orderRepo, retryGatewayClient, mapper, publisher, appKey, logger)
	reversalPolicy := services.NewReversalPolicy(cfg.Risk.AVSRejectCodes, cfg.Risk.CVNRejectCodes)
	directService := services.NewDirectPaymentService(orderRepo, retryGatewayClient, reversalPolicy, publisher, logger)
	hppFlow := services.NewHPPFlow(
		retryGatewayClient,
		appKey,
		cfg.HPP.StoreLabel,
		services.HPPURLs{
			CallbackBaseURL:  cfg.HPP.CallbackBaseURL,
			CheckoutURL:      cfg.HPP.CheckoutURL,
			OrderReceivedURL: cfg.HPP.OrderReceivedURL,
		},
		cfg.HPP.CountdownSeconds,
		logger,
	)

	m := metrics.New(prometheus.DefaultRegisterer)

	h := handlers.NewHandlers(engine, directService, hppFlow, m, logger)

	router := http.Handler(h.Routes())
	router = middleware.Recovery(logger)(router)
	router = middleware.Logging(logger)(router)
	router = middleware.Timeout(cfg.Server.ReadTimeout)(router)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper := worker.NewSweeper(
		orderRepo,
		retryGatewayClient,
		engine,
		cfg.Worker.Interval,
		cfg.Worker.StaleAge,
		cfg.Worker.BatchSize,
		logger,
	)

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	go sweeper.Start(workerCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}

func newLogger(cfg config.LoggerConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
