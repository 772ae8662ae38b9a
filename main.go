package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gigcal/config"
	"gigcal/cron"
	"gigcal/database"
	"gigcal/handlers"
	"gigcal/middleware"
	"gigcal/routes"
	"gigcal/services/availability"
	"gigcal/utils"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := utils.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := database.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("main: failed to open availability store", zap.Error(err))
	}
	defer backend.Close()

	if err := backend.Store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("main: failed to prepare availability store", zap.Error(err))
	}

	// services.
	svc := availability.NewAvailabilityService(backend.Store, availability.SettingsFromConfig(cfg), logger.Named("availability"))

	if cfg.ExpiryQueueEnabled {
		opt := cron.RedisQueueOpt(cfg)
		queue := cron.NewExpiryQueue(opt)
		defer queue.Close()
		svc.Expiry = queue

		worker := cron.NewExpiryWorker(opt, svc, logger.Named("expiry"))
		worker.Start()
		defer worker.Shutdown()
	}

	if cfg.ReaperEnabled {
		reaper, err := cron.NewReaper(svc, cfg.ReaperSchedule, logger.Named("reaper"))
		if err != nil {
			logger.Fatal("main: failed to schedule reaper", zap.Error(err))
		}
		reaper.Start()
		defer reaper.Stop()
	}

	health := utils.NewHealthMonitor(backend.Checks, 30*time.Second)
	health.Start(ctx)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	availabilityHandler := handlers.NewAvailabilityHandler(svc)
	adminHandler := handlers.NewAdminHandler(svc)
	calendarHandler := handlers.NewCalendarHandler(svc, cfg.CalendarName)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		JWTSecret:    cfg.JWTSecret,
		AdminKeyHash: cfg.AdminKeyHash,

		GetStatusHandler:  availabilityHandler.GetStatus,
		HoldHandler:       availabilityHandler.Hold,
		ConfirmHandler:    availabilityHandler.Confirm,
		CancelHoldHandler: availabilityHandler.CancelHold,
		CalendarHandler:   calendarHandler.Feed,

		AdminBlockHandler:   adminHandler.Block,
		AdminReleaseHandler: adminHandler.Release,
		AdminRangeHandler:   adminHandler.Range,

		Health: health,
	}
	if cfg.StripeWebhookSecret != "" {
		handlerBundle.StripeWebhookHandler = handlers.NewWebhookHandler(svc, cfg.StripeWebhookSecret).Stripe
	}
	if cfg.JWTSecret == "" {
		logger.Warn("main: JWT_SECRET is empty; user and admin tokens will be rejected")
	}

	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s (store=%s)...", srv.Addr, cfg.StoreBackend)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	<-ctx.Done()
	logger.Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}

	logger.Info("main: server stopped gracefully")
}
