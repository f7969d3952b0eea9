package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/alert"
	"github.com/careloop/intake-review-api/internal/audit"
	"github.com/careloop/intake-review-api/internal/claims"
	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/config"
	"github.com/careloop/intake-review-api/internal/dao"
	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/handlers"
	"github.com/careloop/intake-review-api/internal/lifecycle"
	"github.com/careloop/intake-review-api/internal/monitor"
	"github.com/careloop/intake-review-api/internal/router"
	"github.com/careloop/intake-review-api/internal/safety"
	"github.com/careloop/intake-review-api/internal/service"
	"github.com/careloop/intake-review-api/internal/worker"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	logger.WithFields(logrus.Fields{
		"version":    version,
		"build_date": buildDate,
	}).Info("Starting Intake Review API Server...")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	logger.WithField("log_level", logger.GetLevel().String()).Info("Configuration loaded successfully")

	// Database
	db, err := database.Initialize(&cfg.Database.Intake, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelHealth()
	if err := db.HealthCheck(healthCtx); err != nil {
		logger.WithError(err).Fatal("Database health check failed")
	}

	logger.Info("Database connection established successfully")

	// DAOs and shared plumbing
	requestDAO := dao.NewRequestDAO(db)
	auditDAO := dao.NewAuditDAO(db)
	clk := clock.System{}

	auditSink := audit.NewDBSink(auditDAO, clk, logger)

	var alertSink alert.Sink = alert.NewLogSink(logger)
	if cfg.Alerting.Enabled {
		alertSink = alert.NewWebhookSink(&cfg.Alerting, logger)
	}

	// Safety rules
	ruleProvider, err := safety.LoadRules(cfg.Rules.File, cfg.Rules.Watch, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load safety rules")
	}

	engine := safety.NewEngine(ruleProvider, auditSink, clk, logger)
	stateMachine := lifecycle.NewStateMachine(requestDAO, auditSink, clk, logger)

	claimManager := claims.NewManager(requestDAO, auditSink, alertSink, clk, claims.Config{
		Timeout:          cfg.Review.ClaimTimeout,
		WarningThreshold: cfg.Review.ClaimWarningThreshold,
	}, logger)

	healthMonitor := monitor.NewQueueHealthMonitor(requestDAO, alertSink, clk, cfg.Review.SLAMaxWait, logger)

	intakeService := service.NewIntakeService(
		requestDAO,
		auditDAO,
		engine,
		stateMachine,
		claimManager,
		db,
		clk,
		cfg.Review.CertificateValidity,
		logger,
	)

	logger.Info("Services initialized successfully")

	// Background tasks
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	runner := worker.NewRunner(logger,
		worker.Task{
			Name:     "stale-claim-sweep",
			Interval: cfg.Review.SweepInterval,
			Run: func(ctx context.Context) error {
				_, err := claimManager.SweepStaleClaims(ctx)
				return err
			},
		},
		worker.Task{
			Name:     "queue-sla-check",
			Interval: cfg.Review.SLACheckInterval,
			Run: func(ctx context.Context) error {
				_, err := healthMonitor.CheckHealth(ctx)
				return err
			},
		},
		worker.Task{
			Name:     "certificate-expiry",
			Interval: cfg.Review.ExpiryCheckInterval,
			Run: func(ctx context.Context) error {
				_, err := intakeService.ExpireCertificates(ctx)
				return err
			},
		},
	)
	runner.Start(workerCtx)

	// HTTP surface
	intakeHandler := handlers.NewIntakeHandler(intakeService)
	reviewHandler := handlers.NewReviewHandler(intakeService)
	queueHandler := handlers.NewQueueHandler(intakeService, healthMonitor, claimManager)

	healthHandler := func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version})
	}

	ginRouter := router.Setup(intakeHandler, reviewHandler, queueHandler, healthHandler, logger)

	serverAddr := cfg.Server.GetServerAddress()
	server := &http.Server{
		Addr:           serverAddr,
		Handler:        ginRouter,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.WithField("addr", serverAddr).Info("Starting HTTP server...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	logger.WithField("address", serverAddr).Info("Server is running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopWorkers()
	runner.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	if err := db.Close(); err != nil {
		logger.WithError(err).Error("Failed to close database")
	}

	logger.Info("Server exited gracefully")
}
