package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"acceptapi/docs"
	"acceptapi/internal/config"
	"acceptapi/internal/database"
	"acceptapi/internal/database/migration"
	"acceptapi/internal/docusign"
	handlers "acceptapi/internal/http/handler"
	"acceptapi/internal/http/middleware"
	"acceptapi/internal/logging"
	"acceptapi/internal/mailer"
	"acceptapi/internal/notify"
	"acceptapi/internal/otel"
	"acceptapi/internal/pdf"
	"acceptapi/internal/repository"
	"acceptapi/internal/repository/postgres"
	"acceptapi/internal/repository/sqlite"
	"acceptapi/internal/service"
	"acceptapi/internal/storage"
	"acceptapi/internal/token"
)

// @title Acceptance API
// @version 1.0
// @description Issues one-time acceptance links for PDF agreements and records who accepted them.
// @BasePath /
// @securityDefinitions.apikey OperatorBearer
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Location())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server_exit", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// Initialize the database (postgres with pooling, or sqlite) and bring the schema up to date
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	driver := cfg.Database.Driver
	if driver == "" {
		driver = database.DriverPostgres
	}
	if err := migration.EnsureMigrated(ctx, db, driver, logger); err != nil {
		return err
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		return err
	}

	issuer, err := token.NewIssuer(cfg.Acceptance.TokenSecret, cfg.Acceptance.TokenTTL, nil)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	deps := service.Deps{
		Store:    objStore,
		Issuer:   issuer,
		Renderer: pdf.NewRenderer("acceptapi"),
		Logger:   logger,
	}
	deps.Documents, deps.Deliveries = repositories(driver, db)

	// interface fields stay nil unless the backend is configured
	var notifyMailer notify.MailSender
	m, err := mailer.New(cfg.SMTP)
	switch {
	case err == nil:
		deps.Mailer = m
		notifyMailer = m
	case errors.Is(err, mailer.ErrNotConfigured):
		logger.Info("smtp_disabled")
	default:
		return err
	}

	ds := docusign.NewClient(cfg.DocuSign, strings.TrimRight(cfg.PublicBaseURL, "/")+"/webhook/docusign", httpClient)
	if ds.Enabled() {
		deps.Envelopes = ds
	}

	channels, err := notify.FromConfig(cfg.Notify, notify.Deps{
		Mailer:     notifyMailer,
		HTTPClient: httpClient,
		Location:   cfg.Location(),
		Timeout:    cfg.Notify.Timeout,
	})
	if err != nil {
		return err
	}
	notifyMetrics, err := notify.NewMetrics(reg)
	if err != nil {
		return err
	}
	dispatcher := notify.NewDispatcher(channels, notify.Options{
		Timeout:     cfg.Notify.Timeout,
		MaxAttempts: cfg.Notify.MaxAttempts,
		Concurrency: cfg.Notify.Concurrency,
	}, logger, notifyMetrics)
	deps.Notifier = dispatcher

	if deps.Metrics, err = service.NewMetrics(reg); err != nil {
		return err
	}

	svc := service.NewAcceptanceService(deps, service.Options{
		PublicBaseURL: cfg.PublicBaseURL,
		LinkMode:      cfg.Acceptance.LinkMode,
		PresignTTL:    cfg.Acceptance.PresignTTL,
	})

	app := fiber.New(handlers.AppConfig(cfg.HTTP))

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:              db,
		Service:         svc,
		OperatorSecret:  []byte(cfg.Auth.OperatorSecret),
		DocuSignHMACKey: cfg.DocuSign.ConnectHMACKey,
		Gatherer:        reg,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			logger.Error("shutdown_failed", zap.Error(err))
		}
	}()

	logger.Info("server_start",
		zap.String("addr", ":"+cfg.Port),
		zap.String("db_driver", driver),
		zap.Strings("notify_channels", dispatcher.Channels()),
		zap.Bool("docusign_enabled", deps.Envelopes != nil),
		zap.Bool("smtp_enabled", deps.Mailer != nil),
	)
	return app.Listen(":" + cfg.Port)
}

func repositories(driver string, db *sql.DB) (repository.DocumentRepository, repository.DeliveryRepository) {
	if driver == database.DriverSQLite {
		return sqlite.NewDocumentRepository(db), sqlite.NewDeliveryRepository(db)
	}
	return postgres.NewDocumentPostgres(db), postgres.NewDeliveryPostgres(db)
}
