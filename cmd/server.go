package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"hiredalways/internal/ads"
	"hiredalways/internal/config"
	"hiredalways/internal/database"
	"hiredalways/internal/handler"
	"hiredalways/internal/licensekey"
	"hiredalways/internal/logging"
	"hiredalways/internal/middleware"
	"hiredalways/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' https://www.paypal.com https://www.paypalobjects.com",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data: https:",
	"font-src 'self' data:",
	"connect-src 'self' https://www.paypal.com https://www.paypalobjects.com https://generativelanguage.googleapis.com",
	"frame-src https://www.paypal.com",
	"object-src 'none'",
	"base-uri 'self'",
	"form-action 'self' https://www.paypal.com",
	"frame-ancestors 'none'",
	"upgrade-insecure-requests",
}, "; ")

const permissionsPolicy = "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(self), usb=()"

func initLogging(cfg *config.Config) zerolog.Logger {
	return logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: "hiredalways",
	})
}

func runServer() error {
	// Baseline logger for early startup errors
	logging.Init(logging.Config{Format: "auto", Level: "info", Component: "hiredalways"})

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}
	logger := initLogging(cfg)

	if cfg.EphemeralSecret {
		logger.Warn().Msg("LICENSE_SECRET is not set; using a random secret for this process. Issued licenses will fail signature checks after restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, auditDB, err := newServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.CloseAudit(auditDB); err != nil {
			logger.Warn().Err(err).Msg("Failed to close audit database")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr()).Str("version", Version).Msg("Server listening")
		errCh <- app.Listen(cfg.ListenAddr())
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Server stopped")
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		return err
	}
	return nil
}

// newServer wires storage, services and routes into a fiber app. The caller
// owns the returned audit database (which may be nil).
func newServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*fiber.App, *gorm.DB, error) {
	ledger := database.OpenLedger(cfg.DBFile, logger)

	auditDB, err := database.OpenAudit(cfg.AuditDBPath)
	if err != nil {
		// audit is optional, the ledger is the source of truth
		logger.Warn().Err(err).Str("path", cfg.AuditDBPath).Msg("Audit log disabled")
		auditDB = nil
	}
	audit := service.NewAudit(auditDB, logger)

	sheets, err := service.NewSheetSyncService(ctx, cfg.Sheets.Enabled, cfg.Sheets.CredentialPath,
		cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, cfg.License.Validity, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Sheet sync disabled")
		sheets = nil
	}

	licenses := service.NewLicenseService(ledger, licensekey.NewCodec(cfg.License.Prefix, cfg.License.Secret),
		service.LicenseOptions{
			Window:          cfg.License.Validity,
			VerifySignature: cfg.License.VerifySignature,
			Sheets:          sheets,
		}, logger)
	usage := service.NewUsageService(ledger, licenses, service.UsageOptions{
		Policy:     cfg.Usage.Policy,
		TrialLimit: cfg.Usage.TrialLimit,
		Whitelist:  cfg.Usage.Whitelist,
	}, logger)

	admin, err := middleware.NewAdminAuth(cfg.Admin.Secret, cfg.Admin.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("admin auth: %w", err)
	}
	if !admin.Enabled() {
		logger.Info().Msg("ADMIN_SECRET is not set; admin endpoints are disabled")
	}

	ai := service.NewGeminiClient(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Timeout)
	if !ai.Configured() {
		logger.Warn().Msg("GEMINI_API_KEY is not set; /api/proxy-ai will answer 500")
	}

	h := handler.New(handler.Deps{
		Licenses:  licenses,
		Usage:     usage,
		AI:        ai,
		Payments:  service.NewPaymentService(licenses, logger),
		Stats:     service.NewStatisticsService(ledger, audit, cfg.License.Validity, cfg.Usage.TrialLimit),
		Audit:     audit,
		Sheets:    sheets,
		Admin:     admin,
		Limiter:   middleware.NewDeviceLimiter(cfg.AI.RatePerMinute, cfg.AI.Burst),
		Ads:       ads.NewResolver(cfg.StaticDir),
		SiteDir:   cfg.SiteDir,
		StaticDir: cfg.StaticDir,
		Logger:    logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               "hiredalways " + Version,
		BodyLimit:             cfg.BodyLimitBytes,
		DisableStartupMessage: true,
		ErrorHandler:          handler.ErrorHandler(logger),
	})

	// middleware
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middleware.RequestLogger(logger))
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: contentSecurityPolicy,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionPolicy:      permissionsPolicy,
	}))
	app.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	h.Routes(app)

	return app, auditDB, nil
}

// corsConfig allows the browser extension plus the configured site origins.
func corsConfig(origins []string) cors.Config {
	wildcard := false
	for _, origin := range origins {
		if origin == "*" {
			wildcard = true
		}
	}
	return cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowOriginsFunc: func(origin string) bool {
			return strings.HasPrefix(origin, "chrome-extension://")
		},
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: !wildcard,
	}
}
