package handler

import (
	"errors"

	"hiredalways/internal/ads"
	"hiredalways/internal/middleware"
	"hiredalways/internal/model"
	"hiredalways/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the HTTP layer needs. Audit, Sheets and AI
// may be nil.
type Deps struct {
	Licenses  *service.LicenseService
	Usage     *service.UsageService
	AI        *service.GeminiClient
	Payments  *service.PaymentService
	Stats     *service.StatisticsService
	Audit     *service.Audit
	Sheets    *service.SheetSyncService
	Admin     *middleware.AdminAuth
	Limiter   *middleware.DeviceLimiter
	Ads       *ads.Resolver
	SiteDir   string
	StaticDir string
	Logger    zerolog.Logger
}

// Handler serves the site and the /api surface.
type Handler struct {
	licenses  *service.LicenseService
	usage     *service.UsageService
	ai        *service.GeminiClient
	payments  *service.PaymentService
	stats     *service.StatisticsService
	audit     *service.Audit
	sheets    *service.SheetSyncService
	admin     *middleware.AdminAuth
	limiter   *middleware.DeviceLimiter
	validator *middleware.Validator
	ads       *ads.Resolver
	siteDir   string
	staticDir string
	logger    zerolog.Logger
}

func New(deps Deps) *Handler {
	return &Handler{
		licenses:  deps.Licenses,
		usage:     deps.Usage,
		ai:        deps.AI,
		payments:  deps.Payments,
		stats:     deps.Stats,
		audit:     deps.Audit,
		sheets:    deps.Sheets,
		admin:     deps.Admin,
		limiter:   deps.Limiter,
		validator: middleware.NewValidator(),
		ads:       deps.Ads,
		siteDir:   deps.SiteDir,
		staticDir: deps.StaticDir,
		logger:    deps.Logger.With().Str("component", "handler").Logger(),
	}
}

// Routes registers every endpoint on app.
func (h *Handler) Routes(app *fiber.App) {
	h.siteRoutes(app)

	api := app.Group("/api")
	api.Post("/validate-license", h.HandleValidateLicense)
	api.Post("/check-usage", h.HandleCheckUsage)
	api.Post("/track-usage", h.HandleTrackUsage)
	api.Post("/activate-whitelist", h.HandleActivateWhitelist)
	api.Post("/proxy-ai", h.HandleProxyAI)
	api.Post("/create-subscription", h.HandleCreateSubscription)
	api.Post("/webhook/paypal", h.HandlePayPalWebhook)
	api.Get("/ads/config", h.HandleAdsConfig)

	// admin routes
	adminOnly := h.admin.Handler()
	admin := api.Group("/admin")
	admin.Post("/login", h.HandleAdminLogin)
	admin.Post("/create-license", adminOnly, h.HandleCreateLicense)
	admin.Post("/revoke-license", adminOnly, h.HandleRevokeLicense)
	admin.Get("/licenses", adminOnly, h.HandleGetAllLicenses)
	admin.Get("/licenses/:key", adminOnly, h.HandleGetLicense)
	admin.Put("/licenses/:key", adminOnly, h.HandleLicenseUpdate)
	admin.Get("/statistics", adminOnly, h.HandleLicenseStatistics)
	admin.Get("/logs", adminOnly, h.HandleGetLogs)
	admin.Post("/sync-sheet", adminOnly, h.HandleSyncSheet)
}

// ErrorHandler renders errors that escaped a handler as JSON.
func ErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
		}
		return c.Status(code).JSON(fiber.Map{
			"error": message,
		})
	}
}

// bindJSON parses and validates the body. On failure it has already written
// the 400 response and returns false.
func (h *Handler) bindJSON(c *fiber.Ctx, out interface{}) (bool, error) {
	err := h.validator.BindJSON(c, out)
	if err == nil {
		return true, nil
	}

	var verr *middleware.ValidationError
	if errors.As(err, &verr) {
		body := fiber.Map{"error": verr.Message}
		if len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
		return false, c.Status(fiber.StatusBadRequest).JSON(body)
	}
	return false, err
}

func (h *Handler) recordCheck(c *fiber.Ctx, licenseKey, device, action, result string) {
	h.audit.RecordCheck(model.LicenseCheck{
		LicenseKey: licenseKey,
		Device:     device,
		Action:     action,
		Result:     result,
		IPAddress:  c.IP(),
		UserAgent:  c.Get(fiber.HeaderUserAgent),
	})
}

func (h *Handler) actor(c *fiber.Ctx) string {
	if subject, ok := c.Locals(middleware.LocalAdmin).(string); ok {
		return subject
	}
	return "unknown"
}
