package handler

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) siteRoutes(app *fiber.App) {
	app.Get("/health", h.HandleHealth)

	app.Get("/", h.page("index.html"))
	app.Get("/purchase", h.page("purchase.html"))
	app.Get("/index.html", redirect("/"))
	app.Get("/purchase.html", redirect("/purchase"))

	app.Get("/robots.txt", h.staticFile("robots.txt", fiber.MIMETextPlainCharsetUTF8))
	app.Get("/sitemap.xml", h.staticFile("sitemap.xml", fiber.MIMEApplicationXML))
	app.Get("/manifest.json", h.staticFile("manifest.json", fiber.MIMEApplicationJSON))
	app.Get("/browserconfig.xml", h.staticFile("browserconfig.xml", fiber.MIMEApplicationXML))

	app.Static("/static", h.staticDir)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

func redirect(to string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Redirect(to, fiber.StatusMovedPermanently)
	}
}

// page serves a prebuilt HTML page from the site directory.
func (h *Handler) page(name string) fiber.Handler {
	return h.serveFile(filepath.Join(h.siteDir, name), fiber.MIMETextHTMLCharsetUTF8)
}

func (h *Handler) staticFile(name, contentType string) fiber.Handler {
	return h.serveFile(filepath.Join(h.staticDir, name), contentType)
}

func (h *Handler) serveFile(path, contentType string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		content, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				h.logger.Error().Err(err).Str("path", path).Msg("Failed to read site file")
			}
			return fiber.ErrNotFound
		}
		c.Set(fiber.HeaderContentType, contentType)
		return c.Send(content)
	}
}

// HandleAdsConfig returns the anti-adblock zone for the requesting site.
func (h *Handler) HandleAdsConfig(c *fiber.Ctx) error {
	domain := c.Query("domain")
	if domain == "" {
		domain = c.Hostname()
	}
	return c.JSON(h.ads.Config(domain))
}
