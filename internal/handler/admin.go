package handler

import (
	"hiredalways/internal/model"

	"github.com/gofiber/fiber/v2"
)

// HandleAdminLogin exchanges the admin secret for a bearer token.
func (h *Handler) HandleAdminLogin(c *fiber.Ctx) error {
	var input model.AdminLoginInput
	if ok, err := h.bindJSON(c, &input); !ok {
		return err
	}

	ip := c.IP()
	userAgent := c.Get(fiber.HeaderUserAgent)
	if !h.admin.CheckSecret(input.SecretKey) {
		h.audit.RecordAdminLogin(ip, userAgent, "failed")
		h.logger.Warn().Str("ip", ip).Msg("Admin login rejected")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	token, expiresAt, err := h.admin.IssueToken()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to issue token",
		})
	}
	h.audit.RecordAdminLogin(ip, userAgent, "success")

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": model.NewTimestamp(expiresAt),
	})
}

// HandleSyncSheet pushes every license to the configured spreadsheet.
func (h *Handler) HandleSyncSheet(c *fiber.Ctx) error {
	if h.sheets == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Sheet sync is not enabled",
		})
	}

	licenses := h.licenses.List()
	if err := h.sheets.BatchSyncLicenses(c.UserContext(), licenses); err != nil {
		h.logger.Error().Err(err).Msg("Sheet batch sync failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Sheet sync failed",
		})
	}
	h.audit.LogOperation(h.actor(c), "sync_sheet", "sheet", "", fiber.Map{"count": len(licenses)})

	return c.JSON(fiber.Map{
		"message": "Licenses synced",
		"count":   len(licenses),
	})
}
