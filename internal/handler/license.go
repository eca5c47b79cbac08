package handler

import (
	"strings"
	"time"

	"hiredalways/internal/model"
	"hiredalways/internal/service"

	"github.com/gofiber/fiber/v2"
)

// licenseView is a ledger license with its derived expiry and state.
type licenseView struct {
	model.License
	ExpiresAt model.Timestamp `json:"expires_at"`
	Status    string          `json:"status"`
}

func (h *Handler) view(license model.License) licenseView {
	expiresAt := license.ExpiresAt(h.licenses.Window())
	v := licenseView{
		License:   license,
		ExpiresAt: model.NewTimestamp(expiresAt),
		Status:    "active",
	}
	switch {
	case !license.Active:
		v.Status = "revoked"
	case license.StartDate.IsZero():
		v.Status = "invalid"
	case time.Now().After(expiresAt):
		v.Status = "expired"
	}
	return v
}

// HandleValidateLicense checks a license and binds it to the device.
func (h *Handler) HandleValidateLicense(c *fiber.Ctx) error {
	var input model.ValidateLicenseInput
	if ok, err := h.bindJSON(c, &input); !ok {
		return err
	}

	validation, err := h.licenses.Validate(input.LicenseKey)
	h.recordCheck(c, input.LicenseKey, input.DeviceFingerprint, "validate", service.Reason(err))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  service.Message(err),
			"reason": service.Reason(err),
		})
	}

	h.usage.AssociateLicense(input.DeviceFingerprint, input.LicenseKey)

	return c.JSON(fiber.Map{
		"valid":      true,
		"user_id":    validation.UserID,
		"start_date": model.NewTimestamp(validation.StartDate),
		"expires_at": model.NewTimestamp(validation.ExpiresAt),
	})
}

// HandleCreateLicense issues a license for the user_id query parameter.
func (h *Handler) HandleCreateLicense(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required",
		})
	}

	license, err := h.licenses.Issue(userID, model.PaymentMeta{Plan: c.Query("plan")}, "admin")
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to issue license")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create license",
		})
	}
	h.audit.LogOperation(h.actor(c), "create_license", "license", license.Key, fiber.Map{"user_id": userID})

	return c.JSON(fiber.Map{
		"license_key": license.Key,
		"user_id":     license.UserID,
		"expires_at":  model.NewTimestamp(license.ExpiresAt(h.licenses.Window())),
	})
}

// HandleRevokeLicense deactivates the license_key query parameter.
func (h *Handler) HandleRevokeLicense(c *fiber.Ctx) error {
	key := c.Query("license_key")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "license_key is required",
		})
	}

	if _, err := h.licenses.Revoke(key); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "License not found",
		})
	}
	h.audit.LogOperation(h.actor(c), "revoke_license", "license", key, nil)

	return c.JSON(fiber.Map{
		"message": "License revoked successfully",
	})
}

// HandleGetAllLicenses lists every license for admins.
func (h *Handler) HandleGetAllLicenses(c *fiber.Ctx) error {
	licenses := h.licenses.List()
	views := make([]licenseView, 0, len(licenses))
	for _, license := range licenses {
		views = append(views, h.view(license))
	}

	return c.JSON(fiber.Map{
		"licenses": views,
		"total":    len(views),
	})
}

// HandleGetLicense returns one license with its recent checks.
func (h *Handler) HandleGetLicense(c *fiber.Ctx) error {
	key := c.Params("key")
	license, err := h.licenses.Get(key)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "License not found",
		})
	}

	checks, err := h.audit.GetLicenseChecks(key, 20)
	if err != nil {
		h.logger.Warn().Err(err).Str("license_key", key).Msg("Failed to load license checks")
		checks = nil
	}

	return c.JSON(fiber.Map{
		"license": h.view(license),
		"checks":  checks,
	})
}

// HandleLicenseUpdate applies an admin field update.
func (h *Handler) HandleLicenseUpdate(c *fiber.Ctx) error {
	key := c.Params("key")

	input := new(model.LicenseUpdate)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON body",
		})
	}
	if input.UserID != nil && strings.TrimSpace(*input.UserID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id must not be empty",
		})
	}

	license, err := h.licenses.Update(key, *input)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "License not found",
		})
	}
	h.audit.LogOperation(h.actor(c), "update_license", "license", key, input)

	return c.JSON(fiber.Map{
		"message": "License updated successfully",
		"license": h.view(license),
	})
}
