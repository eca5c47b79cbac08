package handler

import (
	"errors"

	"hiredalways/internal/model"
	"hiredalways/internal/service"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) HandleCheckUsage(c *fiber.Ctx) error {
	var input model.UsageInput
	if ok, err := h.bindJSON(c, &input); !ok {
		return err
	}

	status := h.usage.CheckUsage(input.DeviceFingerprint, input.LicenseKey)
	h.recordCheck(c, input.LicenseKey, input.DeviceFingerprint, "check", status.Status)
	return c.JSON(status)
}

func (h *Handler) HandleTrackUsage(c *fiber.Ctx) error {
	var input model.UsageInput
	if ok, err := h.bindJSON(c, &input); !ok {
		return err
	}

	result, err := h.usage.TrackUsage(input.DeviceFingerprint, input.LicenseKey)
	if errors.Is(err, service.ErrTrialExhausted) {
		h.recordCheck(c, input.LicenseKey, input.DeviceFingerprint, "track", "trial_exhausted")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Free trial exhausted. Please purchase a subscription.",
		})
	}
	if err != nil {
		return err
	}

	h.recordCheck(c, input.LicenseKey, input.DeviceFingerprint, "track", "allowed")
	return c.JSON(result)
}

// HandleActivateWhitelist binds a whitelisted email to the calling device.
func (h *Handler) HandleActivateWhitelist(c *fiber.Ctx) error {
	var input model.WhitelistInput
	if ok, err := h.bindJSON(c, &input); !ok {
		return err
	}

	usage, err := h.usage.ActivateWhitelist(input.Email, input.DeviceFingerprint)
	if errors.Is(err, service.ErrNotWhitelisted) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Email is not whitelisted",
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":     "Whitelist activated",
		"email":       usage.Email,
		"policy":      h.usage.Policy(),
		"usage_count": usage.Count,
	})
}
