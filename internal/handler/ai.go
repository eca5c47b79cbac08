package handler

import (
	"errors"

	"hiredalways/internal/model"
	"hiredalways/internal/service"

	"github.com/gofiber/fiber/v2"
)

// HandleProxyAI forwards a prompt to the model API once the device has passed
// its rate limit and usage check.
func (h *Handler) HandleProxyAI(c *fiber.Ctx) error {
	var input model.AIProxyInput
	if ok, err := h.bindJSON(c, &input); !ok {
		return err
	}

	if !h.limiter.Allow(input.DeviceFingerprint) {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "Too many AI requests. Please slow down.",
		})
	}

	status := h.usage.CheckUsage(input.DeviceFingerprint, input.LicenseKey)
	if !status.Valid {
		h.recordCheck(c, input.LicenseKey, input.DeviceFingerprint, "proxy", status.Status)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Usage limit exceeded. Please purchase a subscription.",
		})
	}

	raw, err := h.ai.Generate(c.UserContext(), input.Prompt)
	if err != nil {
		h.recordCheck(c, input.LicenseKey, input.DeviceFingerprint, "proxy", "error")
		return h.aiError(c, err)
	}

	h.recordCheck(c, input.LicenseKey, input.DeviceFingerprint, "proxy", "success")
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

func (h *Handler) aiError(c *fiber.Ctx, err error) error {
	var upstream *service.UpstreamError
	switch {
	case errors.Is(err, service.ErrAINotConfigured):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "AI service not configured",
		})
	case errors.Is(err, service.ErrAITimeout):
		return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
			"error": "AI service timeout",
		})
	case errors.As(err, &upstream):
		h.logger.Warn().Int("upstream_status", upstream.StatusCode).Msg("AI upstream returned an error")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":           "AI service error",
			"upstream_status": upstream.StatusCode,
			"detail":          upstream.Body,
		})
	default:
		h.logger.Error().Err(err).Msg("AI request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
