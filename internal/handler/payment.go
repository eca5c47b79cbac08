package handler

import (
	"encoding/json"
	"errors"

	"hiredalways/internal/model"
	"hiredalways/internal/service"

	"github.com/gofiber/fiber/v2"
)

// HandleCreateSubscription is called by the purchase page after PayPal
// approves a subscription.
func (h *Handler) HandleCreateSubscription(c *fiber.Ctx) error {
	var input model.CreateSubscriptionInput
	if ok, err := h.bindJSON(c, &input); !ok {
		return err
	}

	license, err := h.payments.CreateSubscription(input)
	if err != nil {
		h.logger.Error().Err(err).Str("subscription_id", input.SubscriptionID).Msg("Failed to create subscription license")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create license",
		})
	}

	return c.JSON(fiber.Map{
		"license_key":     license.Key,
		"email":           license.UserID,
		"subscription_id": license.PaypalSubscriptionID,
		"expires_at":      model.NewTimestamp(license.ExpiresAt(h.licenses.Window())),
	})
}

func (h *Handler) HandlePayPalWebhook(c *fiber.Ctx) error {
	var event service.PayPalEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON body",
		})
	}

	result, err := h.payments.HandleWebhook(event)
	switch {
	case err == nil:
		return c.JSON(result)
	case errors.Is(err, service.ErrMissingSubscriber):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing subscriber email",
		})
	default:
		h.logger.Error().Err(err).Str("event_type", event.EventType).Msg("PayPal webhook failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}
}
