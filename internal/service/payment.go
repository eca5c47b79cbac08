package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"hiredalways/internal/metrics"
	"hiredalways/internal/model"

	"github.com/rs/zerolog"
)

// PayPal webhook event types we act on.
const (
	EventSubscriptionActivated = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventSubscriptionCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSubscriptionSuspended = "BILLING.SUBSCRIPTION.SUSPENDED"
	EventSubscriptionExpired   = "BILLING.SUBSCRIPTION.EXPIRED"
)

var ErrMissingSubscriber = errors.New("subscription has no subscriber email")

// PayPalEvent is the envelope of a PayPal webhook notification.
type PayPalEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Resource  json.RawMessage `json:"resource"`
}

type paypalSubscription struct {
	ID         string `json:"id"`
	Subscriber struct {
		EmailAddress string `json:"email_address"`
	} `json:"subscriber"`
}

// WebhookResult is what the webhook endpoint reports back.
type WebhookResult struct {
	Message    string `json:"message"`
	LicenseKey string `json:"license_key,omitempty"`
	Revoked    int    `json:"revoked,omitempty"`
}

// PaymentService turns PayPal purchases into licenses.
type PaymentService struct {
	licenses *LicenseService
	logger   zerolog.Logger
}

func NewPaymentService(licenses *LicenseService, logger zerolog.Logger) *PaymentService {
	return &PaymentService{
		licenses: licenses,
		logger:   logger.With().Str("component", "payment").Logger(),
	}
}

// CreateSubscription issues a license after the purchase page reports a
// completed PayPal subscription.
func (s *PaymentService) CreateSubscription(input model.CreateSubscriptionInput) (model.License, error) {
	return s.licenses.Issue(input.Email, model.PaymentMeta{
		PaypalSubscriptionID: input.SubscriptionID,
		PaypalOrderID:        input.OrderID,
		PaymentMethod:        "paypal",
	}, "subscription")
}

// HandleWebhook applies one PayPal event. The payload signature is not
// verified.
// TODO: verify PAYPAL-TRANSMISSION-SIG through PayPal's verify-webhook-signature API.
func (s *PaymentService) HandleWebhook(event PayPalEvent) (WebhookResult, error) {
	eventType := event.EventType
	if eventType == "" {
		eventType = "unknown"
	}
	metrics.WebhookEvents.WithLabelValues(eventType).Inc()

	switch event.EventType {
	case EventSubscriptionActivated:
		sub, err := decodeSubscription(event.Resource)
		if err != nil {
			return WebhookResult{}, err
		}
		email := strings.TrimSpace(sub.Subscriber.EmailAddress)
		if email == "" {
			return WebhookResult{}, ErrMissingSubscriber
		}
		license, err := s.licenses.Issue(email, model.PaymentMeta{
			PaypalSubscriptionID: sub.ID,
			PaymentMethod:        "paypal",
		}, "webhook")
		if err != nil {
			return WebhookResult{}, err
		}
		// TODO: email the license key to the subscriber once a mail provider is configured.
		return WebhookResult{Message: "Subscription activated", LicenseKey: license.Key}, nil

	case EventSubscriptionCancelled, EventSubscriptionSuspended, EventSubscriptionExpired:
		sub, err := decodeSubscription(event.Resource)
		if err != nil {
			return WebhookResult{}, err
		}
		revoked := 0
		for _, license := range s.licenses.ledger.LicensesBySubscription(sub.ID) {
			if !license.Active {
				continue
			}
			if _, err := s.licenses.Revoke(license.Key); err == nil {
				revoked++
			}
		}
		s.logger.Info().
			Str("event_type", event.EventType).
			Str("subscription_id", sub.ID).
			Int("revoked", revoked).
			Msg("Subscription ended")
		return WebhookResult{Message: "Subscription deactivated", Revoked: revoked}, nil

	default:
		s.logger.Info().
			Str("event_type", event.EventType).
			Str("event_id", event.ID).
			Msg("PayPal webhook ignored (unhandled type)")
		return WebhookResult{Message: "Event processed"}, nil
	}
}

func decodeSubscription(raw json.RawMessage) (paypalSubscription, error) {
	var sub paypalSubscription
	if len(raw) == 0 {
		return sub, nil
	}
	if err := json.Unmarshal(raw, &sub); err != nil {
		return sub, fmt.Errorf("decode subscription resource: %w", err)
	}
	return sub, nil
}
