package service

import (
	"encoding/json"
	"testing"

	"hiredalways/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSubscription(t *testing.T) {
	licenses, _ := newTestLicenseService(t, true)
	payments := NewPaymentService(licenses, zerolog.Nop())

	license, err := payments.CreateSubscription(model.CreateSubscriptionInput{
		Email:          "buyer@example.com",
		SubscriptionID: "I-SUB1",
		OrderID:        "ORDER-9",
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", license.UserID)
	assert.Equal(t, "I-SUB1", license.PaypalSubscriptionID)
	assert.Equal(t, "ORDER-9", license.PaypalOrderID)
	assert.Equal(t, "paypal", license.PaymentMethod)

	_, err = licenses.Validate(license.Key)
	assert.NoError(t, err)
}

func TestHandleWebhook(t *testing.T) {
	licenses, ledger := newTestLicenseService(t, true)
	payments := NewPaymentService(licenses, zerolog.Nop())

	activated, err := payments.HandleWebhook(PayPalEvent{
		ID:        "WH-1",
		EventType: EventSubscriptionActivated,
		Resource:  json.RawMessage(`{"id":"I-SUB2","subscriber":{"email_address":"sub@example.com"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "Subscription activated", activated.Message)
	require.NotEmpty(t, activated.LicenseKey)

	stored, ok := ledger.GetLicense(activated.LicenseKey)
	require.True(t, ok)
	assert.Equal(t, "sub@example.com", stored.UserID)
	assert.Equal(t, "I-SUB2", stored.PaypalSubscriptionID)

	_, err = payments.HandleWebhook(PayPalEvent{
		EventType: EventSubscriptionActivated,
		Resource:  json.RawMessage(`{"id":"I-SUB3","subscriber":{}}`),
	})
	assert.ErrorIs(t, err, ErrMissingSubscriber)

	cancelled, err := payments.HandleWebhook(PayPalEvent{
		EventType: EventSubscriptionCancelled,
		Resource:  json.RawMessage(`{"id":"I-SUB2"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled.Revoked)
	_, err = licenses.Validate(activated.LicenseKey)
	assert.ErrorIs(t, err, ErrLicenseInactive)

	other, err := payments.HandleWebhook(PayPalEvent{EventType: "PAYMENT.SALE.COMPLETED"})
	require.NoError(t, err)
	assert.Equal(t, "Event processed", other.Message)
}
