package handler

import (
	"net/http"
	"testing"

	"hiredalways/internal/config"
	"hiredalways/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackUsageUntilExhausted(t *testing.T) {
	env := newTestApp(t, testOptions{trialLimit: 2})
	input := model.UsageInput{DeviceFingerprint: "d1"}

	resp, body := env.do(t, http.MethodPost, "/api/check-usage", input)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "trial", body["status"])
	assert.EqualValues(t, 2, body["remaining_uses"])

	for i := 1; i <= 2; i++ {
		resp, body = env.do(t, http.MethodPost, "/api/track-usage", input)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["allowed"])
		assert.EqualValues(t, i, body["usage_count"])
	}

	resp, body = env.do(t, http.MethodPost, "/api/track-usage", input)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Free trial exhausted. Please purchase a subscription.", body["error"])

	_, body = env.do(t, http.MethodPost, "/api/check-usage", input)
	assert.Equal(t, "trial_exhausted", body["status"])
	assert.Equal(t, false, body["valid"])
}

func TestTrackUsageWithLicense(t *testing.T) {
	env := newTestApp(t, testOptions{trialLimit: 1})
	license, err := env.licenses.Issue("a@b.com", model.PaymentMeta{}, "admin")
	require.NoError(t, err)

	input := model.UsageInput{DeviceFingerprint: "d1", LicenseKey: license.Key}
	for i := 0; i < 3; i++ {
		resp, body := env.do(t, http.MethodPost, "/api/track-usage", input)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["is_paid"])
	}

	_, body := env.do(t, http.MethodPost, "/api/check-usage", input)
	assert.Equal(t, "subscribed", body["status"])
	assert.NotEmpty(t, body["expires_at"])
}

func TestUsageRequiresDevice(t *testing.T) {
	env := newTestApp(t, testOptions{})

	for _, path := range []string{"/api/check-usage", "/api/track-usage"} {
		resp, body := env.do(t, http.MethodPost, path, map[string]string{})
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "Validation failed", body["error"])
	}
}

func TestActivateWhitelist(t *testing.T) {
	env := newTestApp(t, testOptions{
		policy:     config.PolicyWhitelist,
		trialLimit: 1,
		whitelist:  []string{"vip@example.com"},
	})

	resp, _ := env.do(t, http.MethodPost, "/api/activate-whitelist",
		model.WhitelistInput{Email: "stranger@example.com", DeviceFingerprint: "d1"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/activate-whitelist",
		model.WhitelistInput{Email: "vip@example.com", DeviceFingerprint: "d1"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "vip@example.com", body["email"])

	for i := 0; i < 3; i++ {
		resp, body = env.do(t, http.MethodPost, "/api/track-usage", model.UsageInput{DeviceFingerprint: "d1"})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["is_unlimited"])
	}
}
