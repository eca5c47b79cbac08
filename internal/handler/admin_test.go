package handler

import (
	"net/http"
	"testing"

	"hiredalways/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminLogin(t *testing.T) {
	env := newTestApp(t, testOptions{})

	resp, body := env.do(t, http.MethodPost, "/api/admin/login", model.AdminLoginInput{SecretKey: "nope"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body["error"])

	resp, body = env.do(t, http.MethodPost, "/api/admin/login", model.AdminLoginInput{SecretKey: testAdminSecret})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, _ = env.do(t, http.MethodGet, "/api/admin/licenses", nil, "Authorization", "Bearer "+token)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// oversized page_size is clamped, not rejected
	resp, body = env.do(t, http.MethodGet, "/api/admin/logs?page=1&page_size=500", nil, "Authorization", "Bearer "+token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, body["page"])
}

func TestAdminRoutesRejectAnonymous(t *testing.T) {
	env := newTestApp(t, testOptions{})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/admin/create-license?user_id=a%40b.com"},
		{http.MethodPost, "/api/admin/revoke-license?license_key=HA-SUB-1-2-3"},
		{http.MethodGet, "/api/admin/licenses"},
		{http.MethodGet, "/api/admin/licenses/HA-SUB-1-2-3"},
		{http.MethodPut, "/api/admin/licenses/HA-SUB-1-2-3"},
		{http.MethodGet, "/api/admin/statistics"},
		{http.MethodGet, "/api/admin/logs"},
		{http.MethodPost, "/api/admin/sync-sheet"},
		{http.MethodGet, "/api/admin/licenses?secret_key=wrong"},
	}
	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			resp, body := env.do(t, r.method, r.path, nil)
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}
}

func TestAdminStatistics(t *testing.T) {
	env := newTestApp(t, testOptions{})
	_, err := env.licenses.Issue("a@b.com", model.PaymentMeta{PaymentMethod: "paypal"}, "subscription")
	require.NoError(t, err)

	_, _ = env.do(t, http.MethodPost, "/api/track-usage", model.UsageInput{DeviceFingerprint: "d1"})

	resp, body := env.do(t, http.MethodGet, "/api/admin/statistics?secret_key="+testAdminSecret, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total_licenses"])
	assert.EqualValues(t, 1, data["active_licenses"])
	assert.EqualValues(t, 1, data["total_devices"])
	assert.NotEmpty(t, data["daily_usage"])

	resp, _ = env.do(t, http.MethodGet, "/api/admin/statistics?start_date=yesterday&secret_key="+testAdminSecret, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSyncSheetDisabled(t *testing.T) {
	env := newTestApp(t, testOptions{})

	resp, body := env.do(t, http.MethodPost, "/api/admin/sync-sheet?secret_key="+testAdminSecret, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Sheet sync is not enabled", body["error"])
}
