package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hiredalways/internal/model"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindJSON(t *testing.T) {
	v := NewValidator()
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var input model.WhitelistInput
		if err := v.BindJSON(c, &input); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": verr.Message, "fields": verr.Fields})
			}
			return err
		}
		return c.SendString(input.Email)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantText   string
	}{
		{name: "valid", body: `{"email":"a@b.com","device_fingerprint":"d1"}`, wantStatus: fiber.StatusOK, wantText: "a@b.com"},
		{name: "empty body", body: ``, wantStatus: fiber.StatusBadRequest, wantText: "Request body is required"},
		{name: "broken json", body: `{"email":`, wantStatus: fiber.StatusBadRequest, wantText: "Invalid JSON body"},
		{name: "missing device", body: `{"email":"a@b.com"}`, wantStatus: fiber.StatusBadRequest, wantText: "device_fingerprint is required"},
		{name: "bad email", body: `{"email":"nope","device_fingerprint":"d1"}`, wantStatus: fiber.StatusBadRequest, wantText: "email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(body), tt.wantText)
		})
	}
}
