package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSiteRoutes(t *testing.T) {
	site := t.TempDir()
	static := t.TempDir()
	writeFile(t, site, "index.html", "<h1>Hired Always</h1>")
	writeFile(t, site, "purchase.html", "<h1>Purchase</h1>")
	writeFile(t, static, "robots.txt", "User-agent: *")
	writeFile(t, static, "sitemap.xml", "<urlset/>")
	writeFile(t, static, "css/site.css", "body{}")

	env := newTestApp(t, testOptions{siteDir: site, staticDir: static})

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantType     string
		wantLocation string
		wantBody     string
	}{
		{name: "home", path: "/", wantStatus: fiber.StatusOK, wantType: fiber.MIMETextHTMLCharsetUTF8, wantBody: "Hired Always"},
		{name: "purchase", path: "/purchase", wantStatus: fiber.StatusOK, wantBody: "Purchase"},
		{name: "index_redirect", path: "/index.html", wantStatus: fiber.StatusMovedPermanently, wantLocation: "/"},
		{name: "purchase_redirect", path: "/purchase.html", wantStatus: fiber.StatusMovedPermanently, wantLocation: "/purchase"},
		{name: "robots", path: "/robots.txt", wantStatus: fiber.StatusOK, wantType: fiber.MIMETextPlainCharsetUTF8, wantBody: "User-agent"},
		{name: "sitemap", path: "/sitemap.xml", wantStatus: fiber.StatusOK, wantType: fiber.MIMEApplicationXML},
		{name: "missing_manifest", path: "/manifest.json", wantStatus: fiber.StatusNotFound},
		{name: "static_mount", path: "/static/css/site.css", wantStatus: fiber.StatusOK, wantBody: "body{}"},
		{name: "health", path: "/health", wantStatus: fiber.StatusOK, wantBody: `"healthy"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, tt.path, nil)
			require.NoError(t, err)
			resp, err := env.app.Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantType != "" {
				assert.Equal(t, tt.wantType, resp.Header.Get("Content-Type"))
			}
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, resp.Header.Get("Location"))
			}
			if tt.wantBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), tt.wantBody)
			}
		})
	}
}

func TestHandleAdsConfig(t *testing.T) {
	static := t.TempDir()
	writeFile(t, static, "js/lib-20260401.js", "//")
	env := newTestApp(t, testOptions{staticDir: static})

	_, body := env.do(t, http.MethodGet, "/api/ads/config?domain=www.answermatepro.com", nil)
	assert.Equal(t, "answermatepro.com", body["domain"])
	assert.Equal(t, "mtckulgwdu", body["zone_id"])
	assert.Equal(t, "/static/js/lib-20260401.js", body["library_url"])
	assert.EqualValues(t, 5, body["update_frequency_minutes"])

	_, body = env.do(t, http.MethodGet, "/api/ads/config", nil)
	assert.Equal(t, "hkqscsmnjy", body["zone_id"])
}
