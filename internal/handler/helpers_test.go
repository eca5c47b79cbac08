package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"hiredalways/internal/ads"
	"hiredalways/internal/config"
	"hiredalways/internal/database"
	"hiredalways/internal/licensekey"
	"hiredalways/internal/middleware"
	"hiredalways/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testAdminSecret = "let-me-in"

type testOptions struct {
	policy     string
	trialLimit int
	whitelist  []string
	aiURL      string
	aiKey      string
	aiRate     float64
	siteDir    string
	staticDir  string
}

type testEnv struct {
	app      *fiber.App
	ledger   *database.Ledger
	licenses *service.LicenseService
}

func newTestApp(t *testing.T, opts testOptions) *testEnv {
	t.Helper()
	logger := zerolog.Nop()

	if opts.policy == "" {
		opts.policy = config.PolicyTrial
	}
	if opts.trialLimit == 0 {
		opts.trialLimit = 5
	}
	if opts.staticDir == "" {
		opts.staticDir = t.TempDir()
	}
	if opts.siteDir == "" {
		opts.siteDir = t.TempDir()
	}

	ledger := database.OpenLedger(filepath.Join(t.TempDir(), "ledger.json"), logger)
	audit := service.NewAudit(database.OpenTestAudit(t), logger)
	window := 31 * 24 * time.Hour
	licenses := service.NewLicenseService(ledger, licensekey.NewCodec(licensekey.DefaultPrefix, "test-secret"),
		service.LicenseOptions{Window: window, VerifySignature: true}, logger)
	usage := service.NewUsageService(ledger, licenses, service.UsageOptions{
		Policy:     opts.policy,
		TrialLimit: opts.trialLimit,
		Whitelist:  opts.whitelist,
	}, logger)
	admin, err := middleware.NewAdminAuth(testAdminSecret, time.Hour)
	require.NoError(t, err)

	h := New(Deps{
		Licenses:  licenses,
		Usage:     usage,
		AI:        service.NewGeminiClient(opts.aiKey, "gemini-test", opts.aiURL, time.Second),
		Payments:  service.NewPaymentService(licenses, logger),
		Stats:     service.NewStatisticsService(ledger, audit, window, opts.trialLimit),
		Audit:     audit,
		Admin:     admin,
		Limiter:   middleware.NewDeviceLimiter(opts.aiRate, 1),
		Ads:       ads.NewResolver(opts.staticDir),
		SiteDir:   opts.siteDir,
		StaticDir: opts.staticDir,
		Logger:    logger,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	h.Routes(app)
	return &testEnv{app: app, ledger: ledger, licenses: licenses}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}, headers ...string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}
