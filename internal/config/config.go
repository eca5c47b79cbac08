package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Usage policies for devices without a valid license.
const (
	PolicyTrial     = "trial"
	PolicyUnlimited = "unlimited"
	PolicyWhitelist = "whitelist"
)

// Config holds every environment-driven setting of the site backend.
type Config struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	DBFile          string        `envconfig:"DB_FILE" default:"/data/hiredalways.json"`
	AuditDBPath     string        `envconfig:"AUDIT_DB_PATH" default:"data/audit.db"`
	SiteDir         string        `envconfig:"SITE_DIR" default:"site"`
	StaticDir       string        `envconfig:"STATIC_DIR" default:"static"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"auto"`
	BodyLimitBytes  int           `envconfig:"BODY_LIMIT_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"https://hiredalways.com,http://localhost:8080"`

	License LicenseConfig
	Usage   UsageConfig
	AI      AIConfig
	Admin   AdminConfig
	Sheets  SheetsConfig

	// EphemeralSecret is set when LICENSE_SECRET was missing and a random
	// secret was generated for this process only.
	EphemeralSecret bool `ignored:"true"`
}

type LicenseConfig struct {
	Secret          string        `envconfig:"LICENSE_SECRET"`
	Prefix          string        `envconfig:"LICENSE_PREFIX" default:"HA-SUB"`
	Validity        time.Duration `envconfig:"LICENSE_VALIDITY" default:"744h"`
	VerifySignature bool          `envconfig:"LICENSE_VERIFY_SIGNATURE" default:"true"`
}

type UsageConfig struct {
	Policy     string   `envconfig:"USAGE_POLICY" default:"trial"`
	TrialLimit int      `envconfig:"FREE_TRIAL_LIMIT" default:"5"`
	Whitelist  []string `envconfig:"WHITELIST_EMAILS"`
}

type AIConfig struct {
	APIKey        string        `envconfig:"GEMINI_API_KEY"`
	Model         string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash-exp"`
	BaseURL       string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout       time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	RatePerMinute float64       `envconfig:"AI_RATE_PER_MINUTE" default:"20"`
	Burst         int           `envconfig:"AI_BURST" default:"5"`
}

type AdminConfig struct {
	Secret   string        `envconfig:"ADMIN_SECRET"`
	TokenTTL time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"12h"`
}

type SheetsConfig struct {
	Enabled        bool   `envconfig:"SHEETS_SYNC_ENABLED" default:"false"`
	CredentialPath string `envconfig:"SHEETS_CREDENTIALS"`
	SpreadsheetID  string `envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetName      string `envconfig:"SHEETS_SHEET_NAME" default:"Licenses"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	// Best-effort .env loading (not required)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.normalize()
	if cfg.License.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.License.Secret = secret
		cfg.EphemeralSecret = true
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Usage.Policy = strings.ToLower(strings.TrimSpace(c.Usage.Policy))
	c.License.Secret = strings.TrimSpace(c.License.Secret)
	c.Admin.Secret = strings.TrimSpace(c.Admin.Secret)
	c.AI.APIKey = strings.TrimSpace(c.AI.APIKey)

	emails := make([]string, 0, len(c.Usage.Whitelist))
	for _, email := range c.Usage.Whitelist {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			emails = append(emails, email)
		}
	}
	c.Usage.Whitelist = emails
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if strings.TrimSpace(c.DBFile) == "" {
		return fmt.Errorf("DB_FILE must not be empty")
	}
	switch c.Usage.Policy {
	case PolicyTrial, PolicyUnlimited, PolicyWhitelist:
	default:
		return fmt.Errorf("USAGE_POLICY must be one of %s, %s, %s; got %q",
			PolicyTrial, PolicyUnlimited, PolicyWhitelist, c.Usage.Policy)
	}
	if c.Usage.TrialLimit < 0 {
		return fmt.Errorf("FREE_TRIAL_LIMIT must not be negative, got %d", c.Usage.TrialLimit)
	}
	if c.License.Validity <= 0 {
		return fmt.Errorf("LICENSE_VALIDITY must be positive, got %s", c.License.Validity)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %s", c.AI.Timeout)
	}
	if c.AI.RatePerMinute < 0 || c.AI.Burst < 0 {
		return fmt.Errorf("AI_RATE_PER_MINUTE and AI_BURST must not be negative")
	}
	if c.Sheets.Enabled && (c.Sheets.CredentialPath == "" || c.Sheets.SpreadsheetID == "") {
		return fmt.Errorf("SHEETS_CREDENTIALS and SHEETS_SPREADSHEET_ID are required when SHEETS_SYNC_ENABLED is set")
	}
	return nil
}

// ListenAddr is the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate license secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
