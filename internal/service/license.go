package service

import (
	"errors"
	"fmt"
	"time"

	"hiredalways/internal/database"
	"hiredalways/internal/licensekey"
	"hiredalways/internal/metrics"
	"hiredalways/internal/model"

	"github.com/rs/zerolog"
)

// Validation failure reasons.
var (
	ErrLicenseMalformed        = errors.New("invalid format")
	ErrLicenseNotFound         = errors.New("license not found")
	ErrLicenseInactive         = errors.New("license inactive")
	ErrLicenseExpired          = errors.New("license expired")
	ErrLicenseInvalidSignature = errors.New("invalid signature")
	ErrLicenseInternal         = errors.New("validation error")
)

// Reason maps a validation error to its stable reason code.
func Reason(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, ErrLicenseMalformed):
		return "malformed"
	case errors.Is(err, ErrLicenseNotFound):
		return "not-found"
	case errors.Is(err, ErrLicenseInactive):
		return "inactive"
	case errors.Is(err, ErrLicenseExpired):
		return "expired"
	case errors.Is(err, ErrLicenseInvalidSignature):
		return "invalid-signature"
	default:
		return "internal-error"
	}
}

// Message is the client-facing text for a validation error.
func Message(err error) string {
	switch Reason(err) {
	case "malformed":
		return "Invalid format"
	case "not-found":
		return "License not found"
	case "inactive":
		return "License inactive"
	case "expired":
		return "License expired"
	case "invalid-signature":
		return "Invalid signature"
	default:
		return "Validation error"
	}
}

// Validation is a successful license check.
type Validation struct {
	Key       string
	UserID    string
	StartDate time.Time
	ExpiresAt time.Time
}

// LicenseService issues, validates and revokes license keys against the ledger.
type LicenseService struct {
	ledger          *database.Ledger
	codec           *licensekey.Codec
	window          time.Duration
	verifySignature bool
	sheets          *SheetSyncService
	logger          zerolog.Logger
	now             func() time.Time
}

type LicenseOptions struct {
	Window          time.Duration
	VerifySignature bool
	Sheets          *SheetSyncService
}

func NewLicenseService(ledger *database.Ledger, codec *licensekey.Codec, opts LicenseOptions, logger zerolog.Logger) *LicenseService {
	return &LicenseService{
		ledger:          ledger,
		codec:           codec,
		window:          opts.Window,
		verifySignature: opts.VerifySignature,
		sheets:          opts.Sheets,
		logger:          logger.With().Str("component", "license").Logger(),
		now:             time.Now,
	}
}

// SetClock replaces the time source; tests use it to age licenses.
func (s *LicenseService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *LicenseService) Window() time.Duration {
	return s.window
}

// Issue creates and stores an active license for identity starting now.
func (s *LicenseService) Issue(identity string, meta model.PaymentMeta, source string) (model.License, error) {
	now := s.now()
	key, err := s.codec.Issue(identity, now)
	if err != nil {
		return model.License{}, fmt.Errorf("issue license: %w", err)
	}

	license := s.ledger.CreateLicense(model.License{
		Key:                  key,
		Active:               true,
		UserID:               identity,
		IssuedTo:             identity,
		StartDate:            model.NewTimestamp(now),
		CreatedAt:            model.NewTimestamp(now),
		PaypalSubscriptionID: meta.PaypalSubscriptionID,
		PaypalOrderID:        meta.PaypalOrderID,
		PaymentMethod:        meta.PaymentMethod,
		Plan:                 meta.Plan,
	})
	metrics.LicensesIssued.WithLabelValues(source).Inc()
	s.logger.Info().Str("user_id", identity).Str("source", source).Msg("License issued")
	s.sheets.SyncLicenseAsync(license)
	return license, nil
}

// Validate checks structure, ledger presence, signature, active flag and
// expiry, in that order.
func (s *LicenseService) Validate(token string) (Validation, error) {
	result, err := s.validate(token)
	metrics.LicenseValidations.WithLabelValues(Reason(err)).Inc()
	return result, err
}

func (s *LicenseService) validate(token string) (Validation, error) {
	if _, err := s.codec.Parse(token); err != nil {
		return Validation{}, fmt.Errorf("%w: %v", ErrLicenseMalformed, err)
	}

	license, ok := s.ledger.GetLicense(token)
	if !ok {
		return Validation{}, ErrLicenseNotFound
	}
	if s.verifySignature && !s.codec.Verify(token, license.SignedIdentity()) {
		s.logger.Warn().Str("license_key", token).Msg("License signature does not match stored identity")
		return Validation{}, ErrLicenseInvalidSignature
	}
	if !license.Active {
		return Validation{}, ErrLicenseInactive
	}
	if license.StartDate.IsZero() {
		return Validation{}, fmt.Errorf("%w: license has no start date", ErrLicenseInternal)
	}

	expiresAt := license.ExpiresAt(s.window)
	if s.now().After(expiresAt) {
		return Validation{}, ErrLicenseExpired
	}

	return Validation{
		Key:       token,
		UserID:    license.UserID,
		StartDate: license.StartDate.Time,
		ExpiresAt: expiresAt,
	}, nil
}

// Revoke deactivates a license. Absent keys report ErrLicenseNotFound.
func (s *LicenseService) Revoke(token string) (model.License, error) {
	license, ok := s.ledger.RevokeLicense(token)
	if !ok {
		return model.License{}, ErrLicenseNotFound
	}
	s.logger.Info().Str("license_key", token).Msg("License revoked")
	s.sheets.SyncLicenseAsync(license)
	return license, nil
}

// Update applies an admin field update.
func (s *LicenseService) Update(token string, upd model.LicenseUpdate) (model.License, error) {
	license, ok := s.ledger.UpdateLicense(token, upd)
	if !ok {
		return model.License{}, ErrLicenseNotFound
	}
	s.sheets.SyncLicenseAsync(license)
	return license, nil
}

func (s *LicenseService) Get(token string) (model.License, error) {
	license, ok := s.ledger.GetLicense(token)
	if !ok {
		return model.License{}, ErrLicenseNotFound
	}
	return license, nil
}

func (s *LicenseService) List() []model.License {
	return s.ledger.ListLicenses()
}

// Owner returns the identity on a stored license, regardless of its state.
func (s *LicenseService) Owner(token string) (string, bool) {
	license, ok := s.ledger.GetLicense(token)
	if !ok {
		return "", false
	}
	return license.UserID, true
}
