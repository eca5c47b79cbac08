package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hiredalways/internal/config"
	"hiredalways/internal/database"
	"hiredalways/internal/metrics"
	"hiredalways/internal/model"

	"github.com/rs/zerolog"
)

var (
	ErrTrialExhausted = errors.New("free trial exhausted")
	ErrNotWhitelisted = errors.New("email is not whitelisted")
)

// UsageService decides whether a device may use the extension under the
// configured policy. A valid license always wins.
type UsageService struct {
	ledger     *database.Ledger
	licenses   *LicenseService
	policy     string
	trialLimit int
	whitelist  map[string]struct{}
	logger     zerolog.Logger
	now        func() time.Time
}

type UsageOptions struct {
	Policy     string
	TrialLimit int
	Whitelist  []string
}

func NewUsageService(ledger *database.Ledger, licenses *LicenseService, opts UsageOptions, logger zerolog.Logger) *UsageService {
	whitelist := make(map[string]struct{}, len(opts.Whitelist))
	for _, email := range opts.Whitelist {
		whitelist[normalizeEmail(email)] = struct{}{}
	}
	policy := opts.Policy
	if policy == "" {
		policy = config.PolicyTrial
	}
	return &UsageService{
		ledger:     ledger,
		licenses:   licenses,
		policy:     policy,
		trialLimit: opts.TrialLimit,
		whitelist:  whitelist,
		logger:     logger.With().Str("component", "usage").Logger(),
		now:        time.Now,
	}
}

func (s *UsageService) Policy() string {
	return s.policy
}

func (s *UsageService) TrialLimit() int {
	return s.trialLimit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsWhitelisted reports whether email is on the configured whitelist.
func (s *UsageService) IsWhitelisted(email string) bool {
	if email == "" {
		return false
	}
	_, ok := s.whitelist[normalizeEmail(email)]
	return ok
}

// DeviceWhitelisted checks the email recorded on the device, then the owner
// of the license associated with it.
func (s *UsageService) DeviceWhitelisted(usage model.UsageRecord) bool {
	if usage.Email != nil && s.IsWhitelisted(*usage.Email) {
		return true
	}
	if usage.LicenseKey != nil {
		if owner, ok := s.licenses.Owner(*usage.LicenseKey); ok && s.IsWhitelisted(owner) {
			return true
		}
	}
	return false
}

// unlimited reports whether an unpaid device bypasses the trial limit.
func (s *UsageService) unlimited(usage model.UsageRecord) (bool, string) {
	switch s.policy {
	case config.PolicyUnlimited:
		return true, "unlimited"
	case config.PolicyWhitelist:
		if s.DeviceWhitelisted(usage) {
			return true, "whitelisted"
		}
	}
	return false, ""
}

func (s *UsageService) validLicense(licenseKey string) (Validation, bool) {
	if licenseKey == "" {
		return Validation{}, false
	}
	validation, err := s.licenses.Validate(licenseKey)
	if err != nil {
		s.logger.Debug().Str("reason", Reason(err)).Msg("License rejected, falling back to usage policy")
		return Validation{}, false
	}
	return validation, true
}

// CheckUsage reports the device's status without changing its count.
func (s *UsageService) CheckUsage(device, licenseKey string) model.UsageStatus {
	status := s.checkUsage(device, licenseKey)
	metrics.UsageEvents.WithLabelValues("check", status.Status).Inc()
	return status
}

func (s *UsageService) checkUsage(device, licenseKey string) model.UsageStatus {
	usage := s.ledger.GetUsage(device)

	if validation, ok := s.validLicense(licenseKey); ok {
		expiresAt := model.NewTimestamp(validation.ExpiresAt)
		return model.UsageStatus{
			Status:    "subscribed",
			Valid:     true,
			IsPaid:    true,
			ExpiresAt: &expiresAt,
		}
	}

	count := usage.Count
	if ok, status := s.unlimited(usage); ok {
		return model.UsageStatus{
			Status:        status,
			Valid:         true,
			IsUnlimited:   true,
			IsWhitelisted: status == "whitelisted",
			UsageCount:    &count,
		}
	}

	limit := s.trialLimit
	remaining := limit - count
	if remaining > 0 {
		return model.UsageStatus{
			Status:     "trial",
			Valid:      true,
			UsageCount: &count,
			Remaining:  &remaining,
			TrialLimit: &limit,
		}
	}
	zero := 0
	return model.UsageStatus{
		Status:     "trial_exhausted",
		Valid:      false,
		UsageCount: &count,
		Remaining:  &zero,
		TrialLimit: &limit,
	}
}

// TrackUsage records one use. Paid devices only get last_used stamped;
// trial devices at the limit get ErrTrialExhausted.
func (s *UsageService) TrackUsage(device, licenseKey string) (model.TrackResult, error) {
	result, err := s.trackUsage(device, licenseKey)
	status := "allowed"
	if err != nil {
		status = "denied"
	}
	metrics.UsageEvents.WithLabelValues("track", status).Inc()
	return result, err
}

func (s *UsageService) trackUsage(device, licenseKey string) (model.TrackResult, error) {
	if _, ok := s.validLicense(licenseKey); ok {
		lastUsed := model.NewTimestamp(s.now())
		s.ledger.UpdateUsage(device, model.UsageUpdate{LastUsed: &lastUsed})
		return model.TrackResult{
			Allowed: true,
			IsPaid:  true,
			Message: "Autofill authorized (subscription active)",
		}, nil
	}

	usage := s.ledger.GetUsage(device)
	if ok, _ := s.unlimited(usage); ok {
		updated := s.ledger.IncrementUsage(device)
		count := updated.Count
		return model.TrackResult{
			Allowed:     true,
			IsUnlimited: true,
			UsageCount:  &count,
			Message:     "Autofill authorized (unlimited access)",
		}, nil
	}

	updated, counted := s.ledger.IncrementUsageIf(device, s.trialLimit)
	if !counted {
		return model.TrackResult{}, ErrTrialExhausted
	}
	count := updated.Count
	remaining := s.trialLimit - count
	return model.TrackResult{
		Allowed:    true,
		UsageCount: &count,
		Remaining:  &remaining,
		Message:    fmt.Sprintf("Autofill authorized (%d trial uses remaining)", remaining),
	}, nil
}

// ActivateWhitelist binds a whitelisted email to a device.
func (s *UsageService) ActivateWhitelist(email, device string) (model.UsageRecord, error) {
	if !s.IsWhitelisted(email) {
		return model.UsageRecord{}, ErrNotWhitelisted
	}
	normalized := normalizeEmail(email)
	usage := s.ledger.UpdateUsage(device, model.UsageUpdate{Email: &normalized})
	s.logger.Info().Str("device", device).Msg("Whitelist activated for device")
	return usage, nil
}

// AssociateLicense records the license on the device after a successful validation.
func (s *UsageService) AssociateLicense(device, licenseKey string) {
	s.ledger.UpdateUsage(device, model.UsageUpdate{LicenseKey: &licenseKey})
}
