package service

import (
	"fmt"
	"time"

	"hiredalways/internal/database"
	"hiredalways/internal/model"
)

// expiringWithin is how close to expiry an active license counts as expiring.
const expiringWithin = 7 * 24 * time.Hour

// StatisticsService builds the admin dashboard numbers.
type StatisticsService struct {
	ledger     *database.Ledger
	audit      *Audit
	window     time.Duration
	trialLimit int
	now        func() time.Time
}

func NewStatisticsService(ledger *database.Ledger, audit *Audit, window time.Duration, trialLimit int) *StatisticsService {
	return &StatisticsService{
		ledger:     ledger,
		audit:      audit,
		window:     window,
		trialLimit: trialLimit,
		now:        time.Now,
	}
}

func (s *StatisticsService) SetClock(now func() time.Time) {
	s.now = now
}

// Compute summarises the ledger and the audit checks between start and end.
func (s *StatisticsService) Compute(start, end time.Time) (*model.LedgerStatistics, error) {
	now := s.now()
	stats := &model.LedgerStatistics{
		LicensesByMethod: make(map[string]int),
		DailyUsage:       make([]model.DailyUsage, 0),
	}

	// licenses
	for _, license := range s.ledger.ListLicenses() {
		stats.TotalLicenses++

		method := license.PaymentMethod
		if method == "" {
			method = "manual"
		}
		stats.LicensesByMethod[method]++

		if !license.Active {
			stats.RevokedLicenses++
			continue
		}
		expiresAt := license.ExpiresAt(s.window)
		switch {
		case now.After(expiresAt):
			stats.ExpiredLicenses++
		case expiresAt.Sub(now) <= expiringWithin:
			stats.ActiveLicenses++
			stats.ExpiringLicenses++
		default:
			stats.ActiveLicenses++
		}
	}

	// devices
	for _, usage := range s.ledger.UsageSnapshot() {
		stats.TotalDevices++
		stats.TotalUsage += int64(usage.Count)
		if usage.LicenseKey != nil && *usage.LicenseKey != "" {
			stats.LicensedDevices++
		}
		if usage.Count >= s.trialLimit {
			stats.ExhaustedDevices++
		}
	}

	daily, err := s.audit.DailyChecks(start, end)
	if err != nil {
		return nil, fmt.Errorf("daily checks: %w", err)
	}
	stats.DailyUsage = daily
	return stats, nil
}
