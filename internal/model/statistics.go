package model

import "time"

// DailyUsage counts checks per day.
type DailyUsage struct {
	Date          string `json:"date"`
	ActiveDevices int    `json:"active_devices"`
	TotalChecks   int    `json:"total_checks"`
}

// LedgerStatistics summarises the ledger for the admin dashboard.
type LedgerStatistics struct {
	TotalLicenses    int64          `json:"total_licenses"`
	ActiveLicenses   int64          `json:"active_licenses"`
	ExpiredLicenses  int64          `json:"expired_licenses"`
	ExpiringLicenses int64          `json:"expiring_licenses"`
	RevokedLicenses  int64          `json:"revoked_licenses"`
	LicensesByMethod map[string]int `json:"licenses_by_method"`
	TotalDevices     int64          `json:"total_devices"`
	LicensedDevices  int64          `json:"licensed_devices"`
	ExhaustedDevices int64          `json:"exhausted_devices"`
	TotalUsage       int64          `json:"total_usage"`
	DailyUsage       []DailyUsage   `json:"daily_usage"`
}

// GetActiveRate returns the share of licenses that are active and unexpired.
func (ls *LedgerStatistics) GetActiveRate() float64 {
	if ls.TotalLicenses == 0 {
		return 0
	}
	return float64(ls.ActiveLicenses) / float64(ls.TotalLicenses)
}

// GetUsageByMethod returns the license count for a payment method.
func (ls *LedgerStatistics) GetUsageByMethod(method string) int {
	if count, ok := ls.LicensesByMethod[method]; ok {
		return count
	}
	return 0
}

// GetDailyUsageByDate returns the entry for date, or nil.
func (ls *LedgerStatistics) GetDailyUsageByDate(date time.Time) *DailyUsage {
	day := date.Format("2006-01-02")
	for i := range ls.DailyUsage {
		if ls.DailyUsage[i].Date == day {
			return &ls.DailyUsage[i]
		}
	}
	return nil
}
