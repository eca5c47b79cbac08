package service

import (
	"testing"
	"time"

	"hiredalways/internal/database"
	"hiredalways/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsCompute(t *testing.T) {
	ledger := newTestLedger(t)
	day := 24 * time.Hour

	add := func(key string, active bool, started time.Time, method string) {
		ledger.CreateLicense(model.License{
			Key:           key,
			Active:        active,
			UserID:        key + "@example.com",
			StartDate:     model.NewTimestamp(started),
			PaymentMethod: method,
		})
	}
	add("fresh", true, testNow, "paypal")
	add("expiring", true, testNow.Add(-28*day), "paypal")
	add("expired", true, testNow.Add(-40*day), "")
	add("revoked", false, testNow, "paypal")

	for i := 0; i < 5; i++ {
		ledger.IncrementUsage("d1")
	}
	key := "fresh"
	ledger.UpdateUsage("d2", model.UsageUpdate{LicenseKey: &key})
	ledger.IncrementUsage("d2")

	stats := NewStatisticsService(ledger, nil, testWindow, 5)
	stats.SetClock(func() time.Time { return testNow })

	got, err := stats.Compute(testNow.Add(-30*day), testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(4), got.TotalLicenses)
	assert.Equal(t, int64(2), got.ActiveLicenses)
	assert.Equal(t, int64(1), got.ExpiringLicenses)
	assert.Equal(t, int64(1), got.ExpiredLicenses)
	assert.Equal(t, int64(1), got.RevokedLicenses)
	assert.Equal(t, 3, got.GetUsageByMethod("paypal"))
	assert.Equal(t, 1, got.GetUsageByMethod("manual"))
	assert.InDelta(t, 0.5, got.GetActiveRate(), 0.0001)

	assert.Equal(t, int64(2), got.TotalDevices)
	assert.Equal(t, int64(1), got.LicensedDevices)
	assert.Equal(t, int64(1), got.ExhaustedDevices)
	assert.Equal(t, int64(6), got.TotalUsage)
	assert.Empty(t, got.DailyUsage)
}

func TestStatisticsDailyUsage(t *testing.T) {
	audit := NewAudit(database.OpenTestAudit(t), zerolog.Nop())
	yesterday := testNow.Add(-24 * time.Hour)
	audit.RecordCheck(model.LicenseCheck{Device: "d1", Action: "track", Result: "allowed", Timestamp: yesterday})
	audit.RecordCheck(model.LicenseCheck{Device: "d1", Action: "check", Result: "trial", Timestamp: testNow})
	audit.RecordCheck(model.LicenseCheck{Device: "d2", Action: "check", Result: "trial", Timestamp: testNow})

	stats := NewStatisticsService(newTestLedger(t), audit, testWindow, 5)
	got, err := stats.Compute(testNow.Add(-7*24*time.Hour), testNow.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, got.DailyUsage, 2)
	today := got.GetDailyUsageByDate(testNow)
	require.NotNil(t, today)
	assert.Equal(t, 2, today.ActiveDevices)
	assert.Equal(t, 2, today.TotalChecks)
	assert.Nil(t, got.GetDailyUsageByDate(testNow.Add(-3*24*time.Hour)))
}
