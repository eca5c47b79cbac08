package service

import (
	"encoding/json"
	"time"

	"hiredalways/internal/model"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Audit writes append-only audit rows. A nil *Audit or one without a
// database is a no-op; write failures are logged and absorbed.
type Audit struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewAudit(db *gorm.DB, logger zerolog.Logger) *Audit {
	return &Audit{
		db:     db,
		logger: logger.With().Str("component", "audit").Logger(),
		now:    time.Now,
	}
}

func (a *Audit) enabled() bool {
	return a != nil && a.db != nil
}

// RecordCheck stores one license/device check.
func (a *Audit) RecordCheck(check model.LicenseCheck) {
	if !a.enabled() {
		return
	}
	if check.Timestamp.IsZero() {
		check.Timestamp = a.now()
	}
	if err := a.db.Create(&check).Error; err != nil {
		a.logger.Warn().Err(err).Str("action", check.Action).Msg("Failed to record license check")
	}
}

// LogOperation stores an admin operation with JSON-encoded details.
func (a *Audit) LogOperation(actor, action, target, targetID string, details interface{}) {
	if !a.enabled() {
		return
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Warn().Err(err).Str("action", action).Msg("Failed to encode operation details")
		detailsJSON = []byte("null")
	}

	entry := &model.OperationLog{
		Actor:     actor,
		Action:    action,
		Target:    target,
		TargetID:  targetID,
		Details:   string(detailsJSON),
		CreatedAt: a.now(),
	}
	if err := a.db.Create(entry).Error; err != nil {
		a.logger.Warn().Err(err).Str("action", action).Msg("Failed to record operation")
	}
}

// RecordAdminLogin stores an admin login attempt.
func (a *Audit) RecordAdminLogin(ip, userAgent, status string) {
	if !a.enabled() {
		return
	}
	entry := &model.AdminLoginLog{
		IP:        ip,
		UserAgent: userAgent,
		Status:    status,
		CreatedAt: a.now(),
	}
	if err := a.db.Create(entry).Error; err != nil {
		a.logger.Warn().Err(err).Msg("Failed to record admin login")
	}
}

// GetOperationLogs pages through admin operations, newest first.
func (a *Audit) GetOperationLogs(page, pageSize int) ([]model.OperationLog, int64, error) {
	var logs []model.OperationLog
	var total int64
	if !a.enabled() {
		return logs, 0, nil
	}

	if err := a.db.Model(&model.OperationLog{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := a.db.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// GetLicenseChecks returns the most recent checks for a license key.
func (a *Audit) GetLicenseChecks(key string, limit int) ([]model.LicenseCheck, error) {
	var checks []model.LicenseCheck
	if !a.enabled() {
		return checks, nil
	}
	err := a.db.Where("license_key = ?", key).Order("timestamp desc").Limit(limit).Find(&checks).Error
	return checks, err
}

// DailyChecks groups checks per day between start and end.
func (a *Audit) DailyChecks(start, end time.Time) ([]model.DailyUsage, error) {
	daily := make([]model.DailyUsage, 0)
	if !a.enabled() {
		return daily, nil
	}
	err := a.db.Model(&model.LicenseCheck{}).
		Select("DATE(timestamp) as date, COUNT(DISTINCT device) as active_devices, COUNT(*) as total_checks").
		Where("timestamp BETWEEN ? AND ?", start, end).
		Group("DATE(timestamp)").
		Order("date ASC").
		Scan(&daily).Error
	return daily, err
}
