package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"hiredalways/internal/metrics"
	"hiredalways/internal/model"

	"github.com/rs/zerolog"
)

type document struct {
	Licenses map[string]*model.License     `json:"licenses"`
	Usage    map[string]*model.UsageRecord `json:"usage"`
}

func emptyDocument() document {
	return document{
		Licenses: make(map[string]*model.License),
		Usage:    make(map[string]*model.UsageRecord),
	}
}

// Ledger is the JSON file store for licenses and device usage. Every method
// takes the lock, and every mutation rewrites the whole file before returning.
type Ledger struct {
	mu     sync.Mutex
	path   string
	data   document
	now    func() time.Time
	logger zerolog.Logger
}

// OpenLedger loads path if it exists. A missing or corrupt file yields an
// empty ledger; the problem is logged, not returned.
func OpenLedger(path string, logger zerolog.Logger) *Ledger {
	l := &Ledger{
		path:   path,
		data:   emptyDocument(),
		now:    time.Now,
		logger: logger.With().Str("component", "ledger").Logger(),
	}
	l.load()
	return l
}

// SetClock replaces the time source used for created_at and last_used stamps.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) load() {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Info().Str("path", l.path).Msg("Ledger file not found, starting empty")
			return
		}
		l.logger.Warn().Err(err).Str("path", l.path).Msg("Could not read ledger, starting empty")
		return
	}

	loaded := emptyDocument()
	if err := json.Unmarshal(raw, &loaded); err != nil {
		l.quarantine(err)
		return
	}
	if loaded.Licenses == nil {
		loaded.Licenses = make(map[string]*model.License)
	}
	if loaded.Usage == nil {
		loaded.Usage = make(map[string]*model.UsageRecord)
	}
	for key, lic := range loaded.Licenses {
		if lic == nil {
			delete(loaded.Licenses, key)
			continue
		}
		lic.Key = key
	}
	for device, usage := range loaded.Usage {
		if usage == nil {
			delete(loaded.Usage, device)
		}
	}

	l.data = loaded
	l.logger.Info().
		Str("path", l.path).
		Int("licenses", len(loaded.Licenses)).
		Int("devices", len(loaded.Usage)).
		Msg("Ledger loaded")
}

// quarantine moves an undecodable ledger aside so the first save cannot
// overwrite it.
func (l *Ledger) quarantine(cause error) {
	backup := fmt.Sprintf("%s.corrupt-%d", l.path, l.now().Unix())
	if err := os.Rename(l.path, backup); err != nil {
		l.logger.Error().Err(err).AnErr("cause", cause).Str("path", l.path).Msg("Could not decode ledger or move it aside, starting empty")
		return
	}
	l.logger.Warn().Err(cause).Str("path", l.path).Str("backup", backup).Msg("Could not decode ledger, moved it aside and starting empty")
}

// saveLocked writes the whole document through a temp file. Failures are
// logged and counted; the in-memory state stays authoritative until the
// next successful save.
func (l *Ledger) saveLocked() {
	if err := l.writeLocked(); err != nil {
		metrics.LedgerSaveFailures.Inc()
		l.logger.Error().Err(err).Str("path", l.path).Msg("Error saving ledger")
	}
}

func (l *Ledger) writeLocked() error {
	payload, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}
	tmpPath := l.path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o600); err != nil {
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("commit ledger: %w", err)
	}
	return nil
}

// GetLicense returns a copy of the record stored under key.
func (l *Ledger) GetLicense(key string) (model.License, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lic, ok := l.data.Licenses[key]
	if !ok {
		return model.License{}, false
	}
	return *lic, true
}

// CreateLicense stores lic under lic.Key, replacing any previous record.
func (l *Ledger) CreateLicense(lic model.License) model.License {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := lic
	l.data.Licenses[lic.Key] = &stored
	l.saveLocked()
	return stored
}

// UpdateLicense applies the non-nil fields of upd. It reports false if key is absent.
func (l *Ledger) UpdateLicense(key string, upd model.LicenseUpdate) (model.License, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lic, ok := l.data.Licenses[key]
	if !ok {
		return model.License{}, false
	}
	if upd.Active != nil {
		lic.Active = *upd.Active
	}
	if upd.UserID != nil {
		if lic.IssuedTo == "" {
			lic.IssuedTo = lic.UserID
		}
		lic.UserID = *upd.UserID
	}
	if upd.Plan != nil {
		lic.Plan = *upd.Plan
	}
	if upd.StartDate != nil {
		lic.StartDate = model.NewTimestamp(*upd.StartDate)
	}
	l.saveLocked()
	return *lic, true
}

// RevokeLicense marks the license inactive.
func (l *Ledger) RevokeLicense(key string) (model.License, bool) {
	inactive := false
	return l.UpdateLicense(key, model.LicenseUpdate{Active: &inactive})
}

// ListLicenses returns every license, newest first.
func (l *Ledger) ListLicenses() []model.License {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.License, 0, len(l.data.Licenses))
	for _, lic := range l.data.Licenses {
		out = append(out, *lic)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate.Time) {
			return out[i].Key < out[j].Key
		}
		return out[i].StartDate.After(out[j].StartDate.Time)
	})
	return out
}

// LicensesBySubscription returns the licenses issued for a PayPal subscription.
func (l *Ledger) LicensesBySubscription(subscriptionID string) []model.License {
	if subscriptionID == "" {
		return nil
	}
	var out []model.License
	for _, lic := range l.ListLicenses() {
		if lic.PaypalSubscriptionID == subscriptionID {
			out = append(out, lic)
		}
	}
	return out
}

// GetUsage returns the device record, creating and persisting a zero-count
// record on first sight.
func (l *Ledger) GetUsage(device string) model.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage, created := l.usageLocked(device)
	if created {
		l.saveLocked()
	}
	return cloneUsage(usage)
}

// IncrementUsage raises the device count by one and stamps last_used.
func (l *Ledger) IncrementUsage(device string) model.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage, _ := l.usageLocked(device)
	usage.Count++
	usage.LastUsed = model.NewTimestamp(l.now())
	l.saveLocked()
	return cloneUsage(usage)
}

// IncrementUsageIf raises the device count only while it is below limit. The
// check and the increment happen under one lock hold. It reports whether the
// use was counted; a refused call returns the record unchanged.
func (l *Ledger) IncrementUsageIf(device string, limit int) (model.UsageRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage, created := l.usageLocked(device)
	if usage.Count >= limit {
		if created {
			l.saveLocked()
		}
		return cloneUsage(usage), false
	}
	usage.Count++
	usage.LastUsed = model.NewTimestamp(l.now())
	l.saveLocked()
	return cloneUsage(usage), true
}

// UpdateUsage merges the non-nil fields of upd into the device record.
func (l *Ledger) UpdateUsage(device string, upd model.UsageUpdate) model.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage, _ := l.usageLocked(device)
	if upd.LicenseKey != nil {
		key := *upd.LicenseKey
		usage.LicenseKey = &key
	}
	if upd.Email != nil {
		email := *upd.Email
		usage.Email = &email
	}
	if upd.LastUsed != nil {
		usage.LastUsed = *upd.LastUsed
	}
	l.saveLocked()
	return cloneUsage(usage)
}

// UsageSnapshot returns a copy of every device record.
func (l *Ledger) UsageSnapshot() map[string]model.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]model.UsageRecord, len(l.data.Usage))
	for device, usage := range l.data.Usage {
		out[device] = cloneUsage(usage)
	}
	return out
}

// usageLocked returns the live record for device, adding a zero-count one on
// first sight. The caller saves.
func (l *Ledger) usageLocked(device string) (*model.UsageRecord, bool) {
	usage, ok := l.data.Usage[device]
	if ok {
		return usage, false
	}
	usage = &model.UsageRecord{
		CreatedAt: model.NewTimestamp(l.now()),
	}
	l.data.Usage[device] = usage
	return usage, true
}

func cloneUsage(usage *model.UsageRecord) model.UsageRecord {
	out := *usage
	if usage.LicenseKey != nil {
		key := *usage.LicenseKey
		out.LicenseKey = &key
	}
	if usage.Email != nil {
		email := *usage.Email
		out.Email = &email
	}
	return out
}
