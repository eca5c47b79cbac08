package model

import (
	"time"

	"gorm.io/gorm"
)

// LicenseCheck is an audit row written whenever a license or device is checked.
type LicenseCheck struct {
	gorm.Model
	LicenseKey string    `json:"license_key" gorm:"index"`
	Device     string    `json:"device" gorm:"index"`
	Action     string    `json:"action"` // "validate", "check", "track", "proxy"
	Result     string    `json:"result"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
}
