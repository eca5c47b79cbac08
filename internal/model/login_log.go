package model

import "time"

type AdminLoginLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Status    string    `json:"status"` // success, failed
	CreatedAt time.Time `json:"created_at"`
}
