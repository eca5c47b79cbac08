package model

// UsageRecord tracks one device fingerprint. Count never decreases.
type UsageRecord struct {
	Count      int       `json:"count"`
	LicenseKey *string   `json:"license_key"`
	Email      *string   `json:"email,omitempty"`
	LastUsed   Timestamp `json:"last_used"`
	CreatedAt  Timestamp `json:"created_at"`
}

// UsageUpdate is shallow-merged into a UsageRecord; nil fields are skipped.
type UsageUpdate struct {
	LicenseKey *string
	Email      *string
	LastUsed   *Timestamp
}

// UsageStatus is the answer to a check-usage request.
type UsageStatus struct {
	Status        string     `json:"status"`
	Valid         bool       `json:"valid"`
	IsPaid        bool       `json:"is_paid"`
	IsUnlimited   bool       `json:"is_unlimited,omitempty"`
	IsWhitelisted bool       `json:"is_whitelisted,omitempty"`
	UsageCount    *int       `json:"usage_count,omitempty"`
	Remaining     *int       `json:"remaining_uses,omitempty"`
	TrialLimit    *int       `json:"trial_limit,omitempty"`
	ExpiresAt     *Timestamp `json:"expires_at,omitempty"`
}

// TrackResult is the answer to a track-usage request.
type TrackResult struct {
	Allowed     bool   `json:"allowed"`
	IsPaid      bool   `json:"is_paid"`
	IsUnlimited bool   `json:"is_unlimited,omitempty"`
	UsageCount  *int   `json:"usage_count,omitempty"`
	Remaining   *int   `json:"remaining_uses,omitempty"`
	Message     string `json:"message"`
}
