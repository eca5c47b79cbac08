package model

import "time"

// License is a ledger entry keyed by its token. Expiry is derived from
// StartDate and the configured validity window, never stored. IssuedTo is the
// identity the key was signed for; it stays fixed when UserID is reassigned.
type License struct {
	Key                  string    `json:"key,omitempty"`
	Active               bool      `json:"active"`
	UserID               string    `json:"user_id"`
	IssuedTo             string    `json:"issued_to,omitempty"`
	StartDate            Timestamp `json:"start_date"`
	CreatedAt            Timestamp `json:"created_at"`
	PaypalSubscriptionID string    `json:"paypal_subscription_id,omitempty"`
	PaypalOrderID        string    `json:"paypal_order_id,omitempty"`
	PaymentMethod        string    `json:"payment_method,omitempty"`
	Plan                 string    `json:"plan,omitempty"`
}

// ExpiresAt returns the end of the license window.
func (l License) ExpiresAt(window time.Duration) time.Time {
	return l.StartDate.Add(window)
}

// SignedIdentity is the identity the key signature covers. Records written
// before IssuedTo existed were signed for UserID.
func (l License) SignedIdentity() string {
	if l.IssuedTo != "" {
		return l.IssuedTo
	}
	return l.UserID
}

// PaymentMeta is the optional payment data attached at issuance.
type PaymentMeta struct {
	PaypalSubscriptionID string
	PaypalOrderID        string
	PaymentMethod        string
	Plan                 string
}

// LicenseUpdate carries the fields an admin may change. Nil fields are left alone.
type LicenseUpdate struct {
	Active    *bool      `json:"active"`
	UserID    *string    `json:"user_id"`
	Plan      *string    `json:"plan"`
	StartDate *time.Time `json:"start_date"`
}
