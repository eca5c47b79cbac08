package model

type ValidateLicenseInput struct {
	LicenseKey        string `json:"license_key" validate:"required"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
}

type UsageInput struct {
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
	LicenseKey        string `json:"license_key"`
}

type WhitelistInput struct {
	Email             string `json:"email" validate:"required,email"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
}

type AIProxyInput struct {
	Prompt            string `json:"prompt" validate:"required"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
	LicenseKey        string `json:"license_key"`
}

type CreateSubscriptionInput struct {
	Email          string `json:"email" validate:"required"`
	SubscriptionID string `json:"subscription_id" validate:"required"`
	OrderID        string `json:"order_id"`
}

type AdminLoginInput struct {
	SecretKey string `json:"secret_key" validate:"required"`
}
