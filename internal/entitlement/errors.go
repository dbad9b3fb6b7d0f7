package entitlement

import "errors"

var (
	ErrInvalidLicense          = errors.New("invalid license key")
	ErrLicenseExpired          = errors.New("license access window has ended")
	ErrVerificationUnavailable = errors.New("license verification unavailable")
	ErrPaymentFailed           = errors.New("payment failed")
)
