package service

import "errors"

// Auth flow specific errors used by handlers for stable error_type mapping.
var (
	ErrAccountNotActivated = errors.New("account_not_activated")
	ErrAlreadyActivated    = errors.New("account_already_activated")
	ErrInvalidOrExpiredOTP = errors.New("invalid_or_expired_otp")
)
