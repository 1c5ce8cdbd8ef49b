package services

import "errors"

// Common service-level errors
var (
	// Auth errors
	ErrInvalidAuthCode = errors.New("invalid authorization code")
	ErrInvalidToken    = errors.New("invalid token")
	ErrInvalidUserInfo = errors.New("invalid user information")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden")
	ErrUserNotApproved = errors.New("user is not approved")
	ErrUserNotFound    = errors.New("user not found")

	// Sacrifice errors
	ErrSacrificeNotFound  = errors.New("sacrifice not found")
	ErrSacrificeExists    = errors.New("sacrifice number already exists")
	ErrHasShareholders    = errors.New("sacrifice has shareholders")
	ErrInsufficientShares = errors.New("not enough empty shares")
	ErrInvalidShareCount  = errors.New("invalid share count")

	// Reservation errors
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransactionNotActive = errors.New("transaction is not active")
	ErrShareCountMismatch   = errors.New("shareholder count does not match reserved shares")
	ErrShareholdersRequired = errors.New("shareholders are required to complete a reservation")
	ErrInvalidStatus        = errors.New("invalid status transition")
	ErrConcurrentUpdate     = errors.New("concurrent update, please retry")

	// Shareholder errors
	ErrShareholderNotFound = errors.New("shareholder not found")
	ErrInvalidSecurityCode = errors.New("invalid security code")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrExportUnavailable   = errors.New("shareholder export is not configured")

	// Stage errors
	ErrStageNotFound = errors.New("stage not found")
)
