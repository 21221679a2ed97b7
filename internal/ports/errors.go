package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("missing or invalid credentials")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Ledger Errors
	ErrInvalidQuantity      = errors.New("quantity and price must be positive")
	ErrInsufficientQuantity = errors.New("reduction exceeds held quantity")
	ErrPositionNotFound     = errors.New("no active position for asset")

	// Collaborator Errors
	ErrPersistenceFailed = errors.New("state store write or read failed")
	ErrPriceUnavailable  = errors.New("price source has no price for asset")
)
