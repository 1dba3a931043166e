package model

import "errors"

// Common errors used across the application
var (
	// Identity errors
	ErrIdentityNotFound = errors.New("identity not found")
	ErrEmptyFingerprint = errors.New("fingerprint is empty")

	// Connection errors
	ErrConnectionNotFound = errors.New("connection not found")

	// Statistics errors
	ErrUnknownStatistic      = errors.New("unknown statistic name")
	ErrInvalidStatisticValue = errors.New("invalid statistic value")
)
