package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrInvalidInput indicates that the caller violated an input contract
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates that a component was constructed with
	// unusable configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnavailable indicates that an external collaborator could not be
	// reached or kept failing after retries
	ErrUnavailable = errors.New("service unavailable")

	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)
