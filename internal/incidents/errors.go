package incidents

import "errors"

// Service errors.
var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrCarNotFound      = errors.New("car not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidInput     = errors.New("invalid input")
)
