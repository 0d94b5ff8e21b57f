package webhook

import "errors"

var (
	// ErrNotFound is returned for unknown projects, endpoints and events
	ErrNotFound = errors.New("not found")
	// ErrEndpointDisabled is returned when a disabled endpoint receives a request
	ErrEndpointDisabled = errors.New("webhook is disabled")
	// ErrInvalidSecret is returned when the presented secret is missing or does not match
	ErrInvalidSecret = errors.New("invalid webhook secret")
	// ErrConflict is returned when a hook key already exists in the project
	ErrConflict = errors.New("already exists")
	// ErrInvalidTransition is returned when a status update would move an event backwards
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInvalidEndpoint is returned for endpoint definitions that cannot be stored
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)
