package upload

import "errors"

var (
	// ErrSinkRequired is returned when a delivery sink is not provided.
	ErrSinkRequired = errors.New("delivery sink required")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("dispatcher already started")

	// ErrStopped is returned when items are submitted after Stop has begun.
	ErrStopped = errors.New("dispatcher stopped")
)
