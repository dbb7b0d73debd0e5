package producer

import "errors"

// Sentinel errors for the producer registry.
var (
	ErrNotFound          = errors.New("producer not found")
	ErrAlreadyRegistered = errors.New("producer already registered")
	ErrEmptyName         = errors.New("producer name is empty")
	ErrInvalidContract   = errors.New("invalid producer contract")
)
