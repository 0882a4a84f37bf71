package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrEmptyText          = errors.New("empty announcement text")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrInvalidCatalog     = errors.New("invalid catalog")
	ErrNoAudio            = errors.New("no audio returned")
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
	ErrNotConfigured      = errors.New("not configured")
)
