package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidInput marks a request the caller can fix: missing file,
	// unsupported video type, blank clinical notes, undecodable video.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReady marks predictions attempted before weights are loaded.
	ErrNotReady = errors.New("model not ready")

	// ErrModelLoad marks a failed weight load attempt.
	ErrModelLoad = errors.New("model load failed")

	// ErrInference marks pipeline failures past input validation.
	ErrInference = errors.New("inference failed")
)
