package model

import "errors"

// Sentinel kinds for model errors.
var (
	// ErrWeightLoad indicates the weight blob is missing parameters or
	// carries shapes that do not match the architecture.
	ErrWeightLoad = errors.New("weight load failed")
)
