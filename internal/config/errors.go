package config

import (
	"errors"
)

// Errors returned by Load, Validate and the weights file helpers. Callers
// match them with errors.Is; the wrapped cause carries the detail.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
	ErrEmptyWeights  = errors.New("weights file is empty")
)
