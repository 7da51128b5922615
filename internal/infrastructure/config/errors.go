package config

import "errors"

// ErrInvalidConfig is returned by Load when the options file cannot be read
// or parsed, or when a required setting is missing or out of range.
var ErrInvalidConfig = errors.New("config: invalid configuration")
