// Package validation provides common validation utilities for configuration
// parameters across the taskflow library.
//
// Validation failures are reported as *errors.ValidationError values which
// unwrap to errors.ErrInvalidConfiguration, so callers can match either the
// concrete type or the sentinel.
package validation
