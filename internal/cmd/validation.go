package cmd

import (
	"fmt"
	"time"
)

// Validation utilities

// validatePositiveInt returns an error if v is not a positive number.  prop
// is the name of the property being checked, used in the error message.
func validatePositiveInt(prop string, v int) (err error) {
	if v <= 0 {
		return fmt.Errorf("%s: must be positive, got %d", prop, v)
	}

	return nil
}

// validatePositiveDuration returns an error if d is not a positive duration.
// prop is the name of the property being checked, used in the error message.
func validatePositiveDuration(prop string, d time.Duration) (err error) {
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", prop, d)
	}

	return nil
}

// validateNotEmpty returns an error if s is empty.  prop is the name of the
// property being checked, used in the error message.
func validateNotEmpty(prop, s string) (err error) {
	if s == "" {
		return fmt.Errorf("%s: must not be empty", prop)
	}

	return nil
}
