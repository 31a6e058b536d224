package job

import "fmt"

// InvalidFieldError reports a cron field that fails the field grammar or its
// numeric range. Field is one of minute/hour/day/month/weekday.
type InvalidFieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s field %q: %s", e.Field, e.Value, e.Reason)
}

// InvalidSplayError reports a splay that is not a positive integer.
type InvalidSplayError struct {
	Value string
}

func (e *InvalidSplayError) Error() string {
	return fmt.Sprintf("invalid splay %q: must be a positive integer", e.Value)
}

// UnsupportedPlatformError reports a platform with no backend mapping.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no cron backend for platform %q", e.Platform)
}
