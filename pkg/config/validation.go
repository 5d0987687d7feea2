package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"time"
)

// ValidationError is one invalid setting, named by its environment variable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors is every invalid setting found by one Validate call.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}
	msg := "configuration validation failed:"
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// HasErrors reports whether any setting was invalid.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator checks one group of settings.
type Validator func() ValidationErrors

// Validate runs every validator and returns all failures together, or nil.
func Validate(validators ...Validator) error {
	var all ValidationErrors
	for _, v := range validators {
		all = append(all, v()...)
	}
	if all.HasErrors() {
		return all
	}
	return nil
}

// CollectErrors drops the nil results of the Require helpers.
func CollectErrors(errs ...*ValidationError) ValidationErrors {
	var result ValidationErrors
	for _, err := range errs {
		if err != nil {
			result = append(result, *err)
		}
	}
	return result
}

func RequireNonEmpty(field, value string) *ValidationError {
	if value == "" {
		return invalid(field, "is required")
	}
	return nil
}

func RequirePositive(field string, value int) *ValidationError {
	if value <= 0 {
		return invalid(field, "must be positive, got %d", value)
	}
	return nil
}

func RequirePositiveDuration(field string, value time.Duration) *ValidationError {
	if value <= 0 {
		return invalid(field, "must be positive, got %v", value)
	}
	return nil
}

// RequireHTTPSURL accepts absolute https URLs only; the admin services are
// not served over plain http.
func RequireHTTPSURL(field, value string) *ValidationError {
	if value == "" {
		return invalid(field, "is required")
	}
	u, err := url.Parse(value)
	if err != nil {
		return invalid(field, "invalid URL: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return invalid(field, "URL must have a scheme and a host (https://host:port)")
	}
	if u.Scheme != "https" {
		return invalid(field, "must use HTTPS")
	}
	return nil
}

func RequireMatch(field, value string, re *regexp.Regexp) *ValidationError {
	if !re.MatchString(value) {
		return invalid(field, "must match %s", re.String())
	}
	return nil
}

func RequireOneOf(field, value string, allowed []string) *ValidationError {
	if !slices.Contains(allowed, value) {
		return invalid(field, "must be one of %v, got %q", allowed, value)
	}
	return nil
}

// WhenSet runs validator only for a non-empty value.
func WhenSet(value string, validator func() *ValidationError) *ValidationError {
	if value == "" {
		return nil
	}
	return validator()
}
