package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// addErr appends err when it is a ValidationError.
func (ve *ValidationErrors) addErr(err error) {
	if v, ok := err.(ValidationError); ok {
		*ve = append(*ve, v)
	}
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "is required",
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateURL checks that a non-empty value is an absolute http(s) URL.
func ValidateURL(field, value string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be an absolute http or https URL",
		}
	}
	return nil
}

// Validate checks the configuration and returns every problem found.
func (c RingConfig) Validate() ValidationErrors {
	var errs ValidationErrors

	errs.addErr(ValidateRequired("displayName", c.DisplayName))
	errs.addErr(ValidateRequired("systemId", c.SystemID))
	errs.addErr(ValidateOneOf("log.level", strings.ToLower(c.Log.Level), []string{"debug", "info", "warn", "warning", "error"}))
	errs.addErr(ValidateOneOf("log.format", c.Log.Format, []string{"text", "json"}))

	errs.addErr(ValidateURL("endpoints.clientAPI", c.Endpoints.ClientAPI))
	errs.addErr(ValidateURL("endpoints.deviceAPI", c.Endpoints.DeviceAPI))
	errs.addErr(ValidateURL("endpoints.appAPI", c.Endpoints.AppAPI))
	errs.addErr(ValidateURL("endpoints.token", c.Endpoints.Token))
	if c.Endpoints.WebsocketScheme != "" {
		errs.addErr(ValidateOneOf("endpoints.websocketScheme", c.Endpoints.WebsocketScheme, []string{"ws", "wss"}))
	}

	switch c.TokenStore.Backend {
	case TokenStoreFile:
		errs.addErr(ValidateRequired("tokenStore.path", c.TokenStore.Path))
	case TokenStoreRedis:
		errs.addErr(ValidateRequired("tokenStore.redis.addr", c.TokenStore.Redis.Addr))
		errs.addErr(ValidateRequired("tokenStore.redis.key", c.TokenStore.Redis.Key))
		if c.TokenStore.Redis.TTL < 0 {
			errs.Add("tokenStore.redis.ttl", "must not be negative", c.TokenStore.Redis.TTL)
		}
	default:
		errs.addErr(ValidateOneOf("tokenStore.backend", c.TokenStore.Backend, []string{TokenStoreFile, TokenStoreRedis}))
	}

	if c.Listen.MaxReconnectInterval < 0 {
		errs.Add("listen.maxReconnectInterval", "must not be negative", c.Listen.MaxReconnectInterval)
	}

	return errs
}
