package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the global validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ConfigError represents a validation error for a specific field.
type ConfigError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of config errors.
type ValidationErrors []ConfigError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// ValidateWithDetails performs validation and returns detailed errors.
func ValidateWithDetails(cfg *Config) error {
	var details ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range validationErrors {
				details = append(details, ConfigError{
					Field:   fe.Namespace(),
					Message: formatValidationError(fe),
					Value:   fe.Value(),
				})
			}
		} else {
			return err
		}
	}

	details = append(details, crossFieldErrors(cfg)...)

	if len(details) > 0 {
		return details
	}
	return nil
}

// crossFieldErrors checks constraints spanning multiple fields.
func crossFieldErrors(cfg *Config) ValidationErrors {
	var details ValidationErrors

	if cfg.Storage.Type == "badger" && strings.TrimSpace(cfg.Storage.Badger.Path) == "" {
		details = append(details, ConfigError{
			Field:   "Config.Storage.Badger.Path",
			Message: "this field is required when storage type is badger",
			Value:   cfg.Storage.Badger.Path,
		})
	}
	if cfg.Storage.Type == "redis" && strings.TrimSpace(cfg.Storage.Redis.Address) == "" {
		details = append(details, ConfigError{
			Field:   "Config.Storage.Redis.Address",
			Message: "this field is required when storage type is redis",
			Value:   cfg.Storage.Redis.Address,
		})
	}
	if cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.RequestsPerSecond <= 0 {
		details = append(details, ConfigError{
			Field:   "Config.Server.RateLimit.RequestsPerSecond",
			Message: "must be greater than 0 when rate limiting is enabled",
			Value:   cfg.Server.RateLimit.RequestsPerSecond,
		})
	}
	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.Endpoint) == "" {
		details = append(details, ConfigError{
			Field:   "Config.Tracing.Endpoint",
			Message: "this field is required when tracing is enabled",
			Value:   cfg.Tracing.Endpoint,
		})
	}

	return details
}

// formatValidationError converts validator.FieldError to a human-readable message.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
