package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s failed validation", e.Field)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Validator provides configuration validation.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new configuration validator.
func NewValidator() (*Validator, error) {
	validate := validator.New()

	if err := registerAllValidators(validate); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &Validator{validate: validate}, nil
}

// ValidateConfig validates a configuration struct.
func (v *Validator) ValidateConfig(config *Config) error {
	if config == nil {
		return ValidationErrors{
			ValidationError{
				Field:   "config",
				Tag:     "required",
				Message: "config is nil",
			},
		}
	}

	err := v.validate.Struct(config)
	if err == nil {
		if customErrors := v.validateCustomRules(config); len(customErrors) > 0 {
			return customErrors
		}
		return nil
	}

	var validationErrors ValidationErrors
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range errs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   e.Field(),
				Tag:     e.Tag(),
				Value:   e.Value(),
				Message: getValidationMessage(e),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Message: err.Error(),
		})
	}

	validationErrors = append(validationErrors, v.validateCustomRules(config)...)
	return validationErrors
}

// validateCustomRules covers the constraints struct tags cannot express.
func (v *Validator) validateCustomRules(config *Config) ValidationErrors {
	var errors ValidationErrors

	// Both backends write to a file path, never a directory
	if strings.HasSuffix(config.Store.Path, "/") {
		errors = append(errors, ValidationError{
			Field:   "Store.Path",
			Message: "registry path must name a file",
		})
	}

	return errors
}

// registerAllValidators registers all custom validators.
func registerAllValidators(validate *validator.Validate) error {
	validators := map[string]validator.Func{
		"min_duration": validateMinDuration,
		"log_level":    validateLogLevel,
	}

	for name, fn := range validators {
		if err := validate.RegisterValidation(name, fn); err != nil {
			return fmt.Errorf("failed to register validator '%s': %w", name, err)
		}
	}

	return nil
}

// validateMinDuration validates minimum duration.
func validateMinDuration(fl validator.FieldLevel) bool {
	duration, ok := fl.Field().Interface().(time.Duration)
	if !ok {
		return false
	}
	minDuration, err := time.ParseDuration(fl.Param())
	if err != nil {
		return false
	}
	return duration >= minDuration
}

// validateLogLevel validates log levels.
func validateLogLevel(fl validator.FieldLevel) bool {
	level := fl.Field().String()
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	for _, valid := range validLevels {
		if level == valid {
			return true
		}
	}
	return false
}

// getValidationMessage returns a human-readable validation message.
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param())
	case "min_duration":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "log_level":
		return fmt.Sprintf("%s must be a log level (DEBUG, INFO, WARN, ERROR, FATAL)", e.Field())
	default:
		return fmt.Sprintf("%s failed validation", e.Field())
	}
}

// Global validator instance.
var (
	globalValidator *Validator
	validatorOnce   sync.Once
)

// GetValidator returns the global validator instance.
func GetValidator() *Validator {
	validatorOnce.Do(func() {
		var err error
		globalValidator, err = NewValidator()
		if err != nil {
			panic(fmt.Sprintf("failed to create global validator: %v", err))
		}
	})
	return globalValidator
}

// ValidateConfiguration validates a configuration using the global validator.
func ValidateConfiguration(config *Config) error {
	return GetValidator().ValidateConfig(config)
}
