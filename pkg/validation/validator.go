package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validate is the global validator instance
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	registerCustom(Validate)

	// The same tags are used in binding:"..." struct tags, so gin's own
	// validator needs them too.
	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustom(engine)
	}
}

func registerCustom(v *validator.Validate) {
	_ = v.RegisterValidation("latitude", validateLatitude)
	_ = v.RegisterValidation("longitude", validateLongitude)
	_ = v.RegisterValidation("weather_code", validateWeatherCode)
	_ = v.RegisterValidation("day_moment", validateDayMoment)
}

// ValidationError aggregates field-level validation failures.
type ValidationError struct {
	Errors map[string]string
}

// NewValidationError converts validator errors into a ValidationError
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	ve := &ValidationError{Errors: make(map[string]string)}
	for _, fieldErr := range errs {
		ve.Errors[fieldErr.Field()] = fmt.Sprintf("failed on '%s' rule", fieldErr.Tag())
	}
	return ve
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}

	fields := make([]string, 0, len(ve.Errors))
	for field := range ve.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, ve.Errors[field]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AddError records a field validation failure
func (ve *ValidationError) AddError(field, message string) {
	if ve.Errors == nil {
		ve.Errors = make(map[string]string)
	}
	ve.Errors[field] = message
}

// HasErrors reports whether any validation failures were recorded
func (ve *ValidationError) HasErrors() bool {
	return len(ve.Errors) > 0
}

// GetFieldError returns the message recorded for a field, if any
func (ve *ValidationError) GetFieldError(field string) (string, bool) {
	message, ok := ve.Errors[field]
	return message, ok
}

// ValidateStruct validates a struct and returns a ValidationError if validation fails
func ValidateStruct(s interface{}) error {
	err := Validate.Struct(s)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// validateLatitude checks if latitude is within valid range (-90 to 90)
func validateLatitude(fl validator.FieldLevel) bool {
	latitude := fl.Field().Float()
	return latitude >= -90.0 && latitude <= 90.0
}

// validateLongitude checks if longitude is within valid range (-180 to 180)
func validateLongitude(fl validator.FieldLevel) bool {
	longitude := fl.Field().Float()
	return longitude >= -180.0 && longitude <= 180.0
}

// validateWeatherCode checks the compact weather code range, 0 clear
// through 3 storm
func validateWeatherCode(fl validator.FieldLevel) bool {
	code := fl.Field().Int()
	return code >= 0 && code <= 3
}

// validateDayMoment checks the coarse time-of-day bucket names
func validateDayMoment(fl validator.FieldLevel) bool {
	moment := fl.Field().String()
	switch moment {
	case "morning", "afternoon", "evening", "night":
		return true
	}
	return false
}

// ValidateCoordinates validates latitude and longitude
func ValidateCoordinates(latitude, longitude float64) error {
	if latitude < -90.0 || latitude > 90.0 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", latitude)
	}
	if longitude < -180.0 || longitude > 180.0 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", longitude)
	}
	return nil
}

// ValidateDistance validates a distance in meters
func ValidateDistance(distanceM float64) error {
	if distanceM < 0 {
		return fmt.Errorf("distance cannot be negative: %f", distanceM)
	}
	if distanceM > 10_000_000 {
		return fmt.Errorf("distance exceeds maximum allowed: %f", distanceM)
	}
	return nil
}

// ValidatePrice validates a fare amount in CFA francs
func ValidatePrice(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("price cannot be negative: %f", amount)
	}
	if amount > 1_000_000 {
		return fmt.Errorf("price exceeds maximum allowed: %f", amount)
	}
	return nil
}
