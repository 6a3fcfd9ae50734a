package service

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/gema-teaching-api/internal/dto"
	"github.com/noah-isme/gema-teaching-api/internal/models"
)

// CategoryValidationTag validates that a field holds one of the fixed teaching and learning categories.
const CategoryValidationTag = "tl_category"

// RegisterValidations installs the custom validation rules used by teaching and learning payloads.
func RegisterValidations(validate *validator.Validate) error {
	return validate.RegisterValidation(CategoryValidationTag, func(fl validator.FieldLevel) bool {
		return models.IsTeachingLearningCategory(fl.Field().String())
	})
}

// ValidateTeachingLearning reports whether the form is well formed: a known category and
// non-empty title, class name, section, description and url.
func ValidateTeachingLearning(validate *validator.Validate, payload dto.TeachingLearningRequest) error {
	return validate.Struct(normalizeTeachingLearningRequest(payload))
}

// IsValidationError reports whether err carries field validation failures.
func IsValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// ValidationDetails flattens validation failures into field -> rule pairs.
func ValidationDetails(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}
