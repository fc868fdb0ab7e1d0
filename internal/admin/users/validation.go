package users

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError describes a single failed validation rule
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// FieldErrors is a collection of field errors
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(fe))
	for _, e := range fe {
		messages = append(messages, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Validator checks the shape of admin user API inputs using struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateCreate validates a create user request
func (v *Validator) ValidateCreate(req *CreateUserRequest) error {
	return v.validateStruct(req)
}

// ValidateUpdate validates a partial update request
func (v *Validator) ValidateUpdate(req *UpdateUserRequest) error {
	return v.validateStruct(req)
}

// ValidateDeleteMany validates a bulk delete request
func (v *Validator) ValidateDeleteMany(req *DeleteManyRequest) error {
	return v.validateStruct(req)
}

// ValidateRegistrationLink validates a registration link request
func (v *Validator) ValidateRegistrationLink(req *RegistrationLinkRequest) error {
	return v.validateStruct(req)
}

func (v *Validator) validateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{{Field: "", Tag: "", Message: err.Error()}}
	}

	fieldErrs := make(FieldErrors, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fieldErrs = append(fieldErrs, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldErrorMessage(fe),
		})
	}
	return fieldErrs
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "min":
		return fmt.Sprintf("%s must contain at least %s element(s)", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "iso3166_1_alpha2":
		return fmt.Sprintf("%s must be a valid ISO 3166-1 alpha-2 country code", fe.Field())
	default:
		return fmt.Sprintf("%s failed validation on rule %s", fe.Field(), fe.Tag())
	}
}
