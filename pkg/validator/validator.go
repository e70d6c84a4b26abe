package validator

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
)

// MaxGPA is the top of the grading scale accepted by the "gpa" tag.
const MaxGPA = 10.0

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("gpa", validateGPA)
		_ = validate.RegisterValidation("regno", validateRegNo)
	})
	return validate
}

// validateGPA accepts a decimal string on the 0-10 scale.
func validateGPA(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return v >= 0 && v <= MaxGPA
}

// validateRegNo accepts letters, digits, '-' and '/'.
func validateRegNo(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || len(s) > 32 {
		return false
	}
	for _, ch := range s {
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' && ch != '/' {
			return false
		}
	}
	return true
}

func ValidateStruct(s interface{}) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperror.NewBadRequest("invalid request")
	}

	details := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		details[fieldPath(fe)] = formatError(fe)
	}

	return apperror.NewValidation("validation failed", details)
}

// fieldPath keeps the slice index for nested fields, e.g. "Students[2].Email".
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 && strings.Contains(ns[i+1:], ".") {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gpa":
		return fmt.Sprintf("%s must be a decimal between 0 and %.0f", fe.Field(), MaxGPA)
	case "regno":
		return fmt.Sprintf("%s may only contain letters, digits, '-' and '/'", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
