package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ekaya-inc/ekaya-quality/pkg/services"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateAnalyzeRequest checks the request shape. It returns the error code
// and message for the first problem, or empty strings when the request is valid.
func validateAnalyzeRequest(req *services.AnalyzeRequest) (string, string) {
	err := validate.Struct(req)
	if err == nil {
		return "", ""
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "invalid_request", err.Error()
	}
	for _, fe := range fieldErrs {
		if fe.Field() == "datasource_type" && fe.Tag() == "required" {
			return "missing_datasource_type", "datasource_type is required"
		}
	}
	return "invalid_request", describeFieldError(fieldErrs[0])
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at most %s entries", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
