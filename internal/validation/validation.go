package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/BradenHooton/offeradmin/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// xssPattern matches markup that must never be persisted
	xssPattern = regexp.MustCompile(`(?i)<script|javascript:|on\w+=`)

	// usernamePattern is the allowed login alphabet
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// dangerousChars may break out of an HTML attribute or template literal
const dangerousChars = "<>\"'`"

// Global validator instance (reused across all callers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	mustRegister(v, "noxss", func(fl validator.FieldLevel) bool {
		return !ContainsXSS(fl.Field().String())
	})
	mustRegister(v, "nodangerchars", func(fl validator.FieldLevel) bool {
		return !ContainsDangerousChars(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// jsonFieldName reports fields by their JSON name so messages match the wire format
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// ContainsXSS reports whether s carries a script tag, inline handler or javascript: URL
func ContainsXSS(s string) bool {
	return xssPattern.MatchString(s)
}

// ContainsDangerousChars reports whether s contains any of < > " ' `
func ContainsDangerousChars(s string) bool {
	return strings.ContainsAny(s, dangerousChars)
}

// Struct validates a struct and returns the first failure as a *models.ValidationError
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return models.NewValidationError(fieldPath(ve[0]), formatValidationError(ve[0]))
	}
	return models.NewValidationError("", err.Error())
}

// fieldPath strips the struct name from the namespace ("Offer.features[1]" -> "features[1]")
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be less than %s", fe.Param())
	case "url":
		return "must be a valid URL"
	case "datetime":
		return "must be an RFC 3339 timestamp"
	case "noxss":
		return "contains forbidden markup"
	case "nodangerchars":
		return "contains forbidden characters"
	case "username":
		return "may only contain letters, digits, '_', '.' and '-'"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
