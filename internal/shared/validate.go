package shared

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validator checks request payloads and reports failures as *ValidationError
// keyed by JSON field name.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator that names fields after their json tags.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return &Validator{v: v}
}

// maxBytes bounds the encoded length of a string, which is what bcrypt
// limits, rather than its rune count.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// Struct validates s using its `validate` tags.
func (val *Validator) Struct(s any) error {
	return val.collect(val.v.Struct(s), "")
}

// Var validates a single value under the given field name.
func (val *Validator) Var(field string, value any, tag string) error {
	return val.collect(val.v.Var(value, tag), field)
}

// Merge combines validation failures, keeping the first message per field.
// Non-validation errors are returned as they are.
func Merge(errs ...error) error {
	var out *ValidationError
	for _, err := range errs {
		if err == nil {
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		if out == nil {
			out = &ValidationError{Fields: map[string]string{}}
		}
		for k, msg := range verr.Fields {
			if _, exists := out.Fields[k]; !exists {
				out.Fields[k] = msg
			}
		}
	}
	if out == nil {
		return nil
	}
	return out
}

// ValidateID reports a validation failure unless id is a canonical UUID.
func ValidateID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return NewValidationError(field, "must be a valid UUID")
	}
	return nil
}

func (val *Validator) collect(err error, field string) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}
	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		if _, exists := out.Fields[name]; exists {
			continue
		}
		out.Fields[name] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes long", fe.Param())
	case "uuid", "uuid4":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed the %q check", fe.Tag())
	}
}
