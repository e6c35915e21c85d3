package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/followup-api/internal/model"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type validator struct {
	v *playground.Validate
}

// messages override the generic text for specific field/tag pairs.
var messages = map[string]string{
	"phone.required":        "Phone number is required.",
	"phone.hasdigit":        "Phone number must contain digits.",
	"patient_name.required": "Patient name is required.",
	"due_date.required":     "Due date is required.",
	"language.required":     "Language is required.",
	"language.language":     "Language must be one of: en, hi.",
}

func New() Validator {
	v := playground.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// A zero Date is treated as absent.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(model.Date); ok && !d.IsZero() {
			return d.Time
		}
		return nil
	}, model.Date{})

	v.RegisterValidation("hasdigit", func(fl playground.FieldLevel) bool {
		return HasDigit(fl.Field().String())
	})
	v.RegisterValidation("language", func(fl playground.FieldLevel) bool {
		return model.Language(fl.Field().String()).Valid()
	})

	return &validator{v: v}
}

// HasDigit reports whether s contains at least one decimal digit.
func HasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Validate returns an *errors.AppError describing the first failing field.
func (v *validator) Validate(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.BadRequest("invalid input", err)
	}

	fe := fieldErrs[0]
	return apperrors.Validation(fe.Field(), message(fe))
}

func message(fe playground.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
