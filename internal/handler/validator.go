package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo's Validator
// interface.  Install it with e.Validator = handler.NewRequestValidator().
type RequestValidator struct {
    v *validator.Validate
}

// NewRequestValidator returns a validator that reports JSON field names.
func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
        if name == "-" {
            return ""
        }
        return name
    })
    return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
    return rv.v.Struct(i)
}

// validationMessage turns validator errors into one readable sentence, e.g.
// "customer_email must be a valid email; seat_number must be at least 1".
func validationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err.Error()
    }
    msgs := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        msgs = append(msgs, fieldMessage(fe))
    }
    return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return fmt.Sprintf("%s is required", fe.Field())
    case "email":
        return fmt.Sprintf("%s must be a valid email", fe.Field())
    case "min", "gte":
        return fmt.Sprintf("%s must be at least %s%s", fe.Field(), fe.Param(), unit(fe))
    case "max", "lte":
        return fmt.Sprintf("%s must be at most %s%s", fe.Field(), fe.Param(), unit(fe))
    default:
        return fmt.Sprintf("%s is invalid", fe.Field())
    }
}

func unit(fe validator.FieldError) string {
    if fe.Kind() == reflect.String {
        return " characters"
    }
    return ""
}
