package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/aidar/seminar-service/internal/domain"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and converts the first failure
// into a domain InvalidArgument error with a client-readable message.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.InvalidArgument("invalid input")
	}

	fe := verrs[0]
	field := snakeCase(fe.Field())
	switch fe.Tag() {
	case "required":
		return domain.InvalidArgument(fmt.Sprintf("%s is required", field))
	case "gt":
		return domain.InvalidArgument(fmt.Sprintf("%s should be a positive integer", field))
	case "min":
		return domain.InvalidArgument(fmt.Sprintf("%s should not be empty", field))
	case "max":
		return domain.InvalidArgument(fmt.Sprintf("%s is too long", field))
	case "email":
		return domain.InvalidArgument(fmt.Sprintf("%s should be a valid email address", field))
	case "alpha":
		return domain.InvalidArgument(fmt.Sprintf("%s should contain letters only", field))
	case "oneof":
		return domain.InvalidArgument(fmt.Sprintf("%s should be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
	default:
		return domain.InvalidArgument(fmt.Sprintf("%s is invalid", field))
	}
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
