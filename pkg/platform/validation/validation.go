// Package validation holds request validation shared by the server and the
// admin client: struct-tag validation through go-playground/validator plus the
// account policies (password strength, phone format).
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	dErrors "unearthify/pkg/domain-errors"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 64
)

var phonePattern = regexp.MustCompile(`^\+[0-9]{10,15}$`)

var defaultValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return CheckPassword(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return CheckPhone(fl.Field().String()) == nil
	})
	return v
}

// Validate runs struct-tag validation and reports the first failure as a
// CodeValidation domain error.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage converts a validator error into a human-readable message.
func ErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid request body"
	}

	fe := validationErrs[0]
	field := toSnakeCase(fe.Field())

	switch fe.ActualTag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url":
		return fmt.Sprintf("%s must be a valid url", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "notblank":
		return fmt.Sprintf("%s must not be blank", field)
	case "password":
		return passwordRule
	case "phone":
		return phoneRule
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

var (
	passwordRule = fmt.Sprintf("password must be %d-%d characters and contain an uppercase letter, a lowercase letter, a digit and a special character",
		MinPasswordLength, MaxPasswordLength)
	phoneRule = "phone must be + followed by 10 to 15 digits"
)

// CheckPassword enforces the account password policy.
func CheckPassword(pw string) error {
	n := len([]rune(pw))
	if n < MinPasswordLength || n > MaxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, passwordRule)
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return dErrors.New(dErrors.CodeValidation, passwordRule)
	}
	return nil
}

// CheckPhone accepts "" (phone is optional) or + followed by 10 to 15 digits.
func CheckPhone(phone string) error {
	if phone == "" || phonePattern.MatchString(phone) {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, phoneRule)
}

func toSnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
