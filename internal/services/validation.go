package services

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"liondance/internal/domain"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const msgAngleBrackets = "must not contain < or >"

// checkText validates a plain-text field: required-ness, rune length and angle brackets.
func checkText(v *domain.ValidationError, field, value string, required bool, max int) {
	if value == "" {
		if required {
			v.Add(field, "is required")
		}
		return
	}
	if utf8.RuneCountInString(value) > max {
		v.Add(field, "is too long")
		return
	}
	if strings.ContainsAny(value, "<>") {
		v.Add(field, msgAngleBrackets)
	}
}

func checkEmail(v *domain.ValidationError, field, value string) {
	switch {
	case value == "":
		v.Add(field, "is required")
	case len(value) > 255:
		v.Add(field, "is too long")
	case !emailRegexp.MatchString(value):
		v.Add(field, "is not a valid email address")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// passthrough lists errors services return to callers as-is.
var passthrough = []error{
	domain.ErrNotFound,
	domain.ErrValidation,
	domain.ErrUnauthorized,
	domain.ErrForbidden,
	domain.ErrAuthorNotFound,
	domain.ErrDuplicateEmail,
	domain.ErrDependency,
}

// dependency returns domain errors unchanged and wraps anything else as a DependencyError.
func dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	return domain.NewDependencyError(op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
