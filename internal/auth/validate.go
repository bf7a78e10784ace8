package auth

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var (
	ErrMissingFields = errors.New("please fill in all fields")
	ErrInvalidEmail  = errors.New("please enter a valid email")
	ErrShortPassword = errors.New("password must be at least 8 characters")
)

// ValidateRegistration checks a new account's fields.
func ValidateRegistration(name, email, password string) error {
	if blank(name) || blank(email) || blank(password) {
		return ErrMissingFields
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrShortPassword
	}
	return nil
}

// ValidateLogin checks sign-in fields.
func ValidateLogin(email, password string) error {
	if blank(email) || blank(password) {
		return ErrMissingFields
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
