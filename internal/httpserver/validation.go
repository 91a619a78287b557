package httpserver

import (
	"net/mail"
	"strings"
	"unicode"
)

const minPasswordLen = 8

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateRegister(email, password, confirm, firstName, lastName string) []FieldError {
	fields := validateEmailField(email)
	fields = append(fields, validatePasswordPair(password, confirm)...)
	if strings.TrimSpace(firstName) == "" {
		fields = append(fields, FieldError{Field: "first_name", Message: "first name is required"})
	}
	if strings.TrimSpace(lastName) == "" {
		fields = append(fields, FieldError{Field: "last_name", Message: "last name is required"})
	}
	return fields
}

func validateEmailField(email string) []FieldError {
	email = strings.TrimSpace(email)
	if email == "" {
		return []FieldError{{Field: "email", Message: "email is required"}}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return []FieldError{{Field: "email", Message: "email is not valid"}}
	}
	return nil
}

func validatePasswordPair(password, confirm string) []FieldError {
	fields := validatePassword("password", password)
	if confirm != password {
		fields = append(fields, FieldError{Field: "confirm_password", Message: "passwords do not match"})
	}
	return fields
}

func validatePassword(field, password string) []FieldError {
	if len(password) < minPasswordLen {
		return []FieldError{{Field: field, Message: "password must be at least 8 characters"}}
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return []FieldError{{Field: field, Message: "password must contain letters and digits"}}
	}
	return nil
}
