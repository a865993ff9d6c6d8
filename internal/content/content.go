// Package content validates user-written message text.
package content

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/config"
	"strings"
	"unicode/utf8"
)

// Validate trims raw and rejects empty or over-long text.
func Validate(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", apperr.Field(apperr.CodeEmptyContent, "content")
	}
	if utf8.RuneCountInString(text) > config.MessageMaxLength {
		return "", apperr.Field(apperr.CodeContentTooLong, "content")
	}
	return text, nil
}

// ValidateAnonymous applies Validate and also rejects phone numbers.
func ValidateAnonymous(raw string) (string, error) {
	text, err := Validate(raw)
	if err != nil {
		return "", err
	}
	if config.PhoneNumberPattern.MatchString(text) {
		return "", apperr.Field(apperr.CodePhoneNumber, "content")
	}
	return text, nil
}
