package utils

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	phonePattern = regexp.MustCompile(`^01[0-9]-\d{3,4}-\d{4}$`)
	codePattern  = regexp.MustCompile(`^\d{6}$`)
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// ValidPhone matches Korean mobile numbers written as 010-1234-5678.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func ValidResetCode(code string) bool {
	return codePattern.MatchString(code)
}

func ValidPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= MinPasswordLength && n <= MaxPasswordLength
}
