package password

import (
	"errors"
	"strings"
)

const (
	minLength      = 8
	specialCharset = "@$!%*?&"
)

var (
	// ErrTooShort is returned for passwords under the minimum length.
	ErrTooShort = errors.New("password must be at least 8 characters")
	// ErrMissingUpper is returned when no uppercase letter is present.
	ErrMissingUpper = errors.New("password must contain an uppercase letter")
	// ErrMissingLower is returned when no lowercase letter is present.
	ErrMissingLower = errors.New("password must contain a lowercase letter")
	// ErrMissingDigit is returned when no digit is present.
	ErrMissingDigit = errors.New("password must contain a digit")
	// ErrMissingSpecial is returned when none of @$!%*?& is present.
	ErrMissingSpecial = errors.New("password must contain one of @$!%*?&")
)

// CheckStrength applies the password policy: minimum length 8 with at least
// one uppercase letter, one lowercase letter, one digit, and one special
// character from @$!%*?&. Bytes are checked as provided, without Unicode
// normalization.
func CheckStrength(plain string) error {
	if len(plain) < minLength {
		return ErrTooShort
	}

	var upper, lower, digit, special bool
	for _, c := range plain {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune(specialCharset, c):
			special = true
		}
	}

	switch {
	case !upper:
		return ErrMissingUpper
	case !lower:
		return ErrMissingLower
	case !digit:
		return ErrMissingDigit
	case !special:
		return ErrMissingSpecial
	}
	return nil
}
