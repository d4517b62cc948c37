package validation

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	UsernameMinLength = 5
	UsernameMaxLength = 20
)

// ValidateUsername checks length and character set of a username, in that
// order, and returns the first failing reason. Uniqueness is checked by the
// user service.
func ValidateUsername(username string) error {
	length := utf8.RuneCountInString(username)
	if length < UsernameMinLength || length > UsernameMaxLength {
		return fmt.Errorf("Bad length: %d (must be between %d and %d)", length, UsernameMinLength, UsernameMaxLength)
	}

	for _, r := range username {
		if !usernameRune(r) {
			return fmt.Errorf("Illegal characters detected in '%s'. Alphanumeric and '.', '_' or '-' only.", username)
		}
	}

	return nil
}

// ErrUsernameTaken formats the uniqueness failure in the same register as the
// other username reasons.
func ErrUsernameTaken(username string) error {
	return errors.New("Username " + username + " is already taken")
}

// usernameRune matches ^[\w.-]+$ with \w limited to ASCII.
func usernameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return r == '_' || r == '.' || r == '-'
}
