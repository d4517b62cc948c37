package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	CategoryNameMaxLength        = 100
	CategoryDescriptionMaxLength = 250
)

// ValidateCategoryName validates a category name
func ValidateCategoryName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("Name is required")
	}

	if utf8.RuneCountInString(trimmed) > CategoryNameMaxLength {
		return errors.New("Name is too long (max 100 characters)")
	}

	return nil
}
