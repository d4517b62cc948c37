package validation

import (
	"errors"
	"strings"
)

// AllowedImageExtensions are the only extensions accepted for uploads and
// external image links. Matching is case-insensitive.
var AllowedImageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// AllowedImageName reports whether name ends in an allowed image extension.
// The extension is everything after the last dot.
func AllowedImageName(name string) bool {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return false
	}
	return AllowedImageExtensions[strings.ToLower(name[idx+1:])]
}

// ValidateImageLink validates an externally supplied image URL
func ValidateImageLink(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return errors.New("Please upload an image or provide a link")
	}

	if !AllowedImageName(link) {
		return errors.New("Link must point to a png, jpg, jpeg or gif image")
	}

	return nil
}
