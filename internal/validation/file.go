package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes map[string]bool
	MaxSize          int64
}

// ImageConstraints returns the rules for item image uploads. maxSize is
// configured per deployment.
func ImageConstraints(maxSize int64) FileConstraints {
	return FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
		},
		MaxSize: maxSize,
	}
}

// ValidateFile validates an uploaded file by size, extension and sniffed
// content type.
func ValidateFile(header *multipart.FileHeader, constraints FileConstraints) error {
	// Check file size first (before reading content)
	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	if !AllowedImageName(header.Filename) {
		return fmt.Errorf("invalid file extension: %s", header.Filename)
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ValidateContent(file, constraints)
}

// ValidateContent sniffs the first 512 bytes of r and checks the detected
// MIME type against the allowed set. Seekable readers are rewound.
func ValidateContent(r io.Reader, constraints FileConstraints) error {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(r, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("failed to read file: %w", err)
	}

	seeker, ok := r.(io.Seeker)
	if ok {
		_, err = seeker.Seek(0, io.SeekStart)
		if err != nil {
			return fmt.Errorf("failed to reset file pointer: %w", err)
		}
	}

	// Detected from magic numbers, cannot be faked through the Content-Type header
	detectedType := http.DetectContentType(buffer[:n])
	if !constraints.AllowedMimeTypes[detectedType] {
		return fmt.Errorf("invalid file type (detected: %s)", detectedType)
	}

	return nil
}
