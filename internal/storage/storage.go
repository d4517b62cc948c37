package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	cfg "github.com/Kyushi/pemoi/internal/config"
)

var (
	ErrNotFound     = errors.New("file not found")
	ErrAreaNotFound = errors.New("storage area not found")
	ErrAreaExists   = errors.New("storage area already exists")
	ErrAreaNotEmpty = errors.New("storage area is not empty")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// Storage keeps uploaded files in per-user areas. An area is a flat
// collection of files addressed as "<area>/<file>".
type Storage interface {
	// CreateArea provisions an empty area. Creating an existing area is a no-op.
	CreateArea(area string) error

	// RenameArea moves an area and all its files to a new name
	RenameArea(from, to string) error

	// RemoveArea removes an area, which must be empty
	RemoveArea(area string) error

	// AreaExists reports whether the area has been provisioned
	AreaExists(area string) (bool, error)

	// List returns the file names stored in an area
	List(area string) ([]string, error)

	// Save stores a file at the given key
	Save(key string, file io.Reader) error

	// Delete removes the file at the given key
	Delete(key string) error
}

// New creates the storage backend selected by STORAGE_DRIVER.
func New(c *cfg.Config) (Storage, error) {
	switch c.StorageDriver {
	case "", "local":
		slog.Info("initializing local storage", "path", c.UploadPath)
		return NewLocalStorage(c.UploadPath)
	case "s3":
		slog.Info("initializing S3 storage",
			"bucket", c.S3Bucket,
			"region", c.S3Region,
			"endpoint", c.S3Endpoint,
		)
		return NewS3Storage(S3Config{
			Region:        c.S3Region,
			Bucket:        c.S3Bucket,
			AccessKey:     c.S3AccessKey,
			SecretKey:     c.S3SecretKey,
			Endpoint:      c.S3Endpoint,
			PresignExpiry: c.S3PresignExpiry,
		})
	}
	return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
}

// Key joins an area and a file name into a storage key.
func Key(area, file string) string {
	return path.Join(area, file)
}

// splitKey validates a key and returns its area and file parts.
func splitKey(key string) (string, string, error) {
	area, file, ok := strings.Cut(key, "/")
	if !ok || !validSegment(area) || !validSegment(file) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return area, file, nil
}

func checkArea(area string) error {
	if !validSegment(area) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, area)
	}
	return nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`) && !strings.ContainsRune(s, 0)
}
