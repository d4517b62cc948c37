package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStorage keeps areas as directories below a root directory.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	err := os.MkdirAll(root, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// Path returns the filesystem path of a key, for serving files directly.
func (s *LocalStorage) Path(key string) (string, error) {
	area, file, err := splitKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, area, file), nil
}

func (s *LocalStorage) areaPath(area string) (string, error) {
	if err := checkArea(area); err != nil {
		return "", err
	}
	return filepath.Join(s.root, area), nil
}

func (s *LocalStorage) CreateArea(area string) error {
	dir, err := s.areaPath(area)
	if err != nil {
		return err
	}
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create area: %w", err)
	}
	return nil
}

func (s *LocalStorage) RenameArea(from, to string) error {
	src, err := s.areaPath(from)
	if err != nil {
		return err
	}
	dst, err := s.areaPath(to)
	if err != nil {
		return err
	}

	exists, err := s.AreaExists(from)
	if err != nil {
		return err
	}
	if !exists {
		return ErrAreaNotFound
	}

	exists, err = s.AreaExists(to)
	if err != nil {
		return err
	}
	if exists {
		return ErrAreaExists
	}

	err = os.Rename(src, dst)
	if err != nil {
		return fmt.Errorf("failed to rename area: %w", err)
	}
	return nil
}

func (s *LocalStorage) RemoveArea(area string) error {
	dir, err := s.areaPath(area)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrAreaNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read area: %w", err)
	}
	if len(entries) > 0 {
		return ErrAreaNotEmpty
	}

	err = os.Remove(dir)
	if err != nil {
		return fmt.Errorf("failed to remove area: %w", err)
	}
	return nil
}

func (s *LocalStorage) AreaExists(area string) (bool, error) {
	dir, err := s.areaPath(area)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat area: %w", err)
	}
	return info.IsDir(), nil
}

func (s *LocalStorage) List(area string) ([]string, error) {
	dir, err := s.areaPath(area)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAreaNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read area: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *LocalStorage) Save(key string, file io.Reader) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("failed to create area: %w", err)
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, err = io.Copy(out, file)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Delete(key string) error {
	path, err := s.Path(key)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
