package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var fileKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// FileStorage keeps each draft in its own <key>.json file under a directory
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a file-backed storage rooted at baseDir
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("file storage requires a directory")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create draft directory: %w", err)
	}
	return &FileStorage{baseDir: baseDir}, nil
}

// Get reads the draft file for key
func (f *FileStorage) Get(ctx context.Context, key string) (string, error) {
	path, err := f.path(key)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read draft file: %w", err)
	}
	return string(data), nil
}

// Set replaces the draft file for key. The write goes through a temp file
// and a rename so readers never see a partial file.
func (f *FileStorage) Set(ctx context.Context, key, value string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.baseDir, ".draft-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write draft file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write draft file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace draft file: %w", err)
	}
	return nil
}

// Remove deletes the draft file for key
func (f *FileStorage) Remove(ctx context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove draft file: %w", err)
	}
	return nil
}

// Close is a no-op
func (f *FileStorage) Close() error {
	return nil
}

func (f *FileStorage) path(key string) (string, error) {
	if !fileKeyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid draft key for file storage: %q", key)
	}
	return filepath.Join(f.baseDir, key+".json"), nil
}
