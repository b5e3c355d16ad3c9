package statecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores one JSON file per key.
type FileBackend struct {
	rootDir string
}

// NewFileBackend creates a FileBackend under directory.
func NewFileBackend(directory string) *FileBackend {
	return &FileBackend{rootDir: directory}
}

// ErrInvalidKey is returned for keys that cannot name a file.
var ErrInvalidKey = errors.New("invalid state key")

func (b *FileBackend) filePath(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.ContainsAny(key, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.rootDir, "state_"+key+".json"), nil
}

func (b *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	path, err := b.filePath(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("os.ReadFile > %w", err)
	}
	return data, true, nil
}

func (b *FileBackend) Set(_ context.Context, key string, value []byte) error {
	path, err := b.filePath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(b.rootDir, 0700); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}
	if err := os.WriteFile(path, value, 0600); err != nil {
		return fmt.Errorf("os.WriteFile > %w", err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	path, err := b.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove > %w", err)
	}
	return nil
}
