package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileCache is the local durable copy of profiles, one YAML file per user.
type FileCache struct {
	rootDir string

	mu sync.Mutex
}

// NewFileCache creates a FileCache under cacheDirectory.
func NewFileCache(cacheDirectory string) *FileCache {
	return &FileCache{
		rootDir: cacheDirectory,
	}
}

func (cache *FileCache) filePath(userID string) (string, error) {
	if err := ValidateUserID(userID); err != nil {
		return "", err
	}
	return filepath.Join(cache.rootDir, fmt.Sprintf("profile_%s.yml", userID)), nil
}

// Load returns the cached profile, or nil if none is stored.
func (cache *FileCache) Load(userID string) (*Profile, error) {
	path, err := cache.filePath(userID)
	if err != nil {
		return nil, err
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile > %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(contents, &p); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal > %w", err)
	}
	if p.WrongAnswers == nil {
		p.WrongAnswers = WrongAnswerLog{}
	}
	return &p, nil
}

// Save writes the profile, replacing any previous copy.
func (cache *FileCache) Save(p *Profile) error {
	path, err := cache.filePath(p.UserID)
	if err != nil {
		return err
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()

	contents, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("yaml.Marshal > %w", err)
	}
	if err := os.MkdirAll(cache.rootDir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll > %w", err)
	}

	// a crash must never leave a truncated file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, contents, 0600); err != nil {
		return fmt.Errorf("os.WriteFile > %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("os.Rename > %w", err)
	}
	return nil
}

// Delete removes the cached profile.
func (cache *FileCache) Delete(userID string) error {
	path, err := cache.filePath(userID)
	if err != nil {
		return err
	}
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove > %w", err)
	}
	return nil
}
