package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLRepository keeps attempts in one YAML file per user.
// It is used when no remote store is configured.
type YAMLRepository struct {
	directory string
	now       func() time.Time

	mu sync.Mutex
}

// NewYAMLRepository creates a new YAMLRepository.
func NewYAMLRepository(directory string) *YAMLRepository {
	return &YAMLRepository{directory: directory, now: time.Now}
}

// ErrInvalidUserID is returned for ids that cannot name a file.
var ErrInvalidUserID = errors.New("invalid user id")

func (r *YAMLRepository) path(userID string) (string, error) {
	if userID == "" || strings.Contains(userID, "..") || strings.ContainsAny(userID, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}
	return filepath.Join(r.directory, fmt.Sprintf("attempts_%s.yml", userID)), nil
}

// FindByUser returns every attempt of a user, oldest first.
func (r *YAMLRepository) FindByUser(_ context.Context, userID string) ([]Attempt, error) {
	path, err := r.path(userID)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(path)
}

func (r *YAMLRepository) read(path string) ([]Attempt, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}

	var attempts []Attempt
	if err := yaml.Unmarshal(data, &attempts); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal(attempts) > %w", err)
	}
	return attempts, nil
}

// Create appends an attempt to the user's file.
func (r *YAMLRepository) Create(_ context.Context, attempt *Attempt) error {
	path, err := r.path(attempt.UserID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	attempts, err := r.read(path)
	if err != nil {
		return err
	}
	attempt.ID = int64(len(attempts)) + 1
	attempt.CreatedAt = r.now().UTC()
	attempts = append(attempts, *attempt)

	data, err := yaml.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("yaml.Marshal(attempts) > %w", err)
	}
	if err := os.MkdirAll(r.directory, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", r.directory, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", path, err)
	}
	return nil
}

// DeleteByUser removes the user's file.
func (r *YAMLRepository) DeleteByUser(_ context.Context, userID string) error {
	path, err := r.path(userID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.Remove(%s) > %w", path, err)
	}
	return nil
}
