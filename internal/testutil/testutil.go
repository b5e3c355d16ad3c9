// Package testutil provides shared test helpers for creating config files and profile fixtures.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/mentalmath/internal/profile"
)

// SetupTestConfig creates a minimal config file and all required directories for testing.
// Returns the path to the generated config file.
func SetupTestConfig(t *testing.T, tmpDir string) string {
	t.Helper()

	dirs := []string{"cache", "review"}
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, d), 0755))
	}

	configContent := fmt.Sprintf(`storage:
  backend: local
cache:
  directory: %s
  backend: file
review:
  output_directory: %s
log:
  mode: development
  level: error
`,
		filepath.Join(tmpDir, "cache"),
		filepath.Join(tmpDir, "review"),
	)

	cfgPath := filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(configContent), 0644))
	return cfgPath
}

// SetupTestConfigWithAuth creates a config file pointing the auth client at
// authURL, for tests that run against a fake identity provider.
func SetupTestConfigWithAuth(t *testing.T, tmpDir, authURL string) string {
	t.Helper()
	cfgPath := SetupTestConfig(t, tmpDir)

	content, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	content = append(content, fmt.Appendf(nil, "auth:\n  url: %s\n  anon_key: test-anon-key\n  jwt_secret: test-secret\n  retry_attempts: 0\n", authURL)...)
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))
	return cfgPath
}

// ProfileOption configures optional fields when creating a profile fixture.
type ProfileOption func(*profile.Profile)

// WithCounters sets the answer counters of the profile fixture.
func WithCounters(total, correct int) ProfileOption {
	return func(p *profile.Profile) {
		p.TotalQuestions = total
		p.CorrectAnswers = correct
	}
}

// WithWrongAnswers sets the wrong-answer log of the profile fixture.
func WithWrongAnswers(log profile.WrongAnswerLog) ProfileOption {
	return func(p *profile.Profile) {
		p.WrongAnswers = log
	}
}

// CreateProfile writes a profile into the local cache directory and returns it.
func CreateProfile(t *testing.T, cacheDir, userID string, opts ...ProfileOption) *profile.Profile {
	t.Helper()

	p := profile.New(userID, profile.Seed{DisplayName: "Test Learner"}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, profile.NewFileCache(cacheDir).Save(p))
	return p
}
