package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			CORS: CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		},
		Auth:    AuthConfig{Audience: "authenticated", RetryAttempts: 2},
		Storage: StorageConfig{Backend: StorageLocal},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			Database: "mentalmath",
			Username: "user",
		},
		Mongo: MongoConfig{URI: "mongodb://localhost:27017", Database: "mentalmath"},
		Cache: CacheConfig{
			Directory: filepath.Join(".cache", "mentalmath"),
			Backend:   "file",
			TTL:       5 * time.Minute,
			Redis:     RedisConfig{Addr: "localhost:6379", Prefix: "mentalmath"},
		},
		Profile: ProfileConfig{
			StatsSource:  "profile",
			WrongAnswers: WrongAnswersConfig{RetentionDays: 30, MaxPerDay: 100},
		},
		Practice: PracticeConfig{Operation: "addition", LeftDigits: 2, RightDigits: 2, TimeLimit: 60},
		Review:   ReviewConfig{OutputDirectory: filepath.Join("outputs", "review")},
		Log:      LogConfig{Mode: "production", Level: "warn"},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name              string
		configContent     string
		useExplicitPath   bool
		env               map[string]string
		wantErr           bool
		want              func() *Config
		wantErrorContains []string
	}{
		{
			name: "valid config file with custom values",
			configContent: `storage:
  backend: sql
database:
  driver: postgres
  host: db.internal
  port: 5432
cache:
  backend: redis
  ttl: 90s
  redis:
    addr: redis:6379
profile:
  stats_source: history
  wrong_answers:
    retention_days: 7
practice:
  difficulty: hard
  time_limit_seconds: 120
`,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Storage.Backend = StorageSQL
				cfg.Database.Driver = "postgres"
				cfg.Database.Host = "db.internal"
				cfg.Database.Port = 5432
				cfg.Cache.Backend = "redis"
				cfg.Cache.TTL = 90 * time.Second
				cfg.Cache.Redis.Addr = "redis:6379"
				cfg.Profile.StatsSource = "history"
				cfg.Profile.WrongAnswers.RetentionDays = 7
				cfg.Practice.Difficulty = "hard"
				cfg.Practice.TimeLimit = 120
				return cfg
			},
		},
		{
			name: "invalid YAML format",
			configContent: `storage:
  backend: sql
  invalid yaml format here [[[
`,
			wantErr: true,
			wantErrorContains: []string{
				"configuration file found but could not be read",
				"Please check the file format and permissions",
			},
		},
		{
			name: "unknown keys use defaults",
			configContent: `wrong_key:
  some_value: test
`,
			want: defaultConfig,
		},
		{
			name: "explicit config file path",
			configContent: `log:
  mode: development
  level: debug
`,
			useExplicitPath: true,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Log = LogConfig{Mode: "development", Level: "debug"}
				return cfg
			},
		},
		{
			name:          "secrets from environment",
			configContent: "",
			env: map[string]string{
				"MENTALMATH_AUTH_URL":      "https://project.example.com/auth/v1",
				"MENTALMATH_AUTH_ANON_KEY": "anon",
				"MENTALMATH_JWT_SECRET":    "secret",
				"DB_PASSWORD":              "db-pass",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Auth.URL = "https://project.example.com/auth/v1"
				cfg.Auth.AnonKey = "anon"
				cfg.Auth.JWTSecret = "secret"
				cfg.Database.Password = "db-pass"
				return cfg
			},
		},
		{
			name: "unknown storage backend",
			configContent: `storage:
  backend: dynamo
`,
			wantErr:           true,
			wantErrorContains: []string{"invalid configuration", "backend must be one of [sql mongo local]"},
		},
		{
			name: "time limit out of range",
			configContent: `practice:
  time_limit_seconds: 5
`,
			wantErr:           true,
			wantErrorContains: []string{"time_limit_seconds must be 10 or greater"},
		},
		{
			name: "redis backend without address",
			configContent: `cache:
  backend: redis
  redis:
    addr: ""
`,
			wantErr:           true,
			wantErrorContains: []string{"cache.redis.addr is required when cache.backend is redis"},
		},
		{
			name: "mongo backend without database",
			configContent: `storage:
  backend: mongo
mongo:
  database: ""
`,
			wantErr:           true,
			wantErrorContains: []string{"mongo.database is required when storage.backend is mongo"},
		},
		{
			name: "missing jwt secret file",
			configContent: `auth:
  jwt_secret_file: /nonexistent/secret
`,
			wantErr:           true,
			wantErrorContains: []string{"auth.jwt_secret_file must be an existing and readable file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var configPath string
			if tt.useExplicitPath {
				configPath = filepath.Join(tempDir, "custom.yml")
				err := os.WriteFile(configPath, []byte(tt.configContent), 0644)
				require.NoError(t, err)
			} else {
				if tt.configContent != "" {
					err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(tt.configContent), 0644)
					require.NoError(t, err)
				}
				t.Chdir(tempDir)
			}

			got, err := Load(configPath)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				for _, wantMsg := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), wantMsg)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestAuthConfig_Secret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0600))

	got, err := AuthConfig{JWTSecret: "inline", JWTSecretFile: path}.Secret()
	require.NoError(t, err)
	assert.Equal(t, "from-file", got)

	got, err = AuthConfig{JWTSecret: "inline"}.Secret()
	require.NoError(t, err)
	assert.Equal(t, "inline", got)
}
