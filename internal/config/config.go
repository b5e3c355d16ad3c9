package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Profile  ProfileConfig  `mapstructure:"profile"`
	Practice PracticeConfig `mapstructure:"practice"`
	Review   ReviewConfig   `mapstructure:"review"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"min=1,max=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	URL           string `mapstructure:"url" validate:"omitempty,url"`
	AnonKey       string `mapstructure:"anon_key"`
	JWTSecret     string `mapstructure:"jwt_secret"`
	JWTSecretFile string `mapstructure:"jwt_secret_file" validate:"omitempty,file"`
	Audience      string `mapstructure:"audience"`
	RetryAttempts uint   `mapstructure:"retry_attempts" validate:"max=10"`
}

// Secret returns the JWT secret, reading JWTSecretFile when set.
func (c AuthConfig) Secret() (string, error) {
	if c.JWTSecretFile == "" {
		return c.JWTSecret, nil
	}
	data, err := os.ReadFile(c.JWTSecretFile)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile(%s) > %w", c.JWTSecretFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Storage backends for profiles and attempts.
const (
	StorageSQL   = "sql"
	StorageMongo = "mongo"
	StorageLocal = "local"
)

type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=sql mongo local"`
}

type DatabaseConfig struct {
	Driver          string            `mapstructure:"driver" validate:"oneof=mysql postgres"`
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type CacheConfig struct {
	Directory string        `mapstructure:"directory" validate:"required"`
	Backend   string        `mapstructure:"backend" validate:"oneof=file redis"`
	TTL       time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Redis     RedisConfig   `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type ProfileConfig struct {
	StatsSource  string             `mapstructure:"stats_source" validate:"oneof=profile history"`
	WrongAnswers WrongAnswersConfig `mapstructure:"wrong_answers"`
}

type WrongAnswersConfig struct {
	RetentionDays int `mapstructure:"retention_days" validate:"min=0"`
	MaxPerDay     int `mapstructure:"max_per_day" validate:"min=0"`
}

type PracticeConfig struct {
	Operation   string `mapstructure:"operation"`
	Difficulty  string `mapstructure:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	LeftDigits  int    `mapstructure:"left_digits" validate:"min=1,max=6"`
	RightDigits int    `mapstructure:"right_digits" validate:"min=1,max=6"`
	TimeLimit   int    `mapstructure:"time_limit_seconds" validate:"min=10,max=600"`
}

type ReviewConfig struct {
	OutputDirectory string `mapstructure:"output_directory"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode" validate:"oneof=production development"`
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/mentalmath")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

// Load reads configFile, or config.yml from the working directory or
// $HOME/.config/mentalmath when it is empty.
func Load(configFile string) (*Config, error) {
	loader, err := NewConfigLoader(configFile)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("auth.audience", "authenticated")
	v.SetDefault("auth.retry_attempts", 2)
	v.SetDefault("storage.backend", StorageLocal)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "mentalmath")
	v.SetDefault("database.username", "user")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "mentalmath")
	v.SetDefault("cache.directory", filepath.Join(".cache", "mentalmath"))
	v.SetDefault("cache.backend", "file")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.prefix", "mentalmath")
	v.SetDefault("profile.stats_source", "profile")
	v.SetDefault("profile.wrong_answers.retention_days", 30)
	v.SetDefault("profile.wrong_answers.max_per_day", 100)
	v.SetDefault("practice.operation", "addition")
	v.SetDefault("practice.left_digits", 2)
	v.SetDefault("practice.right_digits", 2)
	v.SetDefault("practice.time_limit_seconds", 60)
	v.SetDefault("review.output_directory", filepath.Join("outputs", "review"))
	v.SetDefault("log.mode", "production")
	v.SetDefault("log.level", "warn")

	// Bind auth secrets to environment variables
	if err := v.BindEnv("auth.url", "MENTALMATH_AUTH_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind MENTALMATH_AUTH_URL environment variable: %w", err)
	}
	if err := v.BindEnv("auth.anon_key", "MENTALMATH_AUTH_ANON_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind MENTALMATH_AUTH_ANON_KEY environment variable: %w", err)
	}
	if err := v.BindEnv("auth.jwt_secret", "MENTALMATH_JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind MENTALMATH_JWT_SECRET environment variable: %w", err)
	}

	// Bind database password to environment variable
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("cache.redis.password", "REDIS_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind REDIS_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
