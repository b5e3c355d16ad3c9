package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("file", isFileReadable); err != nil {
		return nil, nil, fmt.Errorf("failed to register file validation: %w", err)
	}
	if err := validate.RegisterTranslation("file", trans, func(ut ut.Translator) error {
		return ut.Add("file", "{0} must be an existing and readable file", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("file", strings.TrimPrefix(fe.Namespace(), "Config."))
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register file translation: %w", err)
	}

	validate.RegisterStructValidation(validateBackends, Config{})
	if err := validate.RegisterTranslation("required_for", trans, func(ut ut.Translator) error {
		return ut.Add("required_for", "{0} is required when {1}", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required_for", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Param())
		return t
	}); err != nil {
		return nil, nil, fmt.Errorf("failed to register required_for translation: %w", err)
	}

	return validate, trans, nil
}

// validateBackends checks the settings each selected backend needs.
func validateBackends(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	switch cfg.Storage.Backend {
	case StorageSQL:
		if cfg.Database.Host == "" {
			sl.ReportError(cfg.Database.Host, "database.host", "Host", "required_for", "storage.backend is sql")
		}
		if cfg.Database.Database == "" {
			sl.ReportError(cfg.Database.Database, "database.database", "Database", "required_for", "storage.backend is sql")
		}
	case StorageMongo:
		if cfg.Mongo.URI == "" {
			sl.ReportError(cfg.Mongo.URI, "mongo.uri", "URI", "required_for", "storage.backend is mongo")
		}
		if cfg.Mongo.Database == "" {
			sl.ReportError(cfg.Mongo.Database, "mongo.database", "Database", "required_for", "storage.backend is mongo")
		}
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.Redis.Addr == "" {
		sl.ReportError(cfg.Cache.Redis.Addr, "cache.redis.addr", "Addr", "required_for", "cache.backend is redis")
	}
}

func isFileReadable(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	if info.IsDir() {
		return false
	}

	// Check if the owner has read permission
	return info.Mode().Perm()&(1<<(uint(7))) != 0
}
