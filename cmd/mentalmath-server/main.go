package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/at-ishikawa/mentalmath/internal/adapters"
	"github.com/at-ishikawa/mentalmath/internal/auth"
	"github.com/at-ishikawa/mentalmath/internal/bootstrap"
	"github.com/at-ishikawa/mentalmath/internal/config"
	"github.com/at-ishikawa/mentalmath/internal/logging"
	"github.com/at-ishikawa/mentalmath/internal/server"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "mentalmath-server",
		Short:         "Mental math practice service HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}
	logger, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("logging.New() > %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Auth.URL == "" {
		return errors.New("auth.url is required")
	}
	secret, err := cfg.Auth.Secret()
	if err != nil {
		return fmt.Errorf("cfg.Auth.Secret() > %w", err)
	}
	if secret == "" {
		return errors.New("auth.jwt_secret or MENTALMATH_JWT_SECRET is required")
	}

	app := bootstrap.New(bootstrap.WithLogger(logger))

	opened, err := adapters.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("adapters.Open() > %w", err)
	}
	app.AddShutdownHook(opened.Close)

	handler, err := server.NewPracticeHandler(opened.Profiles, func() server.Authenticator {
		return auth.NewClient(cfg.Auth.URL, cfg.Auth.AnonKey, cfg.Auth.RetryAttempts)
	}, logger)
	if err != nil {
		return errors.Join(fmt.Errorf("server.NewPracticeHandler() > %w", err), opened.Close(ctx))
	}
	app.AddShutdownHook(func(context.Context) error {
		handler.Close()
		return nil
	})

	path, h := server.NewPracticeServiceHandler(handler, auth.NewVerifier(secret, cfg.Auth.Audience))
	mux := http.NewServeMux()
	mux.Handle(path, h)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: corsMiddleware(h2c.NewHandler(mux, &http2.Server{}), cfg.Server.CORS.AllowedOrigins),
	}
	app.AddShutdownHook(srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("storage", cfg.Storage.Backend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}

func corsMiddleware(next http.Handler, allowedOrigins []string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
