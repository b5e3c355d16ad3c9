package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/at-ishikawa/mentalmath/internal/account"
	"github.com/at-ishikawa/mentalmath/internal/adapters"
	"github.com/at-ishikawa/mentalmath/internal/auth"
	"github.com/at-ishikawa/mentalmath/internal/cli"
	"github.com/at-ishikawa/mentalmath/internal/config"
	"github.com/at-ishikawa/mentalmath/internal/logging"
)

// sessionFileName is where the signed-in session is kept between runs,
// inside the cache directory.
const sessionFileName = "session.yml"

var errSignInRequired = errors.New("not signed in. Run `mentalmath login` first")

// application is everything a command needs, opened from the config.
type application struct {
	cfg        *config.Config
	logger     *zap.Logger
	adapters   *adapters.Adapters
	authClient *auth.Client
	manager    *account.Manager
	theme      *cli.Theme
	stdin      io.Reader
	stdout     io.Writer

	wg sync.WaitGroup
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newApplication(ctx context.Context, cmd *cobra.Command) (*application, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if debugMode {
		level = "debug"
	}
	logger, err := logging.New(cfg.Log.Mode, level)
	if err != nil {
		return nil, fmt.Errorf("logging.New() > %w", err)
	}

	opened, err := adapters.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("adapters.Open() > %w", err)
	}

	app := &application{
		cfg:        cfg,
		logger:     logger,
		adapters:   opened,
		authClient: auth.NewClient(cfg.Auth.URL, cfg.Auth.AnonKey, cfg.Auth.RetryAttempts),
		theme:      cli.NewTheme(),
		stdin:      cmd.InOrStdin(),
		stdout:     cmd.OutOrStdout(),
	}
	app.manager = account.NewManager(app.authClient, opened.Profiles, opened.Cache, logger,
		account.WithColorScheme(app.theme.Apply),
		account.WithSessionFile(filepath.Join(cfg.Cache.Directory, sessionFileName)),
	)
	return app, nil
}

// start restores the saved session and waits for the first refresh.
func (app *application) start(ctx context.Context) account.State {
	app.manager.Start(ctx)
	app.manager.Wait()
	return app.manager.State()
}

// dispatch runs answer persistence in the background; close waits for it.
func (app *application) dispatch(f func()) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		f()
	}()
}

func (app *application) close(ctx context.Context) error {
	app.wg.Wait()
	app.manager.Close()
	return errors.Join(
		app.authClient.Close(),
		app.adapters.Close(ctx),
	)
}

func (app *application) requireAuthURL() error {
	if app.cfg.Auth.URL == "" {
		return errors.New("auth.url is not configured. Set it in the config file or MENTALMATH_AUTH_URL")
	}
	return nil
}

// withApplication opens the application for one command and always
// closes it.
func withApplication(cmd *cobra.Command, run func(ctx context.Context, app *application, state account.State) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := newApplication(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := app.close(ctx); closeErr != nil {
			app.logger.Warn("close application", zap.Error(closeErr))
		}
		_ = app.logger.Sync()
	}()

	return run(ctx, app, app.start(ctx))
}
