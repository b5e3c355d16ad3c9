// Package bootstrap provides application lifecycle helpers.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds how long shutdown hooks may take.
const DefaultShutdownTimeout = 10 * time.Second

// App manages application lifecycle with graceful shutdown support.
type App struct {
	mu      sync.Mutex
	hooks   []func(ctx context.Context) error
	logger  *zap.Logger
	timeout time.Duration
	signals []os.Signal
}

// Option configures an App.
type Option func(*App)

// WithLogger logs hook failures.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithShutdownTimeout overrides DefaultShutdownTimeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(a *App) { a.timeout = timeout }
}

// New creates a new App that stops on SIGINT or SIGTERM.
func New(opts ...Option) *App {
	a := &App{
		logger:  zap.NewNop(),
		timeout: DefaultShutdownTimeout,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddShutdownHook registers a function to call during graceful shutdown.
// Hooks run in reverse order (LIFO). Thread-safe.
func (a *App) AddShutdownHook(fn func(ctx context.Context) error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Run sets up signal handling and executes the run function.
// Shutdown hooks run in LIFO order when a signal arrives or run returns,
// so resources opened for a one-shot command are released too. The error
// from run takes precedence over hook errors.
func (a *App) Run(ctx context.Context, run func(ctx context.Context) error) error {
	ctx, cancel := signal.NotifyContext(ctx, a.signals...)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancelShutdown()
	if err := a.shutdown(shutdownCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func (a *App) shutdown(ctx context.Context) error {
	a.mu.Lock()
	hooks := a.hooks
	a.hooks = nil
	a.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			a.logger.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
