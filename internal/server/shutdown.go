package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"sales-dashboard/internal/config"
)

const hookTimeout = 10 * time.Second

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulServer runs an http.Server until its context is canceled or the
// process receives SIGINT/SIGTERM, then drains it and runs the registered
// hooks.
type GracefulServer struct {
	server *http.Server
	logger *slog.Logger
	config config.ServerConfig
	hooks  []shutdownHook
	mu     sync.RWMutex
}

func NewGracefulServer(server *http.Server, logger *slog.Logger, cfg config.ServerConfig) *GracefulServer {
	return &GracefulServer{
		server: server,
		logger: logger,
		config: cfg,
	}
}

// RegisterShutdownHook adds fn to the hooks run after the server stops
// accepting requests. Hooks run concurrently.
func (gs *GracefulServer) RegisterShutdownHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: fn})
}

func (gs *GracefulServer) ListenAndServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		gs.logger.Info("starting server",
			"addr", gs.server.Addr,
			"read_timeout", gs.config.ReadTimeout,
			"write_timeout", gs.config.WriteTimeout,
		)
		serverErrors <- gs.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		gs.logger.Info("shutdown requested", "cause", context.Cause(ctx))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), gs.config.ShutdownTimeout)
		defer cancel()

		return gs.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the HTTP server and runs every hook. All failures are
// joined into the returned error.
func (gs *GracefulServer) Shutdown(ctx context.Context) error {
	gs.logger.Info("starting graceful shutdown", "timeout", gs.config.ShutdownTimeout)

	gs.mu.RLock()
	hooks := make([]shutdownHook, len(gs.hooks))
	copy(hooks, gs.hooks)
	gs.mu.RUnlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, hook := range hooks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			hookCtx, cancel := context.WithTimeout(ctx, hookTimeout)
			defer cancel()

			gs.logger.Debug("executing shutdown hook", "hook", hook.name)
			if err := hook.fn(hookCtx); err != nil {
				gs.logger.Error("shutdown hook failed", "hook", hook.name, "error", err)
				record(fmt.Errorf("shutdown hook %s: %w", hook.name, err))
				return
			}
			gs.logger.Debug("shutdown hook completed", "hook", hook.name)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		gs.logger.Info("stopping HTTP server")
		if err := gs.server.Shutdown(ctx); err != nil {
			gs.logger.Error("HTTP server shutdown failed", "error", err)
			record(fmt.Errorf("HTTP server shutdown: %w", err))
			return
		}
		gs.logger.Info("HTTP server stopped gracefully")
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		gs.logger.Info("graceful shutdown completed")
		mu.Lock()
		defer mu.Unlock()
		return errors.Join(errs...)

	case <-ctx.Done():
		gs.logger.Warn("shutdown timeout exceeded, forcing exit")
		return ctx.Err()
	}
}
