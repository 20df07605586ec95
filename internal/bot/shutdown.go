// internal/bot/shutdown.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultShutdownTimeout bounds the whole shutdown sequence.
const DefaultShutdownTimeout = 30 * time.Second

// StopFunc releases one component.
type StopFunc func(ctx context.Context) error

type namedStop struct {
	name string
	stop StopFunc
}

// ShutdownHandler stops registered components in reverse registration order,
// so consumers go down before the producers they depend on.
type ShutdownHandler struct {
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	services []namedStop
	done     bool
}

// NewShutdownHandler creates a new shutdown handler
func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout == 0 {
		timeout = DefaultShutdownTimeout
	}
	return &ShutdownHandler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Add registers a component for shutdown.
func (sh *ShutdownHandler) Add(name string, stop StopFunc) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.services = append(sh.services, namedStop{name: name, stop: stop})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a context-free close function.
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, func(context.Context) error { return fn() })
}

// Shutdown runs every stop function once. Later calls are no-ops.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	if sh.done {
		sh.mu.Unlock()
		return nil
	}
	sh.done = true
	services := make([]namedStop, len(sh.services))
	copy(services, sh.services)
	sh.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		if err := svc.stop(ctx); err != nil {
			sh.logger.Error("Failed to shutdown service",
				zap.String("service", svc.name),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", svc.name, err))
			continue
		}
		sh.logger.Debug("Service shutdown complete", zap.String("service", svc.name))
	}

	if len(errs) > 0 {
		sh.logger.Error("Shutdown completed with errors", zap.Int("errorCount", len(errs)))
		return errors.Join(errs...)
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}
