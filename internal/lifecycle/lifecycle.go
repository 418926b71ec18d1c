// Package lifecycle runs a command body under signal handling and closes the
// resources it opened, in reverse order, when the body returns.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Resource is a connection or handle held for the duration of a command.
type Resource interface {
	Close() error
}

// CloserFunc adapts a close function into the Resource interface.
type CloserFunc func() error

// Close calls f.
func (f CloserFunc) Close() error { return f() }

// Quiet adapts a close function without an error result, such as
// pgxpool.Pool.Close.
func Quiet(fn func()) Resource {
	return CloserFunc(func() error {
		fn()
		return nil
	})
}

// Lifecycle tracks resources opened by one command.
// Resources are closed in the reverse of the order they were added.
type Lifecycle struct {
	logger    *zap.Logger
	resources []namedResource
	mu        sync.Mutex
}

type namedResource struct {
	name     string
	resource Resource
}

// New creates an empty Lifecycle.
//
// Postcondition: a nil logger is replaced with zap.NewNop().
func New(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{logger: logger}
}

// Add registers a named resource to close when the lifecycle ends.
//
// Precondition: name must be non-empty; r must be non-nil.
func (l *Lifecycle) Add(name string, r Resource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resources = append(l.resources, namedResource{name: name, resource: r})
	l.logger.Debug("resource opened", zap.String("resource", name))
}

// Run calls fn with a context that is cancelled on SIGINT or SIGTERM, then
// closes every registered resource.
//
// Postcondition: all resources are closed when Run returns. The returned
// error joins fn's error with any close errors.
func (l *Lifecycle) Run(ctx context.Context, fn func(context.Context) error) error {
	start := time.Now()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := fn(ctx)
	if ctx.Err() != nil {
		l.logger.Info("interrupted, shutting down", zap.Error(context.Cause(ctx)))
	}
	closeErr := l.Close()
	l.logger.Debug("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return errors.Join(err, closeErr)
}

// Close closes every registered resource in reverse order and forgets them.
// It is safe to call more than once.
func (l *Lifecycle) Close() error {
	l.mu.Lock()
	resources := l.resources
	l.resources = nil
	l.mu.Unlock()

	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		nr := resources[i]
		closeStart := time.Now()
		if err := nr.resource.Close(); err != nil {
			l.logger.Warn("closing resource failed", zap.String("resource", nr.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("closing %s: %w", nr.name, err))
			continue
		}
		l.logger.Debug("resource closed",
			zap.String("resource", nr.name),
			zap.Duration("elapsed", time.Since(closeStart)),
		)
	}
	return errors.Join(errs...)
}
