// Package server coordinates startup and shutdown of the game server's
// long-running endpoints. The websocket acceptor is the primary service;
// anything with a blocking Start and a graceful Stop fits the same slot.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running endpoint such as the websocket acceptor.
type Service interface {
	// Start runs the service. It blocks until the service is stopped
	// or fails.
	Start() error
	// Stop shuts the service down gracefully.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle runs registered services until a termination signal or a
// service failure, then stops them in reverse registration order.
type Lifecycle struct {
	logger  *zap.Logger
	entries []entry
	mu      sync.Mutex
}

type entry struct {
	name string
	svc  Service
}

// NewLifecycle creates an empty lifecycle coordinator.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{
		logger: logger,
	}
}

// Add registers a named service. Services start in registration order.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

// Run starts every registered service and blocks until SIGINT/SIGTERM,
// a service failure, or context cancellation, then shuts down.
//
// Postcondition: all services are stopped when Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(l.entries))
	for _, e := range l.entries {
		e := e
		go func() {
			l.logger.Info("starting service",
				zap.String("service", e.name),
			)
			svcStart := time.Now()
			if err := e.svc.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", e.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errCh <- fmt.Errorf("service %s: %w", e.name, err)
				cancel()
			}
		}()
	}

	l.logger.Info("all services started",
		zap.Int("count", len(l.entries)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down",
			zap.String("signal", sig.String()),
		)
	case err := <-errCh:
		l.logger.Error("service error, shutting down",
			zap.Error(err),
		)
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	l.shutdown()

	l.logger.Info("shutdown complete",
		zap.Duration("total_uptime", time.Since(start)),
	)
	return nil
}

// shutdown stops services in reverse registration order so the
// websocket edge drains before anything it depends on goes away.
func (l *Lifecycle) shutdown() {
	shutdownStart := time.Now()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		svcStart := time.Now()
		l.logger.Info("stopping service",
			zap.String("service", e.name),
		)
		e.svc.Stop()
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
