package observability

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is called during graceful shutdown.
type ShutdownFunc func(ctx context.Context) error

// ShutdownManager coordinates graceful shutdown of the HTTP server and any
// registered cleanup hooks when SIGINT or SIGTERM arrives.
type ShutdownManager struct {
	logger  *Logger
	timeout time.Duration

	mu    sync.Mutex
	hooks []namedHook
}

type namedHook struct {
	name string
	fn   ShutdownFunc
}

func NewShutdownManager(logger *Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: logger, timeout: timeout}
}

// Register adds a cleanup hook. Hooks run in reverse registration order so
// dependents shut down before their dependencies.
func (m *ShutdownManager) Register(name string, fn ShutdownFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, namedHook{name: name, fn: fn})
}

// Wait blocks until a termination signal is received or ctx is cancelled,
// then drains the server and runs the registered hooks.
func (m *ShutdownManager) Wait(ctx context.Context, server *http.Server) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		m.logger.WithField("signal", sig.String()).Info("shutdown signal received")
	case <-ctx.Done():
		m.logger.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			m.logger.WithError(err).Error("HTTP server shutdown failed")
		} else {
			m.logger.Info("HTTP server drained")
		}
	}

	m.mu.Lock()
	hooks := make([]namedHook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(shutdownCtx); err != nil {
			m.logger.WithError(err).WithField("hook", h.name).Error("shutdown hook failed")
		} else {
			m.logger.WithField("hook", h.name).Debug("shutdown hook completed")
		}
	}

	m.logger.Info("shutdown complete")
}
