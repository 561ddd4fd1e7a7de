// Package session turns an unreliable provider connect into a resilient
// one. Each ingestion run owns its Manager, so attempt and backoff
// state never leaks between parallel units.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fxpull/internal/domain/models"
	drepo "fxpull/internal/domain/repository"
	applogger "fxpull/pkg/logger"
)

const defaultMaxAttempts = 10

// Manager wraps a MarketDataSource with bounded linear-backoff
// reconnection.
type Manager struct {
	source      drepo.MarketDataSource
	metrics     drepo.Metrics
	l           *applogger.Logger
	maxAttempts int
	backoffUnit time.Duration
	sleep       func(time.Duration)
}

// Option configures Manager.
type Option func(*Manager)

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithBackoffUnit sets the time unit the backoff counter multiplies.
func WithBackoffUnit(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.backoffUnit = d
		}
	}
}

// WithSleep replaces the sleep function. Tests use this to observe
// backoff without waiting.
func WithSleep(fn func(time.Duration)) Option {
	return func(m *Manager) {
		m.sleep = fn
	}
}

// NewManager creates a session manager around source.
func NewManager(source drepo.MarketDataSource, metrics drepo.Metrics, l *applogger.Logger, opts ...Option) *Manager {
	m := &Manager{
		source:      source,
		metrics:     metrics,
		l:           l,
		maxAttempts: defaultMaxAttempts,
		backoffUnit: time.Second,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureConnected returns once the session is up. Transient connection
// errors are retried with linear backoff: the counter starts at 1 and
// the manager sleeps counter units after each failed attempt, then
// increments it. Non-transient errors propagate immediately. After the
// attempt budget is exhausted it fails with models.ErrConnectionFailure,
// which is fatal to the calling ingestion unit.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	if m.source.IsConnected() {
		return nil
	}

	backoff := 1
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err := m.source.Connect(ctx)
		if err == nil && m.source.IsConnected() {
			m.metrics.RecordConnectAttempt("success")
			m.l.Info("session established", applogger.Int("attempt", attempt))
			return nil
		}
		if err == nil {
			// Connect returned but the health check disagrees.
			err = fmt.Errorf("%w: session did not come up", models.ErrTransientConnection)
		}
		if !errors.Is(err, models.ErrTransientConnection) {
			m.metrics.RecordConnectAttempt("fatal")
			return err
		}

		m.metrics.RecordConnectAttempt("transient")
		lastErr = err
		m.l.Warn("connect attempt failed",
			applogger.Int("attempt", attempt),
			applogger.Int("backoff_units", backoff),
			applogger.Error(err),
		)
		if attempt < m.maxAttempts {
			m.sleep(time.Duration(backoff) * m.backoffUnit)
			backoff++
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", models.ErrConnectionFailure, m.maxAttempts, lastErr)
}

// IsConnected is a side-effect-free health check on the underlying
// session.
func (m *Manager) IsConnected() bool {
	return m.source.IsConnected()
}
