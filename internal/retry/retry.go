// Package retry makes transient remote failures invisible to business
// logic up to a bounded number of attempts, and tracks connectivity
// health across them.
package retry

import (
	"context"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/remote"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// Executor wraps remote calls with bounded retry and linear backoff.
// Business errors (validation, insufficient stock) are returned on
// first occurrence; everything else is assumed transient.
type Executor struct {
	store     remote.Store
	health    *Health
	attempts  int
	baseDelay time.Duration
	logger    *zap.Logger
}

func NewExecutor(store remote.Store, health *Health, attempts int, baseDelay time.Duration) *Executor {
	if attempts < 1 {
		attempts = 1
	}
	return &Executor{
		store:     store,
		health:    health,
		attempts:  attempts,
		baseDelay: baseDelay,
		logger:    util.GetLogger(),
	}
}

// Store returns the wrapped remote store.
func (e *Executor) Store() remote.Store {
	return e.store
}

// Health returns the connectivity tracker shared across operations.
func (e *Executor) Health() *Health {
	return e.health
}

// Do runs fn up to the attempt budget. Before retrying it waits
// base*attempt and forces a reconnect of the underlying store, since
// a failed call often means a stale connection. After the last failed
// attempt the connectivity flag flips to disconnected and the final
// error surfaces wrapped as a ConnectivityError.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= e.attempts; attempt++ {
		if attempt > 1 {
			util.RetryAttemptsTotal.WithLabelValues(op).Inc()

			delay := e.baseDelay * time.Duration(attempt-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			if err := e.store.Reconnect(ctx); err != nil {
				e.logger.Debug("Reconnect before retry failed",
					zap.String("op", op), zap.Error(err))
			} else {
				util.RemoteReconnectsTotal.Inc()
			}
		}

		err := fn(ctx)
		if err == nil {
			e.health.MarkConnected()
			return nil
		}
		if models.IsBusinessError(err) {
			return err
		}

		lastErr = err
		e.logger.Warn("Remote attempt failed",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("budget", e.attempts),
			zap.Error(err))
	}

	nextRetry := time.Now().Add(e.baseDelay * time.Duration(e.attempts))
	e.health.MarkDisconnected(nextRetry)
	return &models.ConnectivityError{Op: op, Err: lastErr}
}

// Call is Do for operations that produce a value.
func Call[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
