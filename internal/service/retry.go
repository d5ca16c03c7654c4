package service

import (
	"context"
	"errors"
	"time"
)

// withOptimisticRetry выполняет op до maxAttempts раз, повторяя только
// errVersionConflict. Пауза перед повтором — baseDelay * 2^(attempt-1).
// Любая другая ошибка возвращается сразу; после исчерпания попыток —
// ErrConcurrencyExhausted.
func withOptimisticRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, op func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 && baseDelay > 0 {
			delay := baseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := op()
		if err == nil {
			return nil
		}
		if !errors.Is(err, errVersionConflict) {
			return err
		}
	}
	return ErrConcurrencyExhausted
}
