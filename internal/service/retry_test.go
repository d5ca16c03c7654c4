package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithOptimisticRetry_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := withOptimisticRetry(context.Background(), 3, 0, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithOptimisticRetry_RetriesOnlyVersionConflict(t *testing.T) {
	calls := 0
	err := withOptimisticRetry(context.Background(), 5, 0, func() error {
		calls++
		if calls < 3 {
			return errVersionConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithOptimisticRetry_NonRetryableReturnsImmediately(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := withOptimisticRetry(context.Background(), 5, 0, func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithOptimisticRetry_Exhaustion(t *testing.T) {
	calls := 0
	err := withOptimisticRetry(context.Background(), 3, 0, func() error {
		calls++
		return errVersionConflict
	})
	if !errors.Is(err, ErrConcurrencyExhausted) {
		t.Fatalf("expected ErrConcurrencyExhausted, got %v", err)
	}
	// Внутренний маркер наружу не выходит
	if errors.Is(err, errVersionConflict) {
		t.Fatal("version conflict marker must not leak")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithOptimisticRetry_ZeroAttemptsMeansOne(t *testing.T) {
	calls := 0
	_ = withOptimisticRetry(context.Background(), 0, 0, func() error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithOptimisticRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- withOptimisticRetry(ctx, 5, time.Hour, func() error {
			calls++
			return errVersionConflict
		})
	}()

	// Первая попытка проходит сразу, затем зависаем в backoff
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not stop on context cancellation")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestWithOptimisticRetry_BackoffGrows(t *testing.T) {
	start := time.Now()
	calls := 0
	err := withOptimisticRetry(context.Background(), 3, 10*time.Millisecond, func() error {
		calls++
		return errVersionConflict
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrConcurrencyExhausted) {
		t.Fatalf("expected ErrConcurrencyExhausted, got %v", err)
	}
	// Паузы 10ms + 20ms
	if elapsed < 30*time.Millisecond {
		t.Fatalf("expected at least 30ms of backoff, got %v", elapsed)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}
