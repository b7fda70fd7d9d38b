package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), DefaultConfig(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	lastErr := errors.New("attempt 3 failed")
	calls := 0
	err := Do(context.Background(), Config{MaxAttempts: 3}, func(ctx context.Context) error {
		calls++
		if calls == 3 {
			return lastErr
		}
		return errors.New("earlier failure")
	})
	if !errors.Is(err, lastErr) {
		t.Errorf("expected last error %v, got %v", lastErr, err)
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 calls, got %d", calls)
	}
}

func TestDo_TeardownRunsBetweenAttemptsOnly(t *testing.T) {
	teardowns := 0
	cfg := Config{
		MaxAttempts: 3,
		OnRetry: func(ctx context.Context) error {
			teardowns++
			return nil
		},
	}
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return errors.New("always fails")
	})

	// Two gaps between three attempts; never after the final failure.
	if teardowns != 2 {
		t.Errorf("expected 2 teardowns, got %d", teardowns)
	}
}

func TestDo_TeardownErrorAbortsLoop(t *testing.T) {
	teardownErr := errors.New("dispose failed")
	calls := 0
	cfg := Config{
		MaxAttempts: 3,
		OnRetry: func(ctx context.Context) error {
			return teardownErr
		},
	}
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, teardownErr) {
		t.Errorf("expected teardown error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected loop to abort after first teardown failure, got %d calls", calls)
	}
}

func TestDo_ContextCancelledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Config{MaxAttempts: 3, Delay: time.Minute}, func(ctx context.Context) error {
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDo_InvalidAttempts(t *testing.T) {
	err := Do(context.Background(), Config{MaxAttempts: 0}, func(ctx context.Context) error {
		t.Fatal("fn must not run with invalid config")
		return nil
	})
	if err == nil {
		t.Fatal("expected error for MaxAttempts < 1")
	}
}
