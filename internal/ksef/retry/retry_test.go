package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(recorded *[]time.Duration) Option {
	return WithSleep(func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	})
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var delays []time.Duration
	r := New(noSleep(&delays))

	result := r.Do(context.Background(), func(context.Context) (string, error) {
		return "X1", nil
	})

	if !result.Success {
		t.Fatal("expected success")
	}
	if result.RemoteID != "X1" {
		t.Fatalf("unexpected remote id %q", result.RemoteID)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.Attempts)
	}
	if len(delays) != 0 {
		t.Fatalf("expected no backoff, got %v", delays)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var delays []time.Duration
	r := New(noSleep(&delays))

	calls := 0
	result := r.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("boom")
		}
		return "X2", nil
	})

	if !result.Success || result.Attempts != 3 {
		t.Fatalf("expected success on attempt 3, got %+v", result)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("expected delays %v, got %v", want, delays)
		}
	}
}

func TestDoExhaustsAttemptsWithCappedBackoff(t *testing.T) {
	var delays []time.Duration
	r := New(noSleep(&delays))

	lastErr := errors.New("persistent failure")
	result := r.Do(context.Background(), func(context.Context) (string, error) {
		return "", lastErr
	})

	if result.Success {
		t.Fatal("expected exhaustion")
	}
	if result.Attempts != MaxAttempts {
		t.Fatalf("expected %d attempts, got %d", MaxAttempts, result.Attempts)
	}
	if !errors.Is(result.Err, lastErr) {
		t.Fatalf("expected last error preserved, got %v", result.Err)
	}

	// Three failing attempts back off 2s, 4s and the 8s cap.
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("expected delays %v, got %v", want, delays)
		}
	}
}

func TestDoStopsWhenContextCanceled(t *testing.T) {
	r := New(WithSleep(func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}))

	calls := 0
	result := r.Do(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("boom")
	})

	if result.Success {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", calls)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", result.Attempts)
	}
}
