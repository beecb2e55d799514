package failover

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFirstStopsAtFirstSuccess(t *testing.T) {
	var calls []string
	v, c, err := First(context.Background(), []string{"a", "b", "c"}, func(_ context.Context, c string) (int, error) {
		calls = append(calls, c)
		if c == "a" {
			return 0, errors.New("down")
		}
		return len(calls), nil
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c != "b" || v != 2 {
		t.Fatalf("expected b/2, got %s/%d", c, v)
	}
	if len(calls) != 2 {
		t.Fatalf("expected c not to be tried, calls=%v", calls)
	}
}

func TestFirstExhausted(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := First(context.Background(), []int{1, 2}, func(_ context.Context, _ int) (string, error) {
		return "", boom
	})
	if !errors.Is(err, ErrExhausted) || !errors.Is(err, boom) {
		t.Fatalf("expected exhausted wrapping boom, got %v", err)
	}
}

func TestFirstNoCandidates(t *testing.T) {
	_, _, err := First(context.Background(), nil, func(_ context.Context, _ int) (int, error) { return 1, nil })
	if !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestFirstParallelCancelsSlowCandidates(t *testing.T) {
	var cancelled atomic.Int32
	v, c, err := FirstParallel(context.Background(), []string{"slow", "fast", "bad"}, func(ctx context.Context, c string) (string, error) {
		switch c {
		case "fast":
			return "ok", nil
		case "bad":
			return "", errors.New("bad")
		}
		select {
		case <-ctx.Done():
			cancelled.Add(1)
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "late", nil
		}
	})
	if err != nil || v != "ok" || c != "fast" {
		t.Fatalf("expected fast/ok, got %s/%s err=%v", c, v, err)
	}
}

func TestFirstParallelExhausted(t *testing.T) {
	_, _, err := FirstParallel(context.Background(), []int{1, 2, 3}, func(_ context.Context, i int) (int, error) {
		return 0, errors.New("down")
	})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}
