package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/basedlsg/Nemo-Time-sub000/internal/config"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultPolicy(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesTransient(t *testing.T) {
	var calls, retries int
	p := fastPolicy(3)
	p.OnRetry = func(int, error) { retries++ }

	err := Do(context.Background(), p, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("busy"), 503)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if retries != 2 {
		t.Errorf("expected 2 retry callbacks, got %d", retries)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(4), func(_ context.Context) error {
		calls++
		return NewTransientError(errors.New("always"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorStops(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastPolicy(5), func(_ context.Context) error {
		calls++
		return errors.New("bad request")
	})
	if err == nil || err.Error() != "bad request" {
		t.Fatalf("expected bad request, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_CustomRetryable(t *testing.T) {
	var calls int
	p := fastPolicy(3)
	p.Retryable = func(error) bool { return true }

	_ = Do(context.Background(), p, func(_ context.Context) error {
		calls++
		return errors.New("anything")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ContextCancelStopsBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	var calls int
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, p, func(_ context.Context) error {
			calls++
			return NewTransientError(errors.New("busy"), 503)
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error")
		}
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	got, err := DoVal(context.Background(), fastPolicy(3), func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("busy"), 429)
		}
		return "并网", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "并网" {
		t.Errorf("expected 并网, got %q", got)
	}
}

func TestBackoff_CappedAndNonNegative(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, Multiplier: 2}.normalized()
	p.Jitter = 0

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for attempt, w := range want {
		if got := p.backoff(attempt); got != w {
			t.Errorf("attempt %d: expected %v, got %v", attempt, w, got)
		}
	}

	p.Jitter = 0.5
	for i := 0; i < 50; i++ {
		d := p.backoff(1)
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("jittered delay %v outside ±50%% of 200ms", d)
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RetryConfig{MaxAttempts: 5, InitialBackoffMs: 100, MaxBackoffMs: 2000})
	if p.MaxAttempts != 5 || p.InitialBackoff != 100*time.Millisecond || p.MaxBackoff != 2*time.Second {
		t.Errorf("unexpected policy: %+v", p)
	}

	d := PolicyFromConfig(config.RetryConfig{})
	if d.MaxAttempts != DefaultPolicy().MaxAttempts || d.InitialBackoff != DefaultPolicy().InitialBackoff {
		t.Errorf("expected defaults, got %+v", d)
	}
}
