package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail(_ context.Context) error { return errBoom }
func succeed(_ context.Context) error { return nil }

func TestCircuitBreaker_ClosedPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker("zillow", DefaultCircuitBreakerConfig())

	calls := 0
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("attom", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after 3 failures, got %s", cb.State())
	}

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("provider should not be called while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("realtymole", CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	if got := cb.Failures(); got != 2 {
		t.Errorf("expected 2 failures, got %d", got)
	}

	_ = cb.Execute(context.Background(), succeed)
	if got := cb.Failures(); got != 0 {
		t.Errorf("expected failures reset, got %d", got)
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("zillow", CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	cb.now = func() time.Time { return now.Add(2 * time.Second) }
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open after timeout, got %s", cb.State())
	}

	if err := cb.Execute(context.Background(), succeed); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after successful probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker("zillow", CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)

	now = now.Add(2 * time.Second)
	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitOpen {
		t.Errorf("expected reopen after failed probe, got %s", cb.State())
	}
}

func TestCircuitBreaker_ShouldTrip(t *testing.T) {
	cb := NewCircuitBreaker("attom", CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       IsTransient,
	})

	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitClosed {
		t.Errorf("permanent error should not trip, got %s", cb.State())
	}

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return NewTransientError(errBoom, 503)
	})
	if cb.State() != CircuitOpen {
		t.Errorf("transient error should trip, got %s", cb.State())
	}

	cb.Reset()
	if cb.State() != CircuitClosed || cb.Failures() != 0 {
		t.Errorf("reset should close the circuit, got %s/%d", cb.State(), cb.Failures())
	}
}

func TestExecuteVal_ReturnsValue(t *testing.T) {
	cb := NewCircuitBreaker("google", DefaultCircuitBreakerConfig())
	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Errorf("got %d, %v", v, err)
	}
}

func TestServiceBreakers_GetAndStates(t *testing.T) {
	sb := NewServiceBreakers(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sb.Get("zillow")
		}()
	}
	wg.Wait()

	if sb.Get("zillow") != sb.Get("zillow") {
		t.Fatal("expected the same breaker for one provider")
	}
	_ = sb.Get("attom").Execute(context.Background(), fail)

	states := sb.States()
	if len(states) != 2 {
		t.Fatalf("expected 2 breakers, got %d", len(states))
	}
	if states[0].Provider != "attom" || states[0].State != "open" || states[0].Failures != 1 {
		t.Errorf("unexpected attom state: %+v", states[0])
	}
	if states[1].Provider != "zillow" || states[1].State != "closed" {
		t.Errorf("unexpected zillow state: %+v", states[1])
	}
}

func TestCircuitState_String(t *testing.T) {
	for state, want := range map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(99): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d: got %q, want %q", state, got, want)
		}
	}
}
