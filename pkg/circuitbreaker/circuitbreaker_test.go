package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errTestError = errors.New("test error")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	b := New(cfg)
	b.now = clock.Now
	return b, clock
}

func fail(context.Context) error    { return errTestError }
func succeed(context.Context) error { return nil }

func TestBreaker_ClosedPassesCalls(t *testing.T) {
	b, _ := newTestBreaker(DefaultConfig())

	if err := b.Execute(context.Background(), succeed); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	err := b.Execute(context.Background(), fail)
	if !errors.Is(err, errTestError) {
		t.Errorf("Expected wrapped test error, got: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("Expected state closed, got: %v", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, Cooldown: time.Second})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Execute(ctx, fail)
	}
	if b.State() != StateOpen {
		t.Fatalf("Expected state open, got: %v", b.State())
	}

	called := false
	err := b.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen, got: %v", err)
	}
	if called {
		t.Error("Call should not run while open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 2, Cooldown: time.Second})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	_ = b.Execute(ctx, succeed)
	_ = b.Execute(ctx, fail)

	if b.State() != StateClosed {
		t.Errorf("Failures were not consecutive, expected closed, got: %v", b.State())
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Cooldown: time.Second, HalfOpenTrials: 1})
	ctx := context.Background()

	var transitions []string
	b.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_ = b.Execute(ctx, fail)
	clock.Advance(500 * time.Millisecond)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Fatalf("Expected ErrOpen during cooldown, got: %v", err)
	}

	clock.Advance(time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Expected trial call to be allowed, got: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Expected second trial call to be rejected, got: %v", err)
	}
	b.Record(true)

	if b.State() != StateClosed {
		t.Errorf("Expected state closed, got: %v", b.State())
	}
	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("Expected transitions %v, got: %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("Transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Cooldown: time.Second})
	ctx := context.Background()

	_ = b.Execute(ctx, fail)
	clock.Advance(2 * time.Second)
	_ = b.Execute(ctx, fail)

	if b.State() != StateOpen {
		t.Errorf("Expected state open, got: %v", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Cooldown should restart after a failed trial call, got: %v", err)
	}
}

func TestBreaker_Concurrent(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1000, Cooldown: time.Second})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = b.Execute(ctx, fail)
			} else {
				_ = b.Execute(ctx, succeed)
			}
		}(i)
	}
	wg.Wait()

	if b.State() != StateClosed {
		t.Errorf("Expected state closed, got: %v", b.State())
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}
