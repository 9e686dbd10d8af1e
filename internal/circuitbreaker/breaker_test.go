package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

var errBoom = errors.New("boom")

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func newTestBreaker(clock *fakeClock) *Breaker {
	return New(Config{
		Name:             "capi",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		ResetTimeout:     60 * time.Second,
	}, WithClock(clock.Now))
}

func TestBreaker_TransitionTable(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	b := newTestBreaker(clock)

	assert.Equal(t, StateClosed, b.State())

	for i := 0; i < 4; i++ {
		assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
		assert.Equal(t, StateClosed, b.State(), "failure %d must not trip", i+1)
	}

	assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, b.State())

	m := b.Metrics()
	require.NotNil(t, m.NextAttemptAt)
	assert.Equal(t, clock.Now().Add(60*time.Second), *m.NextAttemptAt)

	called := false
	err := b.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called, "open breaker must not invoke fn")

	clock.Advance(60 * time.Second)

	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, b.State())
	assert.Equal(t, 1, b.Metrics().SuccessCount)

	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())
	assert.Nil(t, b.Metrics().NextAttemptAt)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	b := newTestBreaker(clock)

	for i := 0; i < 5; i++ {
		_ = b.Execute(ctx, fail)
	}
	require.Equal(t, StateOpen, b.State())

	clock.Advance(61 * time.Second)
	require.NoError(t, b.Execute(ctx, succeed))
	require.Equal(t, StateHalfOpen, b.State())

	assert.ErrorIs(t, b.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Execute(ctx, succeed), ErrOpen)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	b := newTestBreaker(&fakeClock{now: time.Now()})

	for i := 0; i < 4; i++ {
		_ = b.Execute(ctx, fail)
	}
	require.NoError(t, b.Execute(ctx, succeed))
	assert.Equal(t, 0, b.Metrics().FailureCount)

	for i := 0; i < 4; i++ {
		_ = b.Execute(ctx, fail)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ResetAndStateChangeHook(t *testing.T) {
	ctx := context.Background()

	var transitions []string
	b := New(Config{Name: "capi", FailureThreshold: 1}, WithStateChange(func(name string, from, to State) {
		transitions = append(transitions, string(from)+"->"+string(to))
	}))

	_ = b.Execute(ctx, fail)
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, Metrics{Name: "capi", State: StateClosed}, b.Metrics())
	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->CLOSED"}, transitions)
}

func TestNew_AppliesDefaults(t *testing.T) {
	b := New(Config{Name: "x"})
	assert.Equal(t, DefaultConfig("x"), b.cfg)
}

func TestBreaker_ConcurrentUse(t *testing.T) {
	ctx := context.Background()
	b := New(DefaultConfig("capi"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = b.Execute(ctx, succeed)
			} else {
				_ = b.Execute(ctx, fail)
			}
		}(i)
	}
	wg.Wait()

	m := b.Metrics()
	assert.Contains(t, []State{StateClosed, StateOpen, StateHalfOpen}, m.State)
}
