package explorer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Burst(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(10, 3)
	for i := range 3 {
		require.NoError(t, rl.Wait(context.Background(), "test"), "request %d in burst", i)
	}

	// The next token is 100ms away, past the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.Error(t, rl.Wait(ctx, "test"))
	require.NoError(t, rl.Wait(ctx, "other"))
}

func TestRateLimiter_Wait(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(100, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, "test"))
	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "test"))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(-1, 0)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for range 1000 {
		require.NoError(t, rl.Wait(ctx, "test"))
	}
}

func TestRateLimiter_PauseHoldsEveryCaller(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(-1, 0)
	rl.Pause("/addresses/used", 50*time.Millisecond)
	_, remaining := rl.lookup("/addresses/used")
	assert.Positive(t, remaining)
	_, remaining = rl.lookup("/other")
	assert.LessOrEqual(t, remaining, time.Duration(0))

	start := time.Now()
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rl.Wait(context.Background(), "/addresses/used"))
		}()
	}
	wg.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	_, remaining = rl.lookup("/addresses/used")
	assert.LessOrEqual(t, remaining, time.Duration(0))
}

func TestRateLimiter_PauseKeepsLaterEnd(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	rl := NewRateLimiter(-1, 0)
	rl.now = func() time.Time { return now }

	rl.Pause("e", 10*time.Second)
	rl.Pause("e", time.Second)
	rl.Pause("e", 0)

	_, remaining := rl.lookup("e")
	assert.Equal(t, 10*time.Second, remaining)

	now = now.Add(11 * time.Second)
	_, remaining = rl.lookup("e")
	assert.Negative(t, remaining)
}

func TestRateLimiter_WaitCanceledDuringPause(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(-1, 0)
	rl.Pause("e", time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, rl.Wait(ctx, "e"), context.DeadlineExceeded)
}
