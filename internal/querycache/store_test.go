package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpec(key string, calls *atomic.Int32, value string) Spec[string] {
	return Spec[string]{
		Key:        key,
		StaleAfter: time.Minute,
		Fetch: func(ctx context.Context) (string, error) {
			calls.Add(1)
			return value, nil
		},
	}
}

func TestRunFetchesOnceAndServesFresh(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	spec := testSpec("chats", &calls, "hello")

	res := Run(context.Background(), s, spec)
	require.False(t, res.IsError)
	assert.Equal(t, "hello", res.Data)

	// Fresh hit: no second network call.
	res = Run(context.Background(), s, spec)
	assert.Equal(t, "hello", res.Data)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StatusFresh, s.Status("chats"))
}

func TestConcurrentRunsShareOneFlight(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	spec := Spec[string]{
		Key:        "chat:1",
		StaleAfter: time.Minute,
		Fetch: func(ctx context.Context) (string, error) {
			calls.Add(1)
			close(started)
			<-release
			return "thread", nil
		},
	}

	var wg sync.WaitGroup
	results := make([]Result[string], 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Run(context.Background(), s, spec)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond) // let the second caller join the flight
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "duplicate mounts must share one fetch")
	for _, res := range results {
		assert.Equal(t, "thread", res.Data)
	}
}

func TestStaleServedImmediatelyWhileRevalidating(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	spec := Spec[string]{
		Key:        "trades",
		StaleAfter: 10 * time.Millisecond,
		Fetch: func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				return "v1", nil
			}
			return "v2", nil
		},
	}

	res := Run(context.Background(), s, spec)
	require.Equal(t, "v1", res.Data)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, StatusStale, s.Status("trades"))

	// Stale read: cached value now, refresh in the background. Never a
	// loading state for data we already have.
	res = Run(context.Background(), s, spec)
	assert.Equal(t, "v1", res.Data)
	assert.False(t, res.IsLoading)
	assert.True(t, res.IsFetching)

	assert.Eventually(t, func() bool {
		v, ok := DataAs[string](s, "trades")
		return ok && v == "v2"
	}, time.Second, 5*time.Millisecond)
}

func TestDisabledQueryNeverFetches(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	spec := testSpec("internal-users", &calls, "secret")
	spec.Disabled = true

	res := Run(context.Background(), s, spec)

	assert.False(t, res.HasData)
	assert.False(t, res.IsLoading)
	assert.False(t, res.IsError)
	assert.Equal(t, int32(0), calls.Load())
}

func TestErrorThenRetryOnNextAccess(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	spec := Spec[string]{
		Key:        "analytics",
		StaleAfter: time.Minute,
		Fetch: func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				return "", errors.New("boom")
			}
			return "report", nil
		},
	}

	res := Run(context.Background(), s, spec)
	require.True(t, res.IsError)
	assert.Equal(t, StatusError, s.Status("analytics"))

	res = Run(context.Background(), s, spec)
	assert.Equal(t, "report", res.Data)
	assert.False(t, res.IsError)
}

func TestClearEvictsEverything(t *testing.T) {
	s := New(nil)
	s.SetData("chats", []string{"a"})
	s.SetData("trades", []string{"t"})

	s.Clear()

	_, ok := s.Data("chats")
	assert.False(t, ok)
	_, ok = s.Data("trades")
	assert.False(t, ok)
}

func TestLateArrivalDiscardedAfterSupersede(t *testing.T) {
	s := New(nil)
	release := make(chan struct{})
	spec := Spec[string]{
		Key:        "chat:active",
		StaleAfter: time.Minute,
		Fetch: func(ctx context.Context) (string, error) {
			<-release
			return "old response", nil
		},
	}

	done := make(chan Result[string], 1)
	go func() { done <- Run(context.Background(), s, spec) }()

	time.Sleep(20 * time.Millisecond)
	// The user switched away: newer truth lands before the flight returns.
	s.SetData("chat:active", "new response")
	close(release)
	<-done

	v, ok := DataAs[string](s, "chat:active")
	require.True(t, ok)
	assert.Equal(t, "new response", v, "late-arriving fetch must not clobber newer state")
}

func TestInvalidateRefetchesMountedKeys(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	spec := testSpec("chats", &calls, "list")

	res := Run(context.Background(), s, spec)
	require.Equal(t, "list", res.Data)

	releaseMount := s.Mount("chats")
	defer releaseMount()

	s.Invalidate(context.Background(), "chats")

	// Data stays visible during the background refetch.
	_, ok := s.Data("chats")
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidateUnmountedMarksStaleOnly(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	spec := testSpec("billing", &calls, "x")

	Run(context.Background(), s, spec)
	s.Invalidate(context.Background(), "billing")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StatusStale, s.Status("billing"))
}

func TestInvalidateDuringRevalidateStillRefetches(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	spec := Spec[string]{
		Key:        "chats",
		StaleAfter: 10 * time.Millisecond,
		Fetch: func(ctx context.Context) (string, error) {
			n := calls.Add(1)
			if n == 2 {
				close(started)
				<-release
			}
			return fmt.Sprintf("v%d", n), nil
		},
	}

	res := Run(context.Background(), s, spec)
	require.Equal(t, "v1", res.Data)

	unmount := s.Mount("chats")
	defer unmount()

	// Stale read kicks a background revalidate; hold that flight in the air.
	time.Sleep(20 * time.Millisecond)
	Run(context.Background(), s, spec)
	<-started

	// Invalidation lands while the revalidate is still in flight. The
	// superseded flight must not block the mandated refetch, and the key
	// must not stay wedged in a fetching state.
	s.Invalidate(context.Background(), "chats")
	close(release)

	assert.Eventually(t, func() bool {
		v, ok := DataAs[string](s, "chats")
		return ok && v == "v3"
	}, time.Second, 5*time.Millisecond, "invalidate must refetch the mounted key")
	assert.Eventually(t, func() bool {
		return !Peek[string](s, "chats").IsFetching
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRefocusRefreshesMountedWithoutClearing(t *testing.T) {
	s := New(nil)
	var calls atomic.Int32
	spec := testSpec("trades", &calls, "rows")

	Run(context.Background(), s, spec)
	release := s.Mount("trades")
	defer release()

	s.Refocus(context.Background())

	_, ok := s.Data("trades")
	assert.True(t, ok, "focus refresh must not drop cached data")
	assert.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeSeesChanges(t *testing.T) {
	s := New(nil)
	ch, cancel := s.Subscribe()
	defer cancel()

	s.SetData("chats", "v")

	select {
	case key := <-ch:
		assert.Equal(t, "chats", key)
	case <-time.After(time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestUpdateMergesUnderLock(t *testing.T) {
	s := New(nil)
	s.SetData("counter", 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("counter", func(cur any) any {
				if cur == nil {
					return 1
				}
				return cur.(int) + 1
			})
		}()
	}
	wg.Wait()

	v, _ := DataAs[int](s, "counter")
	assert.Equal(t, 50, v)
}
