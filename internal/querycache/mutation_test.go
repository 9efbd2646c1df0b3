package querycache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationHookOrderOnSuccess(t *testing.T) {
	s := New(nil)
	var order []string

	m := &Mutation[string, string]{
		Store: s,
		Call: func(ctx context.Context, arg string) (string, error) {
			order = append(order, "call")
			return "reply", nil
		},
		OnOptimistic: func(s *Store, arg string) { order = append(order, "optimistic") },
		OnSuccess: func(ctx context.Context, s *Store, arg string, res string) {
			order = append(order, "success")
		},
		OnError:   func(s *Store, arg string, err error) { order = append(order, "error") },
		OnSettled: func(s *Store, arg string) { order = append(order, "settled") },
	}

	res, err := m.Do(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "reply", res)
	assert.Equal(t, []string{"optimistic", "call", "success", "settled"}, order)
}

func TestMutationSettledRunsExactlyOnceOnFailure(t *testing.T) {
	s := New(nil)
	settled := 0

	m := &Mutation[string, string]{
		Store: s,
		Call: func(ctx context.Context, arg string) (string, error) {
			return "", errors.New("gateway rejected")
		},
		OnError:   func(s *Store, arg string, err error) {},
		OnSettled: func(s *Store, arg string) { settled++ },
	}

	_, err := m.Do(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 1, settled)
}

func TestMutationRollbackRestoresCache(t *testing.T) {
	s := New(nil)
	s.SetData("chat:1:messages", []string{"confirmed"})

	m := &Mutation[string, string]{
		Store: s,
		OnOptimistic: func(s *Store, arg string) {
			s.Update("chat:1:messages", func(cur any) any {
				msgs := cur.([]string)
				return append(append([]string{}, msgs...), "tmp-"+arg)
			})
		},
		Call: func(ctx context.Context, arg string) (string, error) {
			return "", errors.New("rejected")
		},
		OnError: func(s *Store, arg string, err error) {
			s.Update("chat:1:messages", func(cur any) any {
				msgs := cur.([]string)
				kept := msgs[:0:0]
				for _, m := range msgs {
					if m != "tmp-"+arg {
						kept = append(kept, m)
					}
				}
				return kept
			})
		},
	}

	_, err := m.Do(context.Background(), "hello")
	require.Error(t, err)

	msgs, _ := DataAs[[]string](s, "chat:1:messages")
	assert.Equal(t, []string{"confirmed"}, msgs, "rollback must leave confirmed data untouched")
}

func TestMutationRejectsConcurrentSameTarget(t *testing.T) {
	s := New(nil)
	started := make(chan struct{})
	release := make(chan struct{})

	m := &Mutation[string, string]{
		Store:     s,
		TargetKey: func(arg string) string { return "chat:1" },
		Call: func(ctx context.Context, arg string) (string, error) {
			if arg == "first" {
				close(started)
				<-release
			}
			return "ok", nil
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := m.Do(context.Background(), "first")
		assert.NoError(t, err)
	}()

	<-started
	_, err := m.Do(context.Background(), "second")
	assert.ErrorIs(t, err, ErrMutationInFlight)

	close(release)
	wg.Wait()

	// Latch released: a new send for the same target goes through.
	done := make(chan error, 1)
	go func() {
		_, err := m.Do(context.Background(), "third")
		done <- err
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("mutation latch was not released")
	}
}

func TestMutationDifferentTargetsRunIndependently(t *testing.T) {
	s := New(nil)
	release := make(chan struct{})
	started := make(chan struct{})

	m := &Mutation[string, string]{
		Store:     s,
		TargetKey: func(arg string) string { return arg },
		Call: func(ctx context.Context, arg string) (string, error) {
			if arg == "chat:1" {
				close(started)
				<-release
			}
			return "ok", nil
		},
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = m.Do(context.Background(), "chat:1")
	}()

	<-started
	_, err := m.Do(context.Background(), "chat:2")
	assert.NoError(t, err, "mutations on different targets must not serialize")

	close(release)
	wg.Wait()
}
