package querycache

import (
	"context"
	"errors"
)

// ErrMutationInFlight is returned when a mutation targets a key that
// already has one running. The caller queues or drops the intent; optimistic
// states never interleave.
var ErrMutationInFlight = errors.New("querycache: mutation already in flight for target")

// Mutation drives one intent through the cache lifecycle:
// optimistic write → network call → success merge or rollback → settle.
type Mutation[A, R any] struct {
	Store *Store

	// TargetKey identifies the logical target (e.g. the chat being sent
	// to); at most one mutation per target runs at a time. Empty string
	// disables the latch.
	TargetKey func(arg A) string

	// Call performs the network request.
	Call func(ctx context.Context, arg A) (R, error)

	// OnOptimistic applies the tentative cache change before the network
	// call. Entries it writes must be tagged so rollback can find them.
	OnOptimistic func(s *Store, arg A)
	// OnSuccess replaces optimistic entries with server truth and
	// invalidates whatever the mutation may have affected.
	OnSuccess func(ctx context.Context, s *Store, arg A, res R)
	// OnError rolls back exactly the tagged optimistic entries.
	OnError func(s *Store, arg A, err error)
	// OnSettled always runs last, exactly once, on both branches.
	OnSettled func(s *Store, arg A)
}

// Do executes the mutation. Hook ordering is fixed: optimistic before the
// call, success/error after it resolves, settled last.
func (m *Mutation[A, R]) Do(ctx context.Context, arg A) (R, error) {
	var zero R

	target := ""
	if m.TargetKey != nil {
		target = m.TargetKey(arg)
	}
	if target != "" {
		if !m.Store.acquire(target) {
			return zero, ErrMutationInFlight
		}
		defer m.Store.release(target)
	}

	if m.OnSettled != nil {
		defer m.OnSettled(m.Store, arg)
	}

	if m.OnOptimistic != nil {
		m.OnOptimistic(m.Store, arg)
	}

	res, err := m.Call(ctx, arg)
	if err != nil {
		if m.OnError != nil {
			m.OnError(m.Store, arg, err)
		}
		return zero, err
	}

	if m.OnSuccess != nil {
		m.OnSuccess(ctx, m.Store, arg, res)
	}
	return res, nil
}

func (s *Store) acquire(target string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.latches[target]; held {
		return false
	}
	s.latches[target] = struct{}{}
	return true
}

func (s *Store) release(target string) {
	s.mu.Lock()
	delete(s.latches, target)
	s.mu.Unlock()
}
